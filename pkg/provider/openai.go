package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// OpenAI is an adapter for OpenAI-compatible chat-completion APIs, which
// covers most hosted providers behind a configurable base URL.
type OpenAI struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewOpenAI creates an adapter for an OpenAI-compatible endpoint.
func NewOpenAI(name, baseURL, apiKey string) *OpenAI {
	return &OpenAI{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    newHTTPClient(),
	}
}

func (o *OpenAI) Name() string { return o.name }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Send posts a chat-completion request and normalizes the response.
func (o *OpenAI) Send(ctx context.Context, req Request) (*Response, error) {
	msgs := make([]openAIMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openAIMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, openAIMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(openAIRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: o.name, Model: req.Model, Message: "encode request"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: o.name, Model: req.Model, Message: "build request", cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, transportError(o.name, req.Model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(o.name, req.Model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(o.name, req.Model, resp.StatusCode, respBody)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Kind: KindUpstreamUnavailable, Provider: o.name, Model: req.Model, Message: "malformed response", cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: KindUpstreamUnavailable, Provider: o.name, Model: req.Model, Message: "empty choices"}
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Text:  parsed.Choices[0].Message.Content,
		Model: model,
		Usage: models.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}

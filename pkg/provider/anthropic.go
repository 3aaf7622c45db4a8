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

const anthropicVersion = "2023-06-01"

// Anthropic is an adapter for the Anthropic Messages API.
type Anthropic struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAnthropic creates an adapter for the Anthropic Messages API.
func NewAnthropic(name, baseURL, apiKey string) *Anthropic {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &Anthropic{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    newHTTPClient(),
	}
}

func (a *Anthropic) Name() string { return a.name }

type anthropicRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Send posts a messages request and normalizes the response.
func (a *Anthropic) Send(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024 // the messages API requires an explicit bound
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       req.Model,
		Messages:    []openAIMessage{{Role: "user", Content: req.Prompt}},
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: a.name, Model: req.Model, Message: "encode request"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: a.name, Model: req.Model, Message: "build request", cause: err}
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return nil, transportError(a.name, req.Model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(a.name, req.Model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(a.name, req.Model, resp.StatusCode, respBody)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Kind: KindUpstreamUnavailable, Provider: a.name, Model: req.Model, Message: "malformed response", cause: err}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &Error{Kind: KindUpstreamUnavailable, Provider: a.name, Model: req.Model, Message: "empty content"}
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Text:  text.String(),
		Model: model,
		Usage: models.Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		},
		FinishReason: parsed.StopReason,
	}, nil
}

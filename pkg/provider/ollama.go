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

// Ollama is an adapter for a locally-hosted inference server. No API key; it
// serves as the last-resort provider when cross-provider fallback is enabled.
type Ollama struct {
	name    string
	baseURL string
	http    *http.Client
}

// NewOllama creates an adapter for a local ollama server.
func NewOllama(name, baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(),
	}
}

func (o *Ollama) Name() string { return o.name }

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Send posts a chat request to the local server and normalizes the response.
func (o *Ollama) Send(ctx context.Context, req Request) (*Response, error) {
	var oreq ollamaRequest
	oreq.Model = req.Model
	if req.System != "" {
		oreq.Messages = append(oreq.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	oreq.Messages = append(oreq.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	oreq.Options.Temperature = req.Temperature
	oreq.Options.NumPredict = req.MaxTokens

	body, err := json.Marshal(oreq)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: o.name, Model: req.Model, Message: "encode request"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: o.name, Model: req.Model, Message: "build request", cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Kind: KindUpstreamUnavailable, Provider: o.name, Model: req.Model, Message: "malformed response", cause: err}
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Text:  parsed.Message.Content,
		Model: model,
		Usage: models.Usage{
			InputTokens:  parsed.PromptEvalCount,
			OutputTokens: parsed.EvalCount,
		},
		FinishReason: parsed.DoneReason,
	}, nil
}

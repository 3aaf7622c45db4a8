// Package provider adapts heterogeneous text-generation backends to one
// interface with a normalized error taxonomy.
package provider

import (
	"context"
	"fmt"

	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Request is a normalized completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is a normalized completion response.
type Response struct {
	Text         string
	Model        string
	Usage        models.Usage
	FinishReason string
}

// Adapter is the uniform interface over generation backends. Send honors the
// caller's context deadline and the request's MaxTokens bound, and returns a
// *Error for every failure mode.
type Adapter interface {
	Send(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// New builds an Adapter from provider configuration.
func New(cfg config.ProviderConfig) (Adapter, error) {
	switch cfg.Type {
	case "", "openai":
		return NewOpenAI(cfg.Name, cfg.URL, cfg.APIKey), nil
	case "anthropic":
		return NewAnthropic(cfg.Name, cfg.URL, cfg.APIKey), nil
	case "ollama":
		return NewOllama(cfg.Name, cfg.URL), nil
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", cfg.Name, cfg.Type)
	}
}

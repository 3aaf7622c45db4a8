package models

// Purpose identifies the business use of a generation call. Purposes select
// per-purpose default models and group usage for reporting.
type Purpose string

const (
	PurposeProjectScoring Purpose = "project_scoring"
	PurposeSentiment      Purpose = "sentiment_analysis"
	PurposeThemes         Purpose = "theme_extraction"
	PurposeGrantAnalysis  Purpose = "grant_analysis"
)

// SamplingParams controls model output generation.
type SamplingParams struct {
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// GenerationRequest describes a single generation call. Either Prompt or
// Template (plus Variables) must be set. The request is constructed once per
// call and never mutated.
type GenerationRequest struct {
	Purpose   Purpose           `json:"purpose"`
	Prompt    string            `json:"prompt,omitempty"`
	Template  string            `json:"template,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	System    string            `json:"system,omitempty"`
	Schema    *Schema           `json:"schema,omitempty"`
	Params    SamplingParams    `json:"params"`

	// Provider and Model override the purpose's configured default.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// CacheKey replaces the computed fingerprint when set.
	CacheKey string `json:"cache_key,omitempty"`
}

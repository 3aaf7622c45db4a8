package models

import "time"

// UsageRecord is one ledger row per generation call.
type UsageRecord struct {
	ID           string    `json:"id"`
	Purpose      string    `json:"purpose"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cached       bool      `json:"cached"`
	FallbackUsed bool      `json:"fallback_used"`
	Strategy     string    `json:"strategy,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageSummary aggregates ledger rows by purpose and model.
type UsageSummary struct {
	Purpose      string `json:"purpose"`
	Model        string `json:"model"`
	RequestCount int    `json:"request_count"`
	CacheHits    int    `json:"cache_hits"`
	Errors       int    `json:"errors"`
	TotalInput   int64  `json:"total_input"`
	TotalOutput  int64  `json:"total_output"`
}

// CostReport is an aggregated cost row grouped by purpose, provider, and model.
type CostReport struct {
	Purpose       string  `json:"purpose"`
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	RequestCount  int     `json:"request_count"`
	InputTokens   int64   `json:"input_tokens"`
	OutputTokens  int64   `json:"output_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

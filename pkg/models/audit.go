package models

import "time"

// AuditEntry captures one generation call for debugging and review.
type AuditEntry struct {
	RequestID    string    `json:"request_id"`
	Purpose      string    `json:"purpose"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Prompt       string    `json:"prompt,omitempty"`
	Response     string    `json:"response,omitempty"`
	Strategy     string    `json:"strategy,omitempty"`
	Cached       bool      `json:"cached"`
	FallbackUsed bool      `json:"fallback_used"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	LatencyMs    int64     `json:"latency_ms"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditConfig controls the audit capture subsystem.
type AuditConfig struct {
	Enabled         bool     `yaml:"enabled"`
	DBPath          string   `yaml:"db_path"`
	RetentionDays   int      `yaml:"retention_days"`
	Include         []string `yaml:"include"` // "prompts", "responses"
	ExcludePurposes []string `yaml:"exclude_purposes"`
	MaxBodySize     int      `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	RequestID string
	Purpose   string
	Model     string
	Since     time.Time
	Limit     int
}

// AuditStat holds aggregate audit counts for a model/day combination.
type AuditStat struct {
	Model string
	Day   string
	Count int
}

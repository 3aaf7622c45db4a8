package models

import "time"

// Usage tracks unit consumption for a single generation call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns combined input and output units.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Strategy names the extraction algorithm that produced a value.
type Strategy string

const (
	StrategyJSON    Strategy = "json"
	StrategyRegex   Strategy = "regex"
	StrategyKeyword Strategy = "keyword"
	StrategyDefault Strategy = "default"
)

// Confidence grades how an extraction payload was obtained.
type Confidence string

const (
	ConfidenceExact     Confidence = "exact"
	ConfidenceHeuristic Confidence = "heuristic"
	ConfidenceDefault   Confidence = "default"
)

// CriterionScore holds the extracted score and explanation for one criterion.
type CriterionScore struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// ThemeCount is one entry in an extracted theme ranking.
type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

// Extraction is the structured payload recovered from raw model text, with
// provenance for every resolved field.
type Extraction struct {
	Strategy   Strategy   `json:"strategy"`
	Confidence Confidence `json:"confidence"`

	// FieldStrategies records, per criterion ID, which strategy resolved it.
	// Only populated for criterion-score schemas.
	FieldStrategies map[string]Strategy `json:"field_strategies,omitempty"`

	Scores    map[string]CriterionScore `json:"scores,omitempty"`
	Sentiment string                    `json:"sentiment,omitempty"`
	Themes    []ThemeCount              `json:"themes,omitempty"`
	Object    map[string]any            `json:"object,omitempty"`
}

// Clone returns a deep copy of the extraction so callers can mutate their
// payload without affecting anyone else holding the same result.
func (x *Extraction) Clone() *Extraction {
	if x == nil {
		return nil
	}
	out := *x
	if x.FieldStrategies != nil {
		out.FieldStrategies = make(map[string]Strategy, len(x.FieldStrategies))
		for k, v := range x.FieldStrategies {
			out.FieldStrategies[k] = v
		}
	}
	if x.Scores != nil {
		out.Scores = make(map[string]CriterionScore, len(x.Scores))
		for k, v := range x.Scores {
			out.Scores[k] = v
		}
	}
	if x.Themes != nil {
		out.Themes = append([]ThemeCount(nil), x.Themes...)
	}
	if x.Object != nil {
		out.Object = copyObject(x.Object)
	}
	return &out
}

func copyObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyObject(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// GenerationResult is the outcome of a generation call.
type GenerationResult struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`

	// Provider and Model identify what actually served the call; they differ
	// from the request when the fallback chain advanced.
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Cached       bool   `json:"cached"`
	FallbackUsed bool   `json:"fallback_used"`

	Usage      Usage       `json:"usage"`
	Extraction *Extraction `json:"extraction,omitempty"`

	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

package models

// CapabilityTag labels something a model can do.
type CapabilityTag string

const (
	CapabilityTextGeneration       CapabilityTag = "text_generation"
	CapabilityReasoning            CapabilityTag = "reasoning"
	CapabilityLongForm             CapabilityTag = "long_form"
	CapabilityCodeGeneration       CapabilityTag = "code_generation"
	CapabilityInstructionFollowing CapabilityTag = "instruction_following"
	CapabilityStructuredOutput     CapabilityTag = "structured_output"
)

// ModelDescriptor describes one model known to the registry. Descriptors are
// configuration data: the fallback sibling lives here, not in code branches.
type ModelDescriptor struct {
	Provider     string          `json:"provider" yaml:"provider"`
	Model        string          `json:"model" yaml:"model"`
	Capabilities []CapabilityTag `json:"capabilities" yaml:"capabilities"`

	// Cost per 1000 units, USD.
	InputCostPer1K  float64 `json:"input_cost_per_1k" yaml:"input_cost_per_1k"`
	OutputCostPer1K float64 `json:"output_cost_per_1k" yaml:"output_cost_per_1k"`

	Active bool `json:"active" yaml:"active"`

	// DefaultFor lists the purposes this model is the configured default for.
	DefaultFor []Purpose `json:"default_for,omitempty" yaml:"default_for"`

	// FallbackModel names the known-good lighter sibling on the same
	// provider, tried when this model fails. Empty on lightest-tier models.
	FallbackModel string `json:"fallback_model,omitempty" yaml:"fallback_model"`
}

// Key returns the registry key "provider/model".
func (d ModelDescriptor) Key() string {
	return d.Provider + "/" + d.Model
}

package models

// SchemaKind tags the expected shape of extracted output.
type SchemaKind string

const (
	// SchemaCriterionScores expects an integer score plus explanation per criterion.
	SchemaCriterionScores SchemaKind = "criterion_scores"
	// SchemaSentiment expects one label from the closed sentiment vocabulary.
	SchemaSentiment SchemaKind = "sentiment"
	// SchemaThemes expects an ordered theme/count list.
	SchemaThemes SchemaKind = "themes"
	// SchemaFreeformJSON expects an arbitrary JSON object.
	SchemaFreeformJSON SchemaKind = "freeform_json"
)

// Schema describes the structured payload a caller expects from raw model
// text. Criteria is only meaningful for SchemaCriterionScores.
type Schema struct {
	Kind     SchemaKind      `json:"kind"`
	Criteria []CriterionSpec `json:"criteria,omitempty"`
}

// CriterionSpec defines one scoring criterion with its point ceiling.
type CriterionSpec struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	MaxPoints int    `json:"max_points" yaml:"max_points"`
}

// CriterionScoresSchema builds a Schema for the given criteria.
func CriterionScoresSchema(criteria ...CriterionSpec) *Schema {
	return &Schema{Kind: SchemaCriterionScores, Criteria: criteria}
}

// SentimentSchema builds a sentiment label Schema.
func SentimentSchema() *Schema {
	return &Schema{Kind: SchemaSentiment}
}

// ThemesSchema builds a theme/count list Schema.
func ThemesSchema() *Schema {
	return &Schema{Kind: SchemaThemes}
}

// FreeformJSONSchema builds an arbitrary-object Schema.
func FreeformJSONSchema() *Schema {
	return &Schema{Kind: SchemaFreeformJSON}
}

// Sentiment labels form a closed vocabulary; anything unresolved degrades to
// SentimentNeutral.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// SentimentLabels lists the closed vocabulary in match order.
var SentimentLabels = []string{SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed}

// Package extract converts raw model text into schema-conforming payloads.
//
// Extraction is a total function: strategies are applied in a fixed order
// (fenced/balanced JSON, per-field regex, keyword matching, default fill) and
// every field that no strategy resolves receives the schema's neutral
// default. Malformed model output can degrade a result but never produces an
// error, and provenance records which strategy resolved each field.
package extract

import (
	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Extract parses raw model output against the expected schema. The returned
// payload always conforms to the schema's shape, including for empty input.
func Extract(raw string, schema *models.Schema) models.Extraction {
	if schema == nil {
		return models.Extraction{Strategy: models.StrategyDefault, Confidence: models.ConfidenceDefault}
	}
	switch schema.Kind {
	case models.SchemaCriterionScores:
		return extractScores(raw, schema.Criteria)
	case models.SchemaSentiment:
		return extractSentiment(raw)
	case models.SchemaThemes:
		return extractThemes(raw)
	case models.SchemaFreeformJSON:
		return extractObject(raw)
	default:
		return models.Extraction{Strategy: models.StrategyDefault, Confidence: models.ConfidenceDefault}
	}
}

// primaryStrategy picks the result-level strategy tag from per-field
// provenance: the strongest strategy that resolved at least one field.
func primaryStrategy(fields map[string]models.Strategy) models.Strategy {
	counts := make(map[models.Strategy]int, len(fields))
	for _, s := range fields {
		counts[s]++
	}
	for _, s := range []models.Strategy{models.StrategyJSON, models.StrategyRegex, models.StrategyKeyword} {
		if counts[s] > 0 {
			return s
		}
	}
	return models.StrategyDefault
}

// confidenceFor grades an outcome: exact when everything came from parsed
// JSON, default when nothing better than defaults resolved, heuristic
// otherwise.
func confidenceFor(fields map[string]models.Strategy) models.Confidence {
	allJSON := len(fields) > 0
	anyResolved := false
	for _, s := range fields {
		if s != models.StrategyJSON {
			allJSON = false
		}
		if s != models.StrategyDefault {
			anyResolved = true
		}
	}
	switch {
	case allJSON:
		return models.ConfidenceExact
	case anyResolved:
		return models.ConfidenceHeuristic
	default:
		return models.ConfidenceDefault
	}
}

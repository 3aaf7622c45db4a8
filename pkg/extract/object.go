package extract

import (
	"encoding/json"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// extractObject resolves a freeform JSON object with no fixed shape. Only a
// top-level object is accepted; anything else defaults to an empty object.
func extractObject(raw string) models.Extraction {
	fields := map[string]models.Strategy{"object": models.StrategyDefault}
	obj := map[string]any{}

	v, ok := decodeFirst(raw, func(v any) bool {
		_, isObj := v.(map[string]any)
		return isObj
	})
	if ok {
		obj = normalizeNumbers(v.(map[string]any))
		fields["object"] = models.StrategyJSON
	}

	return models.Extraction{
		Strategy:        primaryStrategy(fields),
		Confidence:      confidenceFor(fields),
		FieldStrategies: fields,
		Object:          obj,
	}
}

// normalizeNumbers rewrites json.Number values to float64 so the payload
// round-trips through the cache the same way it was first returned.
func normalizeNumbers(obj map[string]any) map[string]any {
	for k, v := range obj {
		obj[k] = normalizeValue(v)
	}
	return obj
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		return normalizeNumbers(t)
	case []any:
		for i, item := range t {
			t[i] = normalizeValue(item)
		}
		return t
	}
	return v
}

package extract

import (
	"regexp"
	"strings"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

var sentimentWordRe = regexp.MustCompile(`(?i)\b(positive|negative|neutral|mixed)\b`)

// extractSentiment resolves a single closed-vocabulary label. A JSON object
// with a valid "sentiment" member wins; otherwise the first vocabulary word
// appearing anywhere in the text is taken; otherwise the label defaults to
// neutral.
func extractSentiment(raw string) models.Extraction {
	fields := map[string]models.Strategy{"sentiment": models.StrategyDefault}
	out := models.Extraction{Sentiment: models.SentimentNeutral}

	if label, ok := sentimentFromJSON(raw); ok {
		out.Sentiment = label
		fields["sentiment"] = models.StrategyJSON
	} else if m := sentimentWordRe.FindString(raw); m != "" {
		out.Sentiment = strings.ToLower(m)
		fields["sentiment"] = models.StrategyKeyword
	}

	out.FieldStrategies = fields
	out.Strategy = primaryStrategy(fields)
	out.Confidence = confidenceFor(fields)
	return out
}

func sentimentFromJSON(raw string) (string, bool) {
	var label string
	_, ok := decodeFirst(raw, func(v any) bool {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		s, ok := asString(obj["sentiment"])
		if !ok {
			return false
		}
		s = strings.ToLower(strings.TrimSpace(s))
		for _, want := range models.SentimentLabels {
			if s == want {
				label = s
				return true
			}
		}
		return false
	})
	return label, ok
}

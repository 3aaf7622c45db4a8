package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// extractScores resolves one score and explanation per criterion. JSON output
// is tried first; any criterion it does not cover falls through to a
// per-criterion line regex, and whatever remains is filled with the mid-scale
// default. The result always carries exactly the requested criterion IDs.
func extractScores(raw string, criteria []models.CriterionSpec) models.Extraction {
	scores := make(map[string]models.CriterionScore, len(criteria))
	fields := make(map[string]models.Strategy, len(criteria))

	fromJSON := scoresFromJSON(raw, criteria)
	for _, c := range criteria {
		if sc, ok := fromJSON[c.ID]; ok {
			scores[c.ID] = finishScore(sc, c)
			fields[c.ID] = models.StrategyJSON
			continue
		}
		if sc, ok := scoreFromLine(raw, c); ok {
			scores[c.ID] = finishScore(sc, c)
			fields[c.ID] = models.StrategyRegex
			continue
		}
		scores[c.ID] = defaultScore(c)
		fields[c.ID] = models.StrategyDefault
	}

	return models.Extraction{
		Strategy:        primaryStrategy(fields),
		Confidence:      confidenceFor(fields),
		FieldStrategies: fields,
		Scores:          scores,
	}
}

// scoresFromJSON accepts two shapes: a pair of "scores" and "explanations"
// mappings over the same key set, or a mapping of criterion ID to an object
// with "score" and "explanation" members. Criterion IDs and names both match,
// case-insensitively.
func scoresFromJSON(raw string, criteria []models.CriterionSpec) map[string]models.CriterionScore {
	v, ok := decodeFirst(raw, func(v any) bool {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		return parseScoresObject(obj, criteria) != nil
	})
	if !ok {
		return nil
	}
	return parseScoresObject(v.(map[string]any), criteria)
}

func parseScoresObject(obj map[string]any, criteria []models.CriterionSpec) map[string]models.CriterionScore {
	if m := parseSplitMappings(obj, criteria); m != nil {
		return m
	}
	return parseNestedMappings(obj, criteria)
}

// parseSplitMappings handles {"scores": {...}, "explanations": {...}}. The
// two mappings must cover the same key set or the shape is rejected.
func parseSplitMappings(obj map[string]any, criteria []models.CriterionSpec) map[string]models.CriterionScore {
	rawScores, ok := obj["scores"].(map[string]any)
	if !ok {
		return nil
	}
	rawExpl, ok := obj["explanations"].(map[string]any)
	if !ok {
		return nil
	}
	if len(rawScores) != len(rawExpl) {
		return nil
	}
	for k := range rawScores {
		if _, ok := rawExpl[k]; !ok {
			return nil
		}
	}
	out := make(map[string]models.CriterionScore)
	for _, c := range criteria {
		key, ok := matchKey(rawScores, c)
		if !ok {
			continue
		}
		n, ok := asNumber(rawScores[key])
		if !ok {
			continue
		}
		expl, _ := asString(rawExpl[key])
		out[c.ID] = models.CriterionScore{Score: int(math.Round(n)), Explanation: expl}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseNestedMappings handles {"<id>": {"score": n, "explanation": s}, ...}.
func parseNestedMappings(obj map[string]any, criteria []models.CriterionSpec) map[string]models.CriterionScore {
	out := make(map[string]models.CriterionScore)
	for _, c := range criteria {
		key, ok := matchKey(obj, c)
		if !ok {
			continue
		}
		entry, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		n, ok := asNumber(entry["score"])
		if !ok {
			continue
		}
		expl, _ := asString(entry["explanation"])
		out[c.ID] = models.CriterionScore{Score: int(math.Round(n)), Explanation: expl}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// matchKey finds the map key naming this criterion, by ID or display name,
// ignoring case.
func matchKey(obj map[string]any, c models.CriterionSpec) (string, bool) {
	for k := range obj {
		if strings.EqualFold(k, c.ID) || strings.EqualFold(k, c.Name) {
			return k, true
		}
	}
	return "", false
}

// scoreFromLine scans raw line by line for "<name or id> ... <integer> ...
// <trailing text>" and takes the first match. A "7/10" style denominator is
// tolerated and ignored.
func scoreFromLine(raw string, c models.CriterionSpec) (models.CriterionScore, bool) {
	re, err := regexp.Compile(
		`(?i)\b(?:` + regexp.QuoteMeta(c.Name) + `|` + regexp.QuoteMeta(c.ID) + `)\b[^0-9\n]*(\d+)(?:\s*/\s*\d+)?[\s:,.–—-]*(.*)`,
	)
	if err != nil {
		return models.CriterionScore{}, false
	}
	for _, line := range strings.Split(raw, "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return models.CriterionScore{Score: n, Explanation: m[2]}, true
	}
	return models.CriterionScore{}, false
}

// finishScore clamps the score into [0, max] and normalizes the explanation.
func finishScore(sc models.CriterionScore, c models.CriterionSpec) models.CriterionScore {
	if sc.Score < 0 {
		sc.Score = 0
	}
	if sc.Score > c.MaxPoints {
		sc.Score = c.MaxPoints
	}
	sc.Explanation = strings.TrimSpace(sc.Explanation)
	if sc.Explanation == "" {
		sc.Explanation = fmt.Sprintf("No explanation provided for %s.", c.Name)
	}
	return sc
}

func defaultScore(c models.CriterionSpec) models.CriterionScore {
	return models.CriterionScore{
		Score:       c.MaxPoints / 2,
		Explanation: fmt.Sprintf("Unable to parse a score for %s from the model response.", c.Name),
	}
}

package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// themeKeywords maps trigger phrases to the canonical theme they count
// toward. Matching is case-insensitive on word boundaries, so "potholes"
// counts but "cycling" does not match "recycling".
var themeKeywords = map[string]string{
	"pothole":       "Road Conditions",
	"pavement":      "Road Conditions",
	"repaving":      "Road Conditions",
	"bike lane":     "Bike Lanes",
	"cycling":       "Bike Lanes",
	"bicycle":       "Bike Lanes",
	"sidewalk":      "Sidewalks & Accessibility",
	"wheelchair":    "Sidewalks & Accessibility",
	"accessibility": "Sidewalks & Accessibility",
	"bus":           "Public Transit",
	"transit":       "Public Transit",
	"train":         "Public Transit",
	"rail":          "Public Transit",
	"traffic":       "Traffic Congestion",
	"congestion":    "Traffic Congestion",
	"parking":       "Parking",
	"crosswalk":     "Pedestrian Safety",
	"pedestrian":    "Pedestrian Safety",
	"speeding":      "Traffic Safety",
	"speed limit":   "Traffic Safety",
	"streetlight":   "Street Lighting",
	"lighting":      "Street Lighting",
	"noise":         "Noise",
}

const maxThemes = 10

var themePatterns = compileThemePatterns()

func compileThemePatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(themeKeywords))
	for kw := range themeKeywords {
		out[kw] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `s?\b`)
	}
	return out
}

// extractThemes resolves a ranked theme list. JSON output in the expected
// shape is taken as-is; otherwise the keyword dictionary is counted over the
// raw text. Either way the list is sorted by descending count, zero-count
// entries dropped, and truncated to the top ten.
func extractThemes(raw string) models.Extraction {
	fields := map[string]models.Strategy{"themes": models.StrategyDefault}
	var themes []models.ThemeCount

	if fromJSON, ok := themesFromJSON(raw); ok {
		themes = fromJSON
		fields["themes"] = models.StrategyJSON
	} else if counted := countThemes(raw); len(counted) > 0 {
		themes = counted
		fields["themes"] = models.StrategyKeyword
	}

	return models.Extraction{
		Strategy:        primaryStrategy(fields),
		Confidence:      confidenceFor(fields),
		FieldStrategies: fields,
		Themes:          rankThemes(themes),
	}
}

// themesFromJSON accepts either a bare array of {"theme", "count"} objects
// or an object wrapping that array under "themes".
func themesFromJSON(raw string) ([]models.ThemeCount, bool) {
	var parsed []models.ThemeCount
	_, ok := decodeFirst(raw, func(v any) bool {
		arr, ok := v.([]any)
		if !ok {
			obj, isObj := v.(map[string]any)
			if !isObj {
				return false
			}
			arr, ok = obj["themes"].([]any)
			if !ok {
				return false
			}
		}
		out := make([]models.ThemeCount, 0, len(arr))
		for _, item := range arr {
			entry, ok := item.(map[string]any)
			if !ok {
				return false
			}
			name, ok := asString(entry["theme"])
			if !ok {
				return false
			}
			n, ok := asNumber(entry["count"])
			if !ok {
				return false
			}
			out = append(out, models.ThemeCount{Theme: name, Count: int(math.Round(n))})
		}
		parsed = out
		return true
	})
	return parsed, ok
}

func countThemes(raw string) []models.ThemeCount {
	counts := make(map[string]int)
	for kw, re := range themePatterns {
		if n := len(re.FindAllStringIndex(raw, -1)); n > 0 {
			counts[themeKeywords[kw]] += n
		}
	}
	out := make([]models.ThemeCount, 0, len(counts))
	for theme, n := range counts {
		out = append(out, models.ThemeCount{Theme: theme, Count: n})
	}
	return out
}

// rankThemes sorts by count descending with name as the tiebreak, drops
// non-positive counts, and keeps at most maxThemes entries. It always returns
// a non-nil slice so the payload serializes as an empty list, not null.
func rankThemes(themes []models.ThemeCount) []models.ThemeCount {
	kept := make([]models.ThemeCount, 0, len(themes))
	for _, t := range themes {
		if t.Count > 0 && strings.TrimSpace(t.Theme) != "" {
			kept = append(kept, t)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Count != kept[j].Count {
			return kept[i].Count > kept[j].Count
		}
		return kept[i].Theme < kept[j].Theme
	})
	if len(kept) > maxThemes {
		kept = kept[:maxThemes]
	}
	return kept
}

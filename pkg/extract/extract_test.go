package extract

import (
	"testing"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

func rubric() *models.Schema {
	return models.CriterionScoresSchema(
		models.CriterionSpec{ID: "safety", Name: "Safety Impact", MaxPoints: 10},
		models.CriterionSpec{ID: "equity", Name: "Equity", MaxPoints: 5},
	)
}

func TestScoresFromFencedJSON(t *testing.T) {
	raw := "Here are the scores:\n```json\n{\"scores\": {\"safety\": 8, \"equity\": 3}, \"explanations\": {\"safety\": \"Protected intersection.\", \"equity\": \"Serves a transit desert.\"}}\n```"
	out := Extract(raw, rubric())

	if out.Strategy != models.StrategyJSON {
		t.Fatalf("strategy = %q, want json", out.Strategy)
	}
	if out.Confidence != models.ConfidenceExact {
		t.Errorf("confidence = %q, want exact", out.Confidence)
	}
	if got := out.Scores["safety"].Score; got != 8 {
		t.Errorf("safety score = %d, want 8", got)
	}
	if got := out.Scores["equity"].Explanation; got != "Serves a transit desert." {
		t.Errorf("equity explanation = %q", got)
	}
}

func TestScoresKeySetAlwaysMatchesSchema(t *testing.T) {
	for _, raw := range []string{
		"",
		"total nonsense with no numbers",
		"```json\n{\"scores\": {\"safety\": 8}}\n```",
		"{\"unrelated\": true}",
	} {
		out := Extract(raw, rubric())
		if len(out.Scores) != 2 {
			t.Fatalf("raw %q: got %d scores, want 2", raw, len(out.Scores))
		}
		for _, id := range []string{"safety", "equity"} {
			if _, ok := out.Scores[id]; !ok {
				t.Errorf("raw %q: missing criterion %q", raw, id)
			}
			if _, ok := out.FieldStrategies[id]; !ok {
				t.Errorf("raw %q: missing provenance for %q", raw, id)
			}
		}
	}
}

func TestScoresClampedToRange(t *testing.T) {
	raw := `{"scores": {"safety": 99, "equity": -4}, "explanations": {"safety": "x", "equity": "y"}}`
	out := Extract(raw, rubric())

	if got := out.Scores["safety"].Score; got != 10 {
		t.Errorf("safety = %d, want clamped 10", got)
	}
	if got := out.Scores["equity"].Score; got != 0 {
		t.Errorf("equity = %d, want clamped 0", got)
	}
}

func TestScoresJSONBeatsRegex(t *testing.T) {
	// The prose mentions different numbers than the JSON block. JSON wins.
	raw := "Safety Impact: 2/10 because reasons.\n```json\n{\"scores\": {\"safety\": 9, \"equity\": 4}, \"explanations\": {\"safety\": \"a\", \"equity\": \"b\"}}\n```"
	out := Extract(raw, rubric())

	if got := out.Scores["safety"].Score; got != 9 {
		t.Errorf("safety = %d, want 9 from JSON", got)
	}
	if out.FieldStrategies["safety"] != models.StrategyJSON {
		t.Errorf("safety provenance = %q, want json", out.FieldStrategies["safety"])
	}
}

func TestScoresFromRegexLines(t *testing.T) {
	raw := "Assessment:\nSafety Impact: 7/10 - separated bike lanes reduce conflicts\nEquity: 4, reaches underserved neighborhoods"
	out := Extract(raw, rubric())

	if out.Strategy != models.StrategyRegex {
		t.Fatalf("strategy = %q, want regex", out.Strategy)
	}
	if out.Confidence != models.ConfidenceHeuristic {
		t.Errorf("confidence = %q, want heuristic", out.Confidence)
	}
	if got := out.Scores["safety"].Score; got != 7 {
		t.Errorf("safety = %d, want 7", got)
	}
	if got := out.Scores["safety"].Explanation; got != "separated bike lanes reduce conflicts" {
		t.Errorf("safety explanation = %q", got)
	}
	if got := out.Scores["equity"].Score; got != 4 {
		t.Errorf("equity = %d, want 4", got)
	}
}

func TestScoresDefaultIsMidScale(t *testing.T) {
	out := Extract("no usable content", rubric())

	if out.Strategy != models.StrategyDefault {
		t.Fatalf("strategy = %q, want default", out.Strategy)
	}
	if out.Confidence != models.ConfidenceDefault {
		t.Errorf("confidence = %q, want default", out.Confidence)
	}
	if got := out.Scores["safety"].Score; got != 5 {
		t.Errorf("safety default = %d, want 5", got)
	}
	if got := out.Scores["equity"].Score; got != 2 {
		t.Errorf("equity default = %d, want 2", got)
	}
	if out.Scores["safety"].Explanation == "" {
		t.Error("default explanation must not be empty")
	}
}

func TestScoresEmptyExplanationGetsPlaceholder(t *testing.T) {
	raw := `{"scores": {"safety": 6, "equity": 3}, "explanations": {"safety": "", "equity": "  "}}`
	out := Extract(raw, rubric())

	for _, id := range []string{"safety", "equity"} {
		if out.Scores[id].Explanation == "" {
			t.Errorf("%s: empty explanation not replaced", id)
		}
	}
}

func TestSentimentSingleKeyword(t *testing.T) {
	out := Extract("The overall tone of the comments is negative.", models.SentimentSchema())

	if out.Sentiment != models.SentimentNegative {
		t.Fatalf("sentiment = %q, want negative", out.Sentiment)
	}
	if out.Strategy != models.StrategyKeyword {
		t.Errorf("strategy = %q, want keyword", out.Strategy)
	}
}

func TestSentimentFromJSON(t *testing.T) {
	out := Extract(`{"sentiment": "Mixed"}`, models.SentimentSchema())

	if out.Sentiment != models.SentimentMixed {
		t.Fatalf("sentiment = %q, want mixed", out.Sentiment)
	}
	if out.Confidence != models.ConfidenceExact {
		t.Errorf("confidence = %q, want exact", out.Confidence)
	}
}

func TestSentimentInvalidJSONLabelFallsThrough(t *testing.T) {
	// "ecstatic" is outside the vocabulary, but "positive" appears in prose.
	out := Extract(`{"sentiment": "ecstatic"} overall a positive reception`, models.SentimentSchema())

	if out.Sentiment != models.SentimentPositive {
		t.Fatalf("sentiment = %q, want positive", out.Sentiment)
	}
	if out.Strategy != models.StrategyKeyword {
		t.Errorf("strategy = %q, want keyword", out.Strategy)
	}
}

func TestSentimentDefaultsToNeutral(t *testing.T) {
	out := Extract("the weather was fine", models.SentimentSchema())

	if out.Sentiment != models.SentimentNeutral {
		t.Fatalf("sentiment = %q, want neutral", out.Sentiment)
	}
	if out.Strategy != models.StrategyDefault {
		t.Errorf("strategy = %q, want default", out.Strategy)
	}
}

func TestThemesCountedAndRanked(t *testing.T) {
	raw := "Pothole on Main St. Another pothole near the school. The third pothole is huge. Please add a bike lane."
	out := Extract(raw, models.ThemesSchema())

	if out.Strategy != models.StrategyKeyword {
		t.Fatalf("strategy = %q, want keyword", out.Strategy)
	}
	if len(out.Themes) < 2 {
		t.Fatalf("got %d themes, want at least 2", len(out.Themes))
	}
	if out.Themes[0].Theme != "Road Conditions" || out.Themes[0].Count != 3 {
		t.Errorf("top theme = %+v, want Road Conditions x3", out.Themes[0])
	}
	if out.Themes[1].Theme != "Bike Lanes" || out.Themes[1].Count != 1 {
		t.Errorf("second theme = %+v, want Bike Lanes x1", out.Themes[1])
	}
}

func TestThemesWordBoundary(t *testing.T) {
	out := Extract("we support recycling programs", models.ThemesSchema())

	for _, th := range out.Themes {
		if th.Theme == "Bike Lanes" {
			t.Fatalf("'recycling' must not count toward Bike Lanes: %+v", out.Themes)
		}
	}
}

func TestThemesFromJSONSortedAndTruncated(t *testing.T) {
	raw := `{"themes": [{"theme": "Parking", "count": 2}, {"theme": "Noise", "count": 9}, {"theme": "Empty", "count": 0}]}`
	out := Extract(raw, models.ThemesSchema())

	if out.Strategy != models.StrategyJSON {
		t.Fatalf("strategy = %q, want json", out.Strategy)
	}
	want := []models.ThemeCount{{Theme: "Noise", Count: 9}, {Theme: "Parking", Count: 2}}
	if len(out.Themes) != len(want) {
		t.Fatalf("got %d themes, want %d (zero-count dropped)", len(out.Themes), len(want))
	}
	for i, w := range want {
		if out.Themes[i] != w {
			t.Errorf("themes[%d] = %+v, want %+v", i, out.Themes[i], w)
		}
	}
}

func TestThemesDefaultIsEmptyList(t *testing.T) {
	out := Extract("nothing relevant here", models.ThemesSchema())

	if out.Themes == nil {
		t.Fatal("themes must be an empty list, not nil")
	}
	if len(out.Themes) != 0 {
		t.Fatalf("got %d themes, want 0", len(out.Themes))
	}
	if out.Strategy != models.StrategyDefault {
		t.Errorf("strategy = %q, want default", out.Strategy)
	}
}

func TestFreeformObject(t *testing.T) {
	out := Extract("Result: {\"eligible\": true, \"amount\": 50000}", models.FreeformJSONSchema())

	if out.Strategy != models.StrategyJSON {
		t.Fatalf("strategy = %q, want json", out.Strategy)
	}
	if out.Object["eligible"] != true {
		t.Errorf("eligible = %v, want true", out.Object["eligible"])
	}
	if out.Object["amount"] != float64(50000) {
		t.Errorf("amount = %v (%T), want 50000", out.Object["amount"], out.Object["amount"])
	}
}

func TestFreeformObjectDefault(t *testing.T) {
	out := Extract("no json anywhere", models.FreeformJSONSchema())

	if out.Object == nil {
		t.Fatal("object must default to an empty map")
	}
	if out.Strategy != models.StrategyDefault {
		t.Errorf("strategy = %q, want default", out.Strategy)
	}
}

func TestExtractNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"", "{", "```json\n{\"scores\":", "[1,2,", "\x00\xff", `{"scores": "not a map", "explanations": 7}`,
	}
	schemas := []*models.Schema{rubric(), models.SentimentSchema(), models.ThemesSchema(), models.FreeformJSONSchema(), nil}
	for _, raw := range inputs {
		for _, s := range schemas {
			out := Extract(raw, s)
			if out.Strategy == "" {
				t.Errorf("raw %q: empty strategy tag", raw)
			}
		}
	}
}

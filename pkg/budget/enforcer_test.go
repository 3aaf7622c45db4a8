package budget

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
)

func setup(t *testing.T) (tracker.Tracker, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "budget_test.db")
	tr, err := tracker.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, context.Background()
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Purpose: "project_scoring", Provider: "anthropic", Model: "claude-sonnet-4-5",
		InputTokens: 100, OutputTokens: 50,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Purpose: "*", MaxUnits: 1000, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, models.PurposeProjectScoring, "claude-sonnet-4-5"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckExceeded(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Purpose: "project_scoring", Provider: "anthropic", Model: "claude-sonnet-4-5",
		InputTokens: 500, OutputTokens: 600,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Purpose: "*", MaxUnits: 1000, Period: models.BudgetDaily},
	}, tr)

	err := e.Check(ctx, models.PurposeProjectScoring, "claude-sonnet-4-5")
	if err == nil {
		t.Fatal("expected budget exceeded error")
	}
	if err != ErrBudgetExceeded {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestCachedCallsDoNotCount(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Purpose: "project_scoring", Provider: "anthropic", Model: "claude-sonnet-4-5",
		InputTokens: 500, OutputTokens: 600, Cached: true,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Purpose: "*", MaxUnits: 1000, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, models.PurposeProjectScoring, "claude-sonnet-4-5"); err != nil {
		t.Errorf("cached usage must not count against the budget: %v", err)
	}
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Purpose: "sentiment_analysis", Provider: "openai", Model: "gpt-4o-mini",
		InputTokens: 100, OutputTokens: 50,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Purpose: "*", MaxUnits: 1000, Period: models.BudgetDaily},
	}, tr)

	statuses, err := e.Status(ctx, models.PurposeSentiment)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Used != 150 {
		t.Errorf("expected 150 used, got %d", statuses[0].Used)
	}
	if statuses[0].Remaining != 850 {
		t.Errorf("expected 850 remaining, got %d", statuses[0].Remaining)
	}
}

func TestSpecificPurposePolicy(t *testing.T) {
	tr, ctx := setup(t)

	e := New([]models.BudgetPolicy{
		{Purpose: "grant_analysis", MaxUnits: 500, Period: models.BudgetDaily},
		{Purpose: "*", MaxUnits: 10000, Period: models.BudgetDaily},
	}, tr)

	// theme_extraction only matches the wildcard.
	statuses, err := e.Status(ctx, models.PurposeThemes)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status for theme_extraction, got %d", len(statuses))
	}

	// grant_analysis matches both.
	statuses, err = e.Status(ctx, models.PurposeGrantAnalysis)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses for grant_analysis, got %d", len(statuses))
	}
}

func TestNilEnforcerAllows(t *testing.T) {
	var e *Enforcer
	if err := e.Check(context.Background(), models.PurposeProjectScoring, ""); err != nil {
		t.Errorf("nil enforcer should allow: %v", err)
	}
}

package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/modeshift-ai/modeshift/pkg/budget"
	cachesqlite "github.com/modeshift-ai/modeshift/pkg/cache/sqlite"
	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/provider"
	"github.com/modeshift-ai/modeshift/pkg/template"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
)

type fakeAdapter struct {
	name string

	mu    sync.Mutex
	calls int
	send  func(req provider.Request) (*provider.Response, error)
}

func (f *fakeAdapter) Send(ctx context.Context, req provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.send(req)
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okResponse(text string) func(provider.Request) (*provider.Response, error) {
	return func(req provider.Request) (*provider.Response, error) {
		return &provider.Response{
			Text:  text,
			Model: req.Model,
			Usage: models.Usage{InputTokens: 10, OutputTokens: 20},
		}, nil
	}
}

func failWith(name string, kind provider.Kind) func(provider.Request) (*provider.Response, error) {
	return func(req provider.Request) (*provider.Response, error) {
		return nil, &provider.Error{Kind: kind, Provider: name, Model: req.Model, Message: "upstream said no"}
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{
		{Name: "anthropic", Type: "anthropic", URL: "http://unused", APIKey: "k"},
		{Name: "ollama", Type: "ollama", URL: "http://unused"},
	}
	cfg.Models = []models.ModelDescriptor{
		{
			Provider: "anthropic", Model: "claude-sonnet-4-5", Active: true,
			DefaultFor:    []models.Purpose{models.PurposeProjectScoring, models.PurposeSentiment},
			FallbackModel: "claude-haiku-4-5",
		},
		{Provider: "anthropic", Model: "claude-haiku-4-5", Active: true},
		{Provider: "ollama", Model: "llama3.2", Active: true},
	}
	cfg.Cache.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, adapters map[string]provider.Adapter, opts Options) *Engine {
	t.Helper()
	opts.Adapters = adapters
	opts.Logger = zerolog.Nop()
	e, err := New(cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestGenerateSuccess(t *testing.T) {
	primary := &fakeAdapter{name: "anthropic", send: okResponse(`{"sentiment": "positive"}`)}
	e := newTestEngine(t, testConfig(), map[string]provider.Adapter{"anthropic": primary}, Options{})

	res, err := e.Generate(context.Background(), models.GenerationRequest{
		Purpose: models.PurposeSentiment,
		Prompt:  "Classify the sentiment of: great plan!",
		Schema:  models.SentimentSchema(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Provider != "anthropic" || res.Model != "claude-sonnet-4-5" {
		t.Errorf("served by %s/%s, want anthropic/claude-sonnet-4-5", res.Provider, res.Model)
	}
	if res.FallbackUsed {
		t.Error("fallback_used should be false for primary")
	}
	if res.RequestID == "" {
		t.Error("missing request ID")
	}
	if res.Extraction == nil || res.Extraction.Sentiment != models.SentimentPositive {
		t.Errorf("extraction = %+v, want positive sentiment", res.Extraction)
	}
	if res.Usage.Total() != 30 {
		t.Errorf("usage total = %d, want 30", res.Usage.Total())
	}
}

func TestGenerateFallsBackToSibling(t *testing.T) {
	calls := 0
	adapter := &fakeAdapter{name: "anthropic", send: func(req provider.Request) (*provider.Response, error) {
		calls++
		if req.Model == "claude-sonnet-4-5" {
			return nil, &provider.Error{Kind: provider.KindUpstreamUnavailable, Provider: "anthropic", Model: req.Model}
		}
		return okResponse("neutral")(req)
	}}
	e := newTestEngine(t, testConfig(), map[string]provider.Adapter{"anthropic": adapter}, Options{})

	res, err := e.Generate(context.Background(), models.GenerationRequest{
		Purpose: models.PurposeSentiment,
		Prompt:  "classify this",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Model != "claude-haiku-4-5" {
		t.Errorf("served by %s, want claude-haiku-4-5", res.Model)
	}
	if !res.FallbackUsed {
		t.Error("fallback_used should be true")
	}
	if calls != 2 {
		t.Errorf("adapter calls = %d, want 2", calls)
	}
}

func TestGenerateCrossProviderLastResort(t *testing.T) {
	cfg := testConfig()
	cfg.Fallback = config.FallbackConfig{CrossProvider: true, LocalProvider: "ollama", LocalModel: "llama3.2"}

	anthro := &fakeAdapter{name: "anthropic", send: failWith("anthropic", provider.KindRateLimited)}
	local := &fakeAdapter{name: "ollama", send: okResponse("locally generated")}
	e := newTestEngine(t, cfg, map[string]provider.Adapter{"anthropic": anthro, "ollama": local}, Options{})

	res, err := e.Generate(context.Background(), models.GenerationRequest{
		Purpose: models.PurposeProjectScoring,
		Prompt:  "score it",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Provider != "ollama" || res.Model != "llama3.2" {
		t.Errorf("served by %s/%s, want ollama/llama3.2", res.Provider, res.Model)
	}
	if !res.FallbackUsed {
		t.Error("fallback_used should be true")
	}
	if anthro.callCount() != 2 {
		t.Errorf("anthropic attempts = %d, want 2 (primary plus sibling)", anthro.callCount())
	}
}

func TestGenerateExhaustedChain(t *testing.T) {
	adapter := &fakeAdapter{name: "anthropic", send: failWith("anthropic", provider.KindUpstreamUnavailable)}
	e := newTestEngine(t, testConfig(), map[string]provider.Adapter{"anthropic": adapter}, Options{})

	_, err := e.Generate(context.Background(), models.GenerationRequest{
		Purpose: models.PurposeProjectScoring,
		Prompt:  "score it",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrExhaustedFallbacks) {
		t.Errorf("error does not match ErrExhaustedFallbacks: %v", err)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("error is not *ExhaustedError: %T", err)
	}
	if len(ex.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(ex.Attempts))
	}
	// Upstream diagnostics stay out of the chain-level error.
	if strings.Contains(err.Error(), "upstream said no") {
		t.Errorf("exhausted error leaks upstream text: %q", err.Error())
	}
}

func TestGenerateInvalidRequestAbortsChain(t *testing.T) {
	adapter := &fakeAdapter{name: "anthropic", send: failWith("anthropic", provider.KindInvalidRequest)}
	e := newTestEngine(t, testConfig(), map[string]provider.Adapter{"anthropic": adapter}, Options{})

	_, err := e.Generate(context.Background(), models.GenerationRequest{
		Purpose: models.PurposeProjectScoring,
		Prompt:  "score it",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrExhaustedFallbacks) {
		t.Errorf("error does not match ErrExhaustedFallbacks: %v", err)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("error is not *ExhaustedError: %T", err)
	}
	if ex.LastKind != provider.KindInvalidRequest {
		t.Errorf("last kind = %q, want invalid_request", ex.LastKind)
	}
	if adapter.callCount() != 1 {
		t.Errorf("adapter calls = %d, want 1 (no fallback after invalid_request)", adapter.callCount())
	}
	if strings.Contains(err.Error(), "upstream said no") {
		t.Errorf("chain error leaks upstream text: %q", err.Error())
	}
}

func TestGenerateTemplateErrorBeforeNetwork(t *testing.T) {
	adapter := &fakeAdapter{name: "anthropic", send: okResponse("never reached")}
	e := newTestEngine(t, testConfig(), map[string]provider.Adapter{"anthropic": adapter}, Options{})

	_, err := e.Generate(context.Background(), models.GenerationRequest{
		Purpose:   models.PurposeProjectScoring,
		Template:  "Score {{project_name}} against {{rubric}}",
		Variables: map[string]string{"project_name": "Greenway"},
	})
	if err == nil {
		t.Fatal("expected missing variable error")
	}
	var missing *template.MissingVariablesError
	if !errors.As(err, &missing) {
		t.Fatalf("error is %T, want MissingVariablesError", err)
	}
	if len(missing.Names) != 1 || missing.Names[0] != "rubric" {
		t.Errorf("missing = %v, want [rubric]", missing.Names)
	}
	if adapter.callCount() != 0 {
		t.Errorf("adapter calls = %d, want 0", adapter.callCount())
	}
}

func TestGenerateCachedSecondCall(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = true
	store, err := cachesqlite.New(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	adapter := &fakeAdapter{name: "anthropic", send: okResponse(`{"sentiment": "negative"}`)}
	e := newTestEngine(t, cfg, map[string]provider.Adapter{"anthropic": adapter}, Options{Store: store})
	t.Cleanup(func() { _ = e.Close() })

	req := models.GenerationRequest{
		Purpose: models.PurposeSentiment,
		Prompt:  "Classify: this intersection is dangerous",
		Schema:  models.SentimentSchema(),
	}

	first, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first call must not be cached")
	}

	second, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second identical call must be served from cache")
	}
	if second.Text != first.Text {
		t.Errorf("cached text %q differs from original %q", second.Text, first.Text)
	}
	if adapter.callCount() != 1 {
		t.Errorf("adapter calls = %d, want 1", adapter.callCount())
	}

	// Formatting-only prompt changes share the fingerprint.
	req.Prompt = "  Classify: this intersection is dangerous\r\n"
	third, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !third.Cached {
		t.Error("normalized prompt variant must hit the cache")
	}
}

func TestGenerateCacheHitRecordsUsage(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = true
	dir := t.TempDir()
	store, err := cachesqlite.New(filepath.Join(dir, "cache.db"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := tracker.New(filepath.Join(dir, "usage.db"))
	if err != nil {
		t.Fatal(err)
	}

	adapter := &fakeAdapter{name: "anthropic", send: okResponse("answer")}
	e := newTestEngine(t, cfg, map[string]provider.Adapter{"anthropic": adapter}, Options{Store: store, Tracker: tr})
	t.Cleanup(func() { _ = e.Close() })

	req := models.GenerationRequest{
		Purpose: models.PurposeSentiment,
		Prompt:  "Classify: the new bus route is great",
	}
	first, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Fatal("second identical call must be served from cache")
	}
	if second.RequestID == first.RequestID {
		t.Error("each serve needs its own request ID")
	}

	// Ledger writes happen off the request path; wait for both rows.
	deadline := time.Now().Add(2 * time.Second)
	var recs []models.UsageRecord
	for time.Now().Before(deadline) {
		recs, err = tr.Query(context.Background(), string(models.PurposeSentiment), time.Time{})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(recs) != 2 {
		t.Fatalf("ledger has %d rows, want 2", len(recs))
	}
	cached := 0
	for _, r := range recs {
		if r.Cached {
			cached++
		}
	}
	if cached != 1 {
		t.Errorf("ledger has %d cached rows, want 1", cached)
	}
}

func TestGenerateBudgetExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.Budget.Enabled = true
	policies := []models.BudgetPolicy{{Purpose: "*", MaxUnits: 10, Period: models.BudgetDaily}}

	tr, err := tracker.New(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	_ = tr.Record(context.Background(), models.UsageRecord{
		Purpose: "project_scoring", Provider: "anthropic", Model: "claude-sonnet-4-5",
		InputTokens: 50, OutputTokens: 50, CreatedAt: time.Now().UTC(),
	})

	adapter := &fakeAdapter{name: "anthropic", send: okResponse("never reached")}
	e := newTestEngine(t, cfg, map[string]provider.Adapter{"anthropic": adapter}, Options{
		Budget: budget.New(policies, tr),
	})

	_, err = e.Generate(context.Background(), models.GenerationRequest{
		Purpose: models.PurposeProjectScoring,
		Prompt:  "score it",
	})
	if !errors.Is(err, budget.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if adapter.callCount() != 0 {
		t.Errorf("adapter calls = %d, want 0", adapter.callCount())
	}
}

func TestFeatureAvailable(t *testing.T) {
	cfg := testConfig()
	cfg.Models[0].Capabilities = []models.CapabilityTag{models.CapabilityTextGeneration, models.CapabilityStructuredOutput}
	e := newTestEngine(t, cfg, map[string]provider.Adapter{}, Options{})

	if !e.FeatureAvailable(models.PurposeProjectScoring, models.CapabilityStructuredOutput) {
		t.Error("structured_output should be available for project_scoring")
	}
	if e.FeatureAvailable(models.PurposeProjectScoring, models.CapabilityCodeGeneration) {
		t.Error("code_generation should not be available")
	}
	if e.FeatureAvailable(models.PurposeGrantAnalysis) {
		t.Error("purpose with no default model has no features")
	}

	caps := e.CapabilitiesFor(models.PurposeProjectScoring)
	if len(caps) != 2 {
		t.Errorf("capabilities = %v, want 2 tags", caps)
	}
}

// Package engine orchestrates generation calls: prompt rendering, budget
// enforcement, fallback routing, response caching, structured extraction,
// and usage accounting behind a single Generate entry point.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/modeshift-ai/modeshift/pkg/audit"
	"github.com/modeshift-ai/modeshift/pkg/budget"
	"github.com/modeshift-ai/modeshift/pkg/cache"
	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/extract"
	"github.com/modeshift-ai/modeshift/pkg/logging"
	"github.com/modeshift-ai/modeshift/pkg/metrics"
	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/provider"
	"github.com/modeshift-ai/modeshift/pkg/registry"
	"github.com/modeshift-ai/modeshift/pkg/router"
	"github.com/modeshift-ai/modeshift/pkg/template"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
)

// Options carries the optional subsystems an Engine can be wired with. Any
// nil member disables that concern.
type Options struct {
	Store   cache.Store
	Tracker tracker.Tracker
	Audit   *audit.Logger
	Budget  *budget.Enforcer
	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	// Adapters overrides the adapters built from configuration, keyed by
	// provider name. Used by tests to stub upstreams.
	Adapters map[string]provider.Adapter
}

// Engine executes generation requests against configured providers.
type Engine struct {
	cfg      *config.Config
	reg      *registry.Registry
	router   *router.Router
	store    cache.Store
	flight   cache.Group
	adapters map[string]provider.Adapter
	tracker  tracker.Tracker
	auditor  *audit.Logger
	budget   *budget.Enforcer
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New builds an Engine from configuration.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	reg := registry.New(cfg.Models)

	adapters := opts.Adapters
	if adapters == nil {
		adapters = make(map[string]provider.Adapter, len(cfg.Providers))
		for _, pc := range cfg.Providers {
			a, err := provider.New(pc)
			if err != nil {
				return nil, err
			}
			adapters[pc.Name] = a
		}
	}

	return &Engine{
		cfg:      cfg,
		reg:      reg,
		router:   router.New(cfg, reg),
		store:    opts.Store,
		adapters: adapters,
		tracker:  opts.Tracker,
		auditor:  opts.Audit,
		budget:   opts.Budget,
		metrics:  opts.Metrics,
		log:      logging.Component(opts.Logger, "engine"),
	}, nil
}

// Registry exposes the model capability registry.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// CapabilitiesFor returns the capability tags of the purpose's default model.
func (e *Engine) CapabilitiesFor(purpose models.Purpose) []models.CapabilityTag {
	d, ok := e.reg.DefaultForPurpose(purpose)
	if !ok {
		return nil
	}
	return d.Capabilities
}

// FeatureAvailable reports whether the purpose's default model carries every
// required capability tag.
func (e *Engine) FeatureAvailable(purpose models.Purpose, required ...models.CapabilityTag) bool {
	d, ok := e.reg.DefaultForPurpose(purpose)
	if !ok {
		return false
	}
	return e.reg.Supports(d.Provider, d.Model, required...)
}

// Generate runs one generation call end to end. It renders the prompt,
// checks budgets, resolves the fallback chain, consults the cache, walks the
// chain until a provider succeeds, extracts the structured payload, and
// records usage. Identical concurrent calls share one upstream flight.
func (e *Engine) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	prompt := req.Prompt
	if req.Template != "" {
		rendered, err := template.Render(req.Template, req.Variables)
		if err != nil {
			return nil, err
		}
		prompt = rendered
	}
	if prompt == "" {
		return nil, fmt.Errorf("empty prompt for purpose %q", req.Purpose)
	}

	params := req.Params
	if params == (models.SamplingParams{}) {
		params = e.cfg.Defaults
	}

	if e.cfg.Budget.Enabled {
		if err := e.budget.Check(ctx, req.Purpose, req.Model); err != nil {
			return nil, err
		}
	}

	routes, err := e.router.Resolve(req.Provider, req.Model, req.Purpose)
	if err != nil {
		return nil, err
	}

	if e.store == nil || !e.cfg.Cache.Enabled {
		return e.generateUncached(ctx, req, prompt, params, routes)
	}

	fingerprint := req.CacheKey
	if fingerprint == "" {
		fingerprint = cache.Fingerprint(prompt, req.Purpose, req.Model, params)
	}

	result, _, err := e.flight.Do(fingerprint, func() (*models.GenerationResult, error) {
		if hit, ok, err := e.store.Get(ctx, fingerprint); err == nil && ok {
			hit.Cached = true
			// Each serve is its own call; reusing the persisted ID would
			// collide with the row written when the entry was generated.
			hit.RequestID = uuid.NewString()
			e.metrics.RecordCacheHit(string(req.Purpose))
			e.recordAsync(req, prompt, hit, "")
			return hit, nil
		} else if err != nil {
			e.log.Warn().Err(err).Msg("cache read failed, calling upstream")
		}

		res, err := e.generateUncached(ctx, req, prompt, params, routes)
		if err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, fingerprint, *res); err != nil {
			e.log.Warn().Err(err).Msg("cache write failed")
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	// Every caller gets its own copy so nobody aliases the in-flight value
	// or another waiter's extraction payload.
	out := *result
	out.Extraction = result.Extraction.Clone()
	return &out, nil
}

// generateUncached walks the fallback chain. Each route gets exactly one
// attempt; retryable failures advance the chain and a non-retryable failure
// aborts it.
func (e *Engine) generateUncached(ctx context.Context, req models.GenerationRequest, prompt string, params models.SamplingParams, routes []router.Route) (*models.GenerationResult, error) {
	start := time.Now()
	var attempts []Attempt

	for i, route := range routes {
		adapter, ok := e.adapters[route.Provider.Name]
		if !ok {
			attempts = append(attempts, Attempt{Provider: route.Provider.Name, Model: route.Model, Kind: provider.KindUpstreamUnavailable})
			continue
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if e.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		}
		resp, err := adapter.Send(callCtx, provider.Request{
			Model:       route.Model,
			System:      req.System,
			Prompt:      prompt,
			MaxTokens:   params.MaxTokens,
			Temperature: params.Temperature,
		})
		if cancel != nil {
			cancel()
		}

		if err != nil {
			kind := provider.KindOf(err)
			attempts = append(attempts, Attempt{Provider: route.Provider.Name, Model: route.Model, Kind: kind})
			e.log.Warn().
				Str("purpose", string(req.Purpose)).
				Str("provider", route.Provider.Name).
				Str("model", route.Model).
				Str("error_kind", string(kind)).
				Msg("generation attempt failed")

			if pe, ok := provider.AsError(err); ok && !pe.Retryable() {
				// A malformed request fails every sibling too; stop early
				// and return the uniform chain error.
				e.recordFailure(req, prompt, route, kind, time.Since(start))
				e.metrics.RecordGeneration(string(req.Purpose), "", "", "error", time.Since(start).Seconds())
				return nil, &ExhaustedError{Purpose: req.Purpose, Attempts: attempts, LastKind: kind}
			}
			continue
		}

		result := &models.GenerationResult{
			RequestID:    uuid.NewString(),
			Text:         resp.Text,
			Provider:     route.Provider.Name,
			Model:        route.Model,
			FallbackUsed: i > 0,
			Usage:        resp.Usage,
			LatencyMs:    time.Since(start).Milliseconds(),
			CreatedAt:    time.Now().UTC(),
		}
		if req.Schema != nil {
			ex := extract.Extract(resp.Text, req.Schema)
			result.Extraction = &ex
			e.metrics.RecordExtraction(string(req.Purpose), string(ex.Strategy), string(ex.Confidence))
		}

		e.metrics.RecordGeneration(string(req.Purpose), result.Provider, result.Model, "ok", time.Since(start).Seconds())
		e.metrics.RecordTokens(result.Provider, result.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if result.FallbackUsed {
			e.metrics.RecordFallback(string(req.Purpose), result.Provider, result.Model)
		}
		e.recordAsync(req, prompt, result, "")
		return result, nil
	}

	lastKind := provider.KindUpstreamUnavailable
	if len(attempts) > 0 {
		last := attempts[len(attempts)-1]
		lastKind = last.Kind
		e.recordFailure(req, prompt, router.Route{Provider: config.ProviderConfig{Name: last.Provider}, Model: last.Model}, last.Kind, time.Since(start))
	}
	e.metrics.RecordGeneration(string(req.Purpose), "", "", "error", time.Since(start).Seconds())
	return nil, &ExhaustedError{Purpose: req.Purpose, Attempts: attempts, LastKind: lastKind}
}

// recordAsync writes the usage ledger row and audit entry off the request
// path. Failures are logged, never surfaced.
func (e *Engine) recordAsync(req models.GenerationRequest, prompt string, result *models.GenerationResult, errorKind string) {
	if e.tracker == nil && e.auditor == nil {
		return
	}
	rec := models.UsageRecord{
		ID:           result.RequestID,
		Purpose:      string(req.Purpose),
		Provider:     result.Provider,
		Model:        result.Model,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Cached:       result.Cached,
		FallbackUsed: result.FallbackUsed,
		LatencyMs:    result.LatencyMs,
		ErrorKind:    errorKind,
		CreatedAt:    time.Now().UTC(),
	}
	var entry models.AuditEntry
	if e.auditor != nil {
		entry = models.AuditEntry{
			RequestID:    result.RequestID,
			Purpose:      string(req.Purpose),
			Provider:     result.Provider,
			Model:        result.Model,
			Prompt:       prompt,
			Response:     result.Text,
			Cached:       result.Cached,
			FallbackUsed: result.FallbackUsed,
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
			LatencyMs:    result.LatencyMs,
			ErrorKind:    errorKind,
			CreatedAt:    rec.CreatedAt,
		}
	}
	if result.Extraction != nil {
		rec.Strategy = string(result.Extraction.Strategy)
		entry.Strategy = rec.Strategy
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if e.tracker != nil {
			if err := e.tracker.Record(ctx, rec); err != nil {
				e.log.Warn().Err(err).Msg("usage record failed")
			}
		}
		if e.auditor != nil {
			if err := e.auditor.Log(ctx, entry); err != nil {
				e.log.Warn().Err(err).Msg("audit log failed")
			}
		}
	}()
}

func (e *Engine) recordFailure(req models.GenerationRequest, prompt string, route router.Route, kind provider.Kind, elapsed time.Duration) {
	e.recordAsync(req, prompt, &models.GenerationResult{
		RequestID: uuid.NewString(),
		Provider:  route.Provider.Name,
		Model:     route.Model,
		LatencyMs: elapsed.Milliseconds(),
	}, string(kind))
}

// Close releases all held resources.
func (e *Engine) Close() error {
	var first error
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			first = err
		}
	}
	if e.tracker != nil {
		if err := e.tracker.Close(); err != nil && first == nil {
			first = err
		}
	}
	if e.auditor != nil {
		if err := e.auditor.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

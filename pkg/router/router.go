// Package router resolves a requested provider and model into the ordered
// fallback chain to attempt. The chain is the exact attempt budget: each
// route is tried once, in order, with no retries at this layer.
package router

import (
	"fmt"

	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/registry"
)

// Route is one resolved provider and model to try.
type Route struct {
	Provider config.ProviderConfig
	Model    string
}

// Router builds fallback chains from configuration and the model registry.
type Router struct {
	cfg *config.Config
	reg *registry.Registry
}

// New creates a Router.
func New(cfg *config.Config, reg *registry.Registry) *Router {
	return &Router{cfg: cfg, reg: reg}
}

// Resolve returns the ordered candidate list for a call.
//
// The first candidate is the explicit provider/model override when given,
// otherwise the purpose's configured default. The second tier is the
// primary's configured lighter sibling on the same provider. A cross-provider
// hop to the local provider is appended only when enabled in configuration.
// A lightest-tier primary with no sibling yields a single-entry chain.
func (r *Router) Resolve(providerOverride, modelOverride string, purpose models.Purpose) ([]Route, error) {
	if len(r.cfg.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	primary, err := r.primaryDescriptor(providerOverride, modelOverride, purpose)
	if err != nil {
		return nil, err
	}

	providerCfg, ok := r.cfg.ProviderByName(primary.Provider)
	if !ok {
		return nil, fmt.Errorf("model %q: provider %q not configured", primary.Model, primary.Provider)
	}

	routes := []Route{{Provider: providerCfg, Model: primary.Model}}

	// Same-provider lighter sibling, one tier only.
	if primary.FallbackModel != "" {
		if sibling, ok := r.reg.Lookup(primary.Provider, primary.FallbackModel); ok && sibling.Active {
			routes = append(routes, Route{Provider: providerCfg, Model: sibling.Model})
		}
	}

	// Cross-provider last resort, configuration-gated.
	if r.cfg.Fallback.CrossProvider && r.cfg.Fallback.LocalProvider != primary.Provider {
		if localCfg, ok := r.cfg.ProviderByName(r.cfg.Fallback.LocalProvider); ok {
			routes = append(routes, Route{Provider: localCfg, Model: r.cfg.Fallback.LocalModel})
		}
	}

	return routes, nil
}

func (r *Router) primaryDescriptor(providerOverride, modelOverride string, purpose models.Purpose) (models.ModelDescriptor, error) {
	if modelOverride == "" {
		d, ok := r.reg.DefaultForPurpose(purpose)
		if !ok {
			return models.ModelDescriptor{}, fmt.Errorf("no default model configured for purpose %q", purpose)
		}
		return d, nil
	}

	if providerOverride != "" {
		d, ok := r.reg.Lookup(providerOverride, modelOverride)
		if !ok {
			return models.ModelDescriptor{}, fmt.Errorf("unknown model %q on provider %q", modelOverride, providerOverride)
		}
		if !d.Active {
			return models.ModelDescriptor{}, fmt.Errorf("model %q is inactive", d.Key())
		}
		return d, nil
	}

	// Model override without a provider: find the first provider carrying it.
	for _, p := range r.cfg.Providers {
		if d, ok := r.reg.Lookup(p.Name, modelOverride); ok && d.Active {
			return d, nil
		}
	}
	return models.ModelDescriptor{}, fmt.Errorf("unknown model %q", modelOverride)
}

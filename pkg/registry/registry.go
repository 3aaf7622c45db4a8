// Package registry holds the in-memory model capability registry. Reads are
// lock-guarded map lookups; nothing here touches the network.
package registry

import (
	"sync"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Registry maps "provider/model" keys to descriptors.
type Registry struct {
	mu       sync.RWMutex
	byKey    map[string]models.ModelDescriptor
	defaults map[models.Purpose]models.ModelDescriptor
}

// New creates a Registry populated with the given descriptors.
func New(descriptors []models.ModelDescriptor) *Registry {
	r := &Registry{}
	r.Refresh(descriptors)
	return r
}

// Refresh replaces the registry contents. The last active descriptor listing
// a purpose in default_for wins as that purpose's default.
func (r *Registry) Refresh(descriptors []models.ModelDescriptor) {
	byKey := make(map[string]models.ModelDescriptor, len(descriptors))
	defaults := make(map[models.Purpose]models.ModelDescriptor)
	for _, d := range descriptors {
		byKey[d.Key()] = d
		if !d.Active {
			continue
		}
		for _, p := range d.DefaultFor {
			defaults[p] = d
		}
	}

	r.mu.Lock()
	r.byKey = byKey
	r.defaults = defaults
	r.mu.Unlock()
}

// Lookup returns the descriptor for provider/model.
func (r *Registry) Lookup(providerName, model string) (models.ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[providerName+"/"+model]
	return d, ok
}

// CapabilitiesOf returns the capability tags for provider/model, preserving
// configured order. Unknown models have no capabilities.
func (r *Registry) CapabilitiesOf(providerName, model string) []models.CapabilityTag {
	d, ok := r.Lookup(providerName, model)
	if !ok {
		return nil
	}
	return d.Capabilities
}

// Supports reports whether provider/model carries every required tag.
func (r *Registry) Supports(providerName, model string, required ...models.CapabilityTag) bool {
	d, ok := r.Lookup(providerName, model)
	if !ok {
		return false
	}
	have := make(map[models.CapabilityTag]bool, len(d.Capabilities))
	for _, c := range d.Capabilities {
		have[c] = true
	}
	for _, tag := range required {
		if !have[tag] {
			return false
		}
	}
	return true
}

// DefaultForPurpose returns the configured default model for a purpose.
func (r *Registry) DefaultForPurpose(purpose models.Purpose) (models.ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defaults[purpose]
	return d, ok
}

// Pricing returns per-1K unit costs for provider/model. Unknown models cost
// zero, so cost reports degrade to token counts rather than failing.
func (r *Registry) Pricing(providerName, model string) (inputPer1K, outputPer1K float64) {
	d, ok := r.Lookup(providerName, model)
	if !ok {
		return 0, 0
	}
	return d.InputCostPer1K, d.OutputCostPer1K
}

// List returns all descriptors, active and inactive.
func (r *Registry) List() []models.ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ModelDescriptor, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, d)
	}
	return out
}

// Package cache provides the content-addressed response cache: deterministic
// fingerprints, pluggable stores, and the single-flight guard that collapses
// concurrent identical generations into one upstream call.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Store is a TTL-bounded cache keyed by fingerprint. Entries are immutable:
// Put is first-write-wins, so overwriting an unexpired fingerprint is a no-op.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*models.GenerationResult, bool, error)
	Put(ctx context.Context, fingerprint string, result models.GenerationResult) error
	Stats(ctx context.Context) (models.CacheStats, error)
	Clear(ctx context.Context, expiredOnly bool) error
	Close() error
}

// Fingerprint computes the stable cache key for a request: a SHA-256 over the
// normalized prompt, purpose, explicit model override, and sampling params.
func Fingerprint(prompt string, purpose models.Purpose, modelOverride string, params models.SamplingParams) string {
	h := sha256.New()
	h.Write([]byte(normalizePrompt(prompt)))
	h.Write([]byte{0})
	h.Write([]byte(purpose))
	h.Write([]byte{0})
	h.Write([]byte(modelOverride))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d:%g", params.MaxTokens, params.Temperature)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// normalizePrompt trims surrounding whitespace and canonicalizes line endings
// so formatting-only differences share a fingerprint.
func normalizePrompt(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Group serializes concurrent generations that share a fingerprint. The
// second caller waits on the first caller's in-flight result instead of
// issuing a duplicate upstream call.
type Group struct {
	sf singleflight.Group
}

// Do runs fn under the fingerprint's flight. shared is true when the result
// was produced by another caller's in-flight invocation.
func (g *Group) Do(fingerprint string, fn func() (*models.GenerationResult, error)) (result *models.GenerationResult, shared bool, err error) {
	v, err, shared := g.sf.Do(fingerprint, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*models.GenerationResult), shared, nil
}

// Package metrics exposes Prometheus instrumentation for the generation
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the generation pipeline.
type Metrics struct {
	GenerationsTotal *prometheus.CounterVec
	LatencySeconds   *prometheus.HistogramVec
	TokensTotal      *prometheus.CounterVec
	CacheHitsTotal   *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	ExtractionsTotal *prometheus.CounterVec
}

// Default creates metrics registered on the default registerer.
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// New creates a metric set registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeshift_generations_total",
				Help: "Total generation calls",
			},
			[]string{"purpose", "provider", "model", "status"},
		),
		LatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modeshift_generation_latency_seconds",
				Help:    "End to end generation latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"purpose", "provider", "model"},
		),
		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeshift_tokens_total",
				Help: "Total tokens consumed upstream",
			},
			[]string{"direction", "provider", "model"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeshift_cache_hits_total",
				Help: "Responses served from the cache",
			},
			[]string{"purpose"},
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeshift_fallbacks_total",
				Help: "Generations served by a non-primary model",
			},
			[]string{"purpose", "provider", "model"},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeshift_extractions_total",
				Help: "Structured extractions by strategy",
			},
			[]string{"purpose", "strategy", "confidence"},
		),
	}
}

// RecordGeneration records one completed (or failed) generation call.
func (m *Metrics) RecordGeneration(purpose, provider, model, status string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(purpose, provider, model, status).Inc()
	m.LatencySeconds.WithLabelValues(purpose, provider, model).Observe(latencySeconds)
}

// RecordTokens records upstream token consumption.
func (m *Metrics) RecordTokens(provider, model string, input, output int) {
	if m == nil {
		return
	}
	m.TokensTotal.WithLabelValues("input", provider, model).Add(float64(input))
	m.TokensTotal.WithLabelValues("output", provider, model).Add(float64(output))
}

// RecordCacheHit records a response served from the cache.
func (m *Metrics) RecordCacheHit(purpose string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(purpose).Inc()
}

// RecordFallback records a generation served by a non-primary model.
func (m *Metrics) RecordFallback(purpose, provider, model string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(purpose, provider, model).Inc()
}

// RecordExtraction records the strategy and confidence of one extraction.
func (m *Metrics) RecordExtraction(purpose, strategy, confidence string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(purpose, strategy, confidence).Inc()
}

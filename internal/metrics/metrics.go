// Package metrics exports pipeline metrics in Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raine/trendgal/internal/fashion"
)

const (
	namespace = "trendgal"
	subsystem = "pipeline"
)

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Pipeline records pipeline events on its own registry. It implements
// fashion.Observer.
type Pipeline struct {
	registry *prometheus.Registry

	catalogSearches *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	generations     *prometheus.CounterVec
	generateLatency *prometheus.HistogramVec
	detectedItems   prometheus.Histogram
	stageLatency    *prometheus.HistogramVec
}

func NewPipeline() *Pipeline {
	p := &Pipeline{registry: prometheus.NewRegistry()}

	p.catalogSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "catalog_searches_total",
			Help:      "Catalog searches by outcome",
		},
		[]string{"outcome"},
	)

	p.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fallbacks_total",
			Help:      "Fallback tiers entered",
		},
		[]string{"tier"},
	)

	p.generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_generations_total",
			Help:      "Query generation calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	p.generateLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_latency_seconds",
			Help:      "Query generation latency in seconds",
			Buckets:   latencyBuckets,
		},
		[]string{"provider"},
	)

	p.detectedItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detected_items",
			Help:      "Items surviving detection per image",
			Buckets:   prometheus.LinearBuckets(0, 1, fashion.MaxDetectedItems+1),
		},
	)

	p.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_latency_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   latencyBuckets,
		},
		[]string{"stage"},
	)

	p.registry.MustRegister(
		p.catalogSearches,
		p.fallbacks,
		p.generations,
		p.generateLatency,
		p.detectedItems,
		p.stageLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

func (p *Pipeline) ItemsDetected(n int) {
	p.detectedItems.Observe(float64(n))
}

func (p *Pipeline) CatalogSearched(outcome string) {
	p.catalogSearches.WithLabelValues(outcome).Inc()
}

func (p *Pipeline) FallbackUsed(tier string) {
	p.fallbacks.WithLabelValues(tier).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	p.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// Handler returns the HTTP handler for the metrics endpoint.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// NamedGenerator is a text generator that reports its provider name.
type NamedGenerator interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// InstrumentedGenerator counts and times calls to a generator.
type InstrumentedGenerator struct {
	gen     NamedGenerator
	metrics *Pipeline
}

// Instrument wraps gen so its calls are recorded in p.
func (p *Pipeline) Instrument(gen NamedGenerator) *InstrumentedGenerator {
	return &InstrumentedGenerator{gen: gen, metrics: p}
}

func (g *InstrumentedGenerator) Name() string { return g.gen.Name() }

func (g *InstrumentedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.gen.GenerateText(ctx, prompt)

	provider := g.gen.Name()
	g.metrics.generateLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metrics.generations.WithLabelValues(provider, status).Inc()

	return text, err
}

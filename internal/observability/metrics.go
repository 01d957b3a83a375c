// Package observability exposes fetch metrics over Prometheus and sets up
// OpenTelemetry tracing.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the fetch pipeline metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Fetches        *prometheus.CounterVec
	FetchDurations *prometheus.HistogramVec
	Rows           prometheus.Histogram
	CacheHits      prometheus.Counter
}

// NewCollector registers metrics against reg, defaulting to the global
// registry when nil. Registering twice against one registry returns the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fetches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tlmscope_fetches_total",
		Help: "Telemetry fetches by source mode and outcome.",
	}, []string{"mode", "outcome"}), "tlmscope_fetches_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tlmscope_fetch_duration_seconds",
		Help:    "Telemetry fetch latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"}), "tlmscope_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	rows, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tlmscope_fetch_rows",
		Help:    "Rows returned by successful fetches.",
		Buckets: prometheus.ExponentialBuckets(10, 10, 7),
	}), "tlmscope_fetch_rows")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tlmscope_cache_hits_total",
		Help: "Fetches answered from the session cache.",
	}), "tlmscope_cache_hits_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Fetches:        fetches,
		FetchDurations: durations,
		Rows:           rows,
		CacheHits:      hits,
	}, nil
}

// ObserveFetch records one completed fetch. A nil collector is a no-op.
func (c *Collector) ObserveFetch(mode, outcome string, elapsed time.Duration, rows int) {
	if c == nil {
		return
	}
	c.Fetches.WithLabelValues(mode, outcome).Inc()
	c.FetchDurations.WithLabelValues(mode).Observe(elapsed.Seconds())
	if outcome == "success" {
		c.Rows.Observe(float64(rows))
	}
}

// CacheHit counts a fetch served from cache.
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// Handler exposes a /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

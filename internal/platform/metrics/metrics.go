// Package metrics holds the Prometheus collectors of the summary pipeline.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "second_brain"

type Metrics struct {
	summaries        *prometheus.CounterVec
	summaryDuration  *prometheus.HistogramVec
	cascadeStrategy  *prometheus.CounterVec
	groupResolution  *prometheus.CounterVec
	messagesIngested *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	gatherer         prometheus.Gatherer
}

// MustNew registers the collectors on reg. When reg is also a Gatherer the
// /metrics handler serves it.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "requests_total",
			Help:      "Group summary requests by outcome.",
		}, []string{"outcome"}),
		summaryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "duration_seconds",
			Help:      "Time spent generating a group summary.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"engine"}),
		cascadeStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "cascade_strategy_total",
			Help:      "Message query strategy that produced the summary input.",
		}, []string{"strategy"}),
		groupResolution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "groups",
			Name:      "resolutions_total",
			Help:      "Group identity resolutions by source.",
		}, []string{"source"}),
		messagesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "ingested_total",
			Help:      "Messages written to the store by source.",
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "cache_lookups_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
	}
	m.summaries = register(reg, m.summaries)
	m.summaryDuration = register(reg, m.summaryDuration)
	m.cascadeStrategy = register(reg, m.cascadeStrategy)
	m.groupResolution = register(reg, m.groupResolution)
	m.messagesIngested = register(reg, m.messagesIngested)
	m.cacheLookups = register(reg, m.cacheLookups)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

func (m *Metrics) ObserveSummary(outcome, engine string, d time.Duration) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(outcome).Inc()
	if engine != "" {
		m.summaryDuration.WithLabelValues(engine).Observe(d.Seconds())
	}
}

func (m *Metrics) IncStrategy(strategy string) {
	if m == nil {
		return
	}
	m.cascadeStrategy.WithLabelValues(strategy).Inc()
}

func (m *Metrics) IncGroupResolution(source string) {
	if m == nil {
		return
	}
	m.groupResolution.WithLabelValues(source).Inc()
}

func (m *Metrics) IncIngested(source string) {
	if m == nil {
		return
	}
	m.messagesIngested.WithLabelValues(source).Inc()
}

func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// register reuses an existing collector so a registry can back several
// Metrics values.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

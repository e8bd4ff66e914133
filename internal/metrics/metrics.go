// Package metrics holds the Prometheus counters describing an exploration
// session. Each session owns its own registry so tests and concurrent runs
// never share state.
package metrics

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision sources.
const (
	SourceRecommender = "recommender"
	SourceHeuristic   = "heuristic"
)

// Metrics is safe to use through a nil pointer; every recorder is a no-op then.
type Metrics struct {
	registry *prometheus.Registry

	decisions           *prometheus.CounterVec
	recommenderFailures *prometheus.CounterVec
	actions             *prometheus.CounterVec
	guardrailRemoved    *prometheus.CounterVec
	recommenderLatency  prometheus.Histogram
}

// New creates a Metrics with a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webexplore_decisions_total",
				Help: "Element choices by decision source.",
			},
			[]string{"source"},
		),
		recommenderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webexplore_recommender_failures_total",
				Help: "Recommender calls that fell back to the heuristic.",
			},
			[]string{"class", "hint"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webexplore_actions_total",
				Help: "Browser actions by result.",
			},
			[]string{"result"},
		),
		guardrailRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webexplore_guardrail_removed_total",
				Help: "Candidate elements removed, by guardrail rule.",
			},
			[]string{"rule"},
		),
		recommenderLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webexplore_recommender_latency_ms",
				Help:    "Recommender call latency in milliseconds.",
				Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
			},
		),
	}

	m.registry.MustRegister(
		m.decisions,
		m.recommenderFailures,
		m.actions,
		m.guardrailRemoved,
		m.recommenderLatency,
	)
	return m
}

// Decision counts one element choice made by source.
func (m *Metrics) Decision(source string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(source).Inc()
}

// RecommenderFailure counts one fallback caused by the recommender.
func (m *Metrics) RecommenderFailure(class, hint string) {
	if m == nil {
		return
	}
	m.recommenderFailures.WithLabelValues(class, hint).Inc()
}

// RecommenderLatency observes one recommender round trip.
func (m *Metrics) RecommenderLatency(ms float64) {
	if m == nil {
		return
	}
	m.recommenderLatency.Observe(ms)
}

// Action counts one executed browser action.
func (m *Metrics) Action(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.actions.WithLabelValues(result).Inc()
}

// GuardrailRemoved adds n removals for rule.
func (m *Metrics) GuardrailRemoved(rule string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.guardrailRemoved.WithLabelValues(rule).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Counters flattens every counter series into "name{labels}" -> value,
// used for the end-of-session summary.
func (m *Metrics) Counters() (map[string]float64, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			key := mf.GetName()
			labels := metric.GetLabel()
			if len(labels) > 0 {
				pairs := make([]string, 0, len(labels))
				for _, lp := range labels {
					pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
				}
				sort.Strings(pairs)
				key += "{"
				for i, p := range pairs {
					if i > 0 {
						key += ","
					}
					key += p
				}
				key += "}"
			}
			out[key] = metric.GetCounter().GetValue()
		}
	}
	return out, nil
}

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.Decision(SourceRecommender)
	m.Decision(SourceHeuristic)
	m.Decision(SourceHeuristic)
	m.RecommenderFailure("unavailable", "server unreachable")
	m.Action(true)
	m.Action(false)
	m.Action(false)
	m.GuardrailRemoved("visited", 3)
	m.GuardrailRemoved("visited", 0)
	m.RecommenderLatency(120)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues(SourceHeuristic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommenderFailures.WithLabelValues("unavailable", "server unreachable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.guardrailRemoved.WithLabelValues("visited")))

	counters, err := m.Counters()
	require.NoError(t, err)
	assert.Equal(t, 1.0, counters["webexplore_decisions_total{source=recommender}"])
	assert.Equal(t, 1.0, counters["webexplore_actions_total{result=success}"])
	assert.NotContains(t, counters, "webexplore_recommender_latency_ms")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Decision(SourceHeuristic)
	m.RecommenderFailure("malformed", "generic")
	m.Action(true)
	m.GuardrailRemoved("visited", 1)
	m.RecommenderLatency(1)

	counters, err := m.Counters()
	assert.NoError(t, err)
	assert.Nil(t, counters)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Action(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `webexplore_actions_total{result="success"} 1`))
}

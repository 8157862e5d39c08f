package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

func trial(n int, value float64, state optimization.TrialState, trades int) optimization.Trial {
	return optimization.Trial{
		Number:   n,
		Point:    optimization.Point{"n": float64(n)},
		Value:    value,
		State:    state,
		Trades:   trades,
		Duration: 10 * time.Millisecond,
	}
}

func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	require.NoError(t, (<-ch).Write(&m))
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestMonitor_ObserveTrial(t *testing.T) {
	m := NewMonitor(nil)
	m.Begin("tpe", 10)

	m.ObserveTrial("tpe", trial(1, 1.5, optimization.TrialComplete, 4))
	m.ObserveTrial("tpe", trial(2, 0, optimization.TrialDegenerate, 0))
	m.ObserveTrial("tpe", trial(3, -1e9, optimization.TrialPenalized, 0))
	m.ObserveTrial("tpe", trial(4, 2.5, optimization.TrialComplete, 6))

	assert.Equal(t, 2.0, value(t, m.Metrics.trialsTotal.WithLabelValues("tpe", "complete")))
	assert.Equal(t, 1.0, value(t, m.Metrics.trialsTotal.WithLabelValues("tpe", "degenerate")))
	assert.Equal(t, 1.0, value(t, m.Metrics.trialsTotal.WithLabelValues("tpe", "penalized")))
	assert.Equal(t, 2.5, value(t, m.Metrics.bestObjective.WithLabelValues("tpe")))
	assert.Equal(t, 2.5, value(t, m.Metrics.lastObjective.WithLabelValues("tpe")))

	snap := m.Progress.Snapshot()
	require.Len(t, snap.Searches, 1)
	s := snap.Searches[0]
	assert.Equal(t, 10, s.Budget)
	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Degenerate)
	assert.Equal(t, 1, s.Penalized)
	require.NotNil(t, s.BestObjective)
	assert.Equal(t, 2.5, *s.BestObjective)
	assert.Equal(t, "n=4", s.BestPoint)
	assert.Equal(t, 6, s.BestTrades)
	assert.Equal(t, "running", snap.Status)

	m.Finish("tpe")
	assert.Equal(t, "done", m.Progress.Snapshot().Status)
}

func TestProgress_TiesKeepEarlierBest(t *testing.T) {
	p := NewProgress()
	assert.True(t, p.ObserveTrial("ga", trial(1, 1, optimization.TrialComplete, 1)))
	assert.False(t, p.ObserveTrial("ga", trial(2, 1, optimization.TrialComplete, 1)))
	assert.Equal(t, "n=1", p.Snapshot().Searches[0].BestPoint)
}

func TestHandler(t *testing.T) {
	m := NewMonitor(nil)
	m.Begin("lbfgs", 5)
	m.ObserveTrial("lbfgs", trial(1, 0.5, optimization.TrialComplete, 2))
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status ProgressStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Len(t, status.Searches, 1)
	assert.Equal(t, "lbfgs", status.Searches[0].Searcher)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp2.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "signal_optimizer_trials_total")

	resp3, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRegistry(reg), reg
}

func TestContentOutcome(t *testing.T) {
	tests := []struct {
		method content.Method
		want   string
	}{
		{content.MethodRejected, OutcomeRejected},
		{content.MethodTreeSitter, OutcomeTreeSitter},
		{content.MethodFallback, OutcomeFallback},
		{content.MethodNone, OutcomeFallback},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentOutcome(content.Metrics{Method: tt.method}), "method %q", tt.method)
	}
}

func TestRegistry_ObserveContent(t *testing.T) {
	r, _ := newTestRegistry(t)

	r.ObserveContent(content.Metrics{Method: content.MethodTreeSitter}, 10*time.Millisecond)
	r.ObserveContent(content.Metrics{Method: content.MethodFallback, TimedOut: true}, time.Second)
	r.ObserveContent(content.Metrics{Method: content.MethodRejected}, time.Millisecond)
	r.ObserveSkipped(OutcomeBudget)
	r.ObserveSkipped(OutcomeBudget)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeTreeSitter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeBudget)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.timeouts))
	assert.Equal(t, 1, testutil.CollectAndCount(r.contentSeconds))
}

func TestRegistry_ObserveSkippedTimeout(t *testing.T) {
	r, _ := newTestRegistry(t)

	r.ObserveSkipped(OutcomeTimeout)
	r.ObserveSkipped(OutcomeUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues(OutcomeUnavailable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.timeouts))
}

func TestRegistry_ObserveCacheAndChanges(t *testing.T) {
	r, _ := newTestRegistry(t)

	r.ObserveCache("file_hotspots", true)
	r.ObserveCache("file_hotspots", false)
	r.ObserveCache("bus_factor", false)
	r.ObserveChanges(3, 10, 2, 1)
	r.ObserveRun(2 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("file_hotspots", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("file_hotspots", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("bus_factor", "miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.commits))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.changes.WithLabelValues(ChangeProcessed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.changes.WithLabelValues(ChangeExcluded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.changes.WithLabelValues(ChangeAnomalous)))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveContent(content.Metrics{}, time.Second)
		r.ObserveSkipped(OutcomeUnavailable)
		r.ObserveCache("bus_factor", true)
		r.ObserveChanges(1, 1, 1, 1)
		r.ObserveRun(time.Second)
	})
}

func TestServer_Handler(t *testing.T) {
	r, reg := newTestRegistry(t)
	r.ObserveCache("bus_factor", true)

	srv := NewServer("127.0.0.1:0", reg, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `changerisk_cache_lookups_total{result="hit",table="bus_factor"} 1`)
}

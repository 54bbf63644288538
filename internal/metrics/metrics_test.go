package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest("/api/v1/query", http.MethodPost, 200, 30*time.Millisecond)
	c.ObserveRequest("/api/v1/query", http.MethodPost, 200, 10*time.Millisecond)
	c.ObserveRequest("", http.MethodGet, 404, time.Millisecond)
	c.ObserveStage(StageTranslate, OutcomeOK, time.Second)
	c.ObserveStage(StageSynthesize, OutcomeDegraded, time.Second)
	c.ObserveStatement("read")
	c.AuditDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("/api/v1/query", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stages.WithLabelValues(StageSynthesize, OutcomeDegraded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statements.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.auditDrops))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRequest("/x", "GET", 200, time.Millisecond)
		c.ObserveStage(StageExecute, OutcomeError, time.Millisecond)
		c.ObserveStatement("mutation")
		c.AuditDropped()
	})
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveStatement("mutation")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `sqlchat_statements_total{kind="mutation"} 1`))
}

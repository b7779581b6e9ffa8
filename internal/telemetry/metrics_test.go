package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveToolRecordsCountAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveTool("stats_load", true, 150*time.Millisecond)
	m.ObserveTool("stats_load", false, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("stats_load", "success")); got != 1 {
		t.Errorf("success calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("stats_load", "failure")); got != 1 {
		t.Errorf("failure calls = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.toolDuration, "courtside_tool_duration_seconds"); got != 1 {
		t.Errorf("tool duration series = %d, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("success", time.Second)
	m.ObserveTool("x", true, time.Millisecond)
	m.ObserveDispatch("w", false)
	m.ObserveContextCache(true)
}

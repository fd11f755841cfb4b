package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.IncItemSuccess("client", "create")
	m.IncItemFailure("quote", "delete")
	m.SetPending(4)
	m.ObserveDrain("ok", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.itemSuccess.WithLabelValues("client", "create")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemFailure.WithLabelValues("quote", "delete")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.pending); got != 4 {
		t.Fatalf("expected pending gauge 4, got %v", got)
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.IncItemSuccess("client", "create")
	m.SetPending(1)

	empty := NewSyncMetrics(nil)
	empty.IncItemFailure("", "")
	empty.ObserveDrain("", time.Second)
}

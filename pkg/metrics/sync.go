package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records drain outcomes for the sync queue.
type SyncMetrics struct {
	drainDuration *prometheus.HistogramVec
	itemSuccess   *prometheus.CounterVec
	itemFailure   *prometheus.CounterVec
	pending       prometheus.Gauge
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	drainDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_drain_duration_seconds",
		Help:    "Duration of sync queue drains in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	itemSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_item_success",
		Help: "Queue items replayed successfully.",
	}, []string{"kind", "action"})
	itemFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_item_failure",
		Help: "Queue item replays that failed.",
	}, []string{"kind", "action"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_pending_items",
		Help: "Queue items awaiting replay.",
	})
	reg.MustRegister(drainDuration, itemSuccess, itemFailure, pending)
	return &SyncMetrics{
		drainDuration: drainDuration,
		itemSuccess:   itemSuccess,
		itemFailure:   itemFailure,
		pending:       pending,
	}
}

// ObserveDrain records the duration of one drain pass.
func (s *SyncMetrics) ObserveDrain(result string, duration time.Duration) {
	if s == nil || s.drainDuration == nil {
		return
	}
	s.drainDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncItemSuccess counts a successfully replayed item.
func (s *SyncMetrics) IncItemSuccess(kind, action string) {
	if s == nil || s.itemSuccess == nil {
		return
	}
	s.itemSuccess.WithLabelValues(normalizeLabel(kind), normalizeLabel(action)).Inc()
}

// IncItemFailure counts a failed replay.
func (s *SyncMetrics) IncItemFailure(kind, action string) {
	if s == nil || s.itemFailure == nil {
		return
	}
	s.itemFailure.WithLabelValues(normalizeLabel(kind), normalizeLabel(action)).Inc()
}

// SetPending publishes the current pending-queue depth.
func (s *SyncMetrics) SetPending(count int64) {
	if s == nil || s.pending == nil {
		return
	}
	s.pending.Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

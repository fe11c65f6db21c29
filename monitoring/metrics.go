package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	waitingCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lunch_queue_waiting_total",
			Help: "Current number of waiting entries per session",
		},
		[]string{"session_id"},
	)

	inProgressCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lunch_queue_in_progress_total",
			Help: "Entries occupying a concurrency slot (notified, ready or at lunch) per session",
		},
		[]string{"session_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunch_queue_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "outcome"},
	)

	notifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lunch_queue_notify_failures_total",
			Help: "Notification sends that failed and were left for the next pass",
		},
	)

	lunchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lunch_duration_seconds",
			Help:    "Time between lunch start and finish",
			Buckets: prometheus.LinearBuckets(300, 300, 10),
		},
	)
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackOperation(operation, outcome string) {
	queueOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Monitor) TrackNotifyFailure() {
	notifyFailures.Inc()
}

func (m *Monitor) TrackLunchDuration(d time.Duration) {
	lunchDuration.Observe(d.Seconds())
}

func (m *Monitor) SetQueueDepth(sessionID string, waiting, inProgress int) {
	waitingCount.WithLabelValues(sessionID).Set(float64(waiting))
	inProgressCount.WithLabelValues(sessionID).Set(float64(inProgress))
}

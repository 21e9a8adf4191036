package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProbesTotal counts finished probes by result.
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicewatch",
			Name:      "probes_total",
			Help:      "Total number of finished probes",
		},
		[]string{"result"},
	)

	// ProbeDuration observes probe round-trip time.
	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "devicewatch",
			Name:      "probe_duration_seconds",
			Help:      "Duration of a single probe",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// ActiveTasks is the number of running poll tasks.
	ActiveTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "devicewatch",
			Name:      "poll_tasks_active",
			Help:      "Number of running poll tasks",
		},
	)

	// TaskStartFailures counts devices left without poller.
	TaskStartFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devicewatch",
			Name:      "poll_task_start_failures_total",
			Help:      "Total number of poll tasks which could not be started",
		},
	)

	// NotificationsDropped counts observations not delivered to subscribers.
	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicewatch",
			Name:      "notifications_dropped_total",
			Help:      "Total number of status notifications dropped because of full buffer",
		},
		[]string{"consumer"},
	)

	// Devices is the number of registered devices.
	Devices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "devicewatch",
			Name:      "devices",
			Help:      "Number of registered devices",
		},
	)

	once sync.Once
)

const (
	ResultActive   = "active"
	ResultInactive = "inactive"
	ResultError    = "error"
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is safe to call it multiple times.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(
			ProbesTotal,
			ProbeDuration,
			ActiveTasks,
			TaskStartFailures,
			NotificationsDropped,
			Devices,
		)
	})
}

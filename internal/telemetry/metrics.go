package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	SchedulerTicks      = prometheus.NewCounter(prometheus.CounterOpts{Name: "scheduler_ticks_total", Help: "Lifecycle scheduler ticks"})
	AutoTransitions     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "scheduler_transitions_total", Help: "Flights moved by the scheduler"}, []string{"to"})
	AutoTransitionFails = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "scheduler_transition_failures_total", Help: "Scheduler transitions that failed and were skipped"}, []string{"to"})

	TasksSubmitted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "tasks_submitted_total", Help: "Jobs submitted to the executor"})
	TasksCompleted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "tasks_completed_total", Help: "Jobs completed successfully"})
	TasksFailed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "tasks_failed_total", Help: "Jobs that failed"})
	TaskQueueDepth  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "tasks_queue_depth", Help: "Jobs waiting for the worker"})
	TaskRecords     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "tasks_records", Help: "Task records held for polling"})
	TaskRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "tasks_run_seconds", Help: "Job execution time", Buckets: prometheus.DefBuckets})

	BookingsAdmitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "bookings_admitted_total", Help: "Booking requests accepted for processing"})
	BookingsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bookings_rejected_total", Help: "Booking requests refused at admission or persistence"}, []string{"reason"})

	NotificationsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notifications_emitted_total", Help: "Lifecycle events dispatched"}, []string{"event"})
	NotificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{Name: "notifications_dropped_total", Help: "Events dropped for slow subscribers or failed sinks"})
	Subscribers          = prometheus.NewGauge(prometheus.GaugeOpts{Name: "notify_subscribers", Help: "Connected live subscribers"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			SchedulerTicks,
			AutoTransitions,
			AutoTransitionFails,
			TasksSubmitted,
			TasksCompleted,
			TasksFailed,
			TaskQueueDepth,
			TaskRecords,
			TaskRunDuration,
			BookingsAdmitted,
			BookingsRejected,
			NotificationsEmitted,
			NotificationsDropped,
			Subscribers,
		)
	})
	return promhttp.Handler()
}

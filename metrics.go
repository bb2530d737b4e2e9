package raypool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for a WorkerPool.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WorkersSpawned   prometheus.Counter
	WorkersRetired   prometheus.Counter
	IdleWorkers      prometheus.Gauge
	BusyWorkers      prometheus.Gauge
	TasksDispatched  prometheus.Counter
	TasksCompleted   prometheus.Counter
	TasksFaulted     prometheus.Counter
	DispatchFailures prometheus.Counter
	TaskDuration     prometheus.Histogram
}

// NewMetrics creates pool collectors under namespace and registers them
// with reg. If reg is nil the collectors are created but not registered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	const subsystem = "worker_pool"
	return &Metrics{
		WorkersSpawned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers_spawned_total",
			Help:      "Total number of workers spawned",
		}),
		WorkersRetired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers_retired_total",
			Help:      "Total number of workers retired after a fault, failed post or shutdown",
		}),
		IdleWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "idle_workers",
			Help:      "Current number of idle workers",
		}),
		BusyWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "busy_workers",
			Help:      "Current number of workers running a task",
		}),
		TasksDispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_dispatched_total",
			Help:      "Total number of task handles posted to workers",
		}),
		TasksCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks that reported completion",
		}),
		TasksFaulted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_faulted_total",
			Help:      "Total number of tasks that faulted on their worker",
		}),
		DispatchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_failures_total",
			Help:      "Total number of dispatches that failed to spawn or post",
		}),
		TaskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_duration_seconds",
			Help:      "Time from dispatch to completion report",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) spawned() {
	if m != nil {
		m.WorkersSpawned.Inc()
		m.IdleWorkers.Inc()
	}
}

func (m *Metrics) dispatched() {
	if m != nil {
		m.TasksDispatched.Inc()
		m.IdleWorkers.Dec()
		m.BusyWorkers.Inc()
	}
}

func (m *Metrics) completed(since time.Time) {
	if m != nil {
		m.TasksCompleted.Inc()
		m.TaskDuration.Observe(time.Since(since).Seconds())
	}
}

func (m *Metrics) faulted() {
	if m != nil {
		m.TasksFaulted.Inc()
	}
}

func (m *Metrics) dispatchFailed() {
	if m != nil {
		m.DispatchFailures.Inc()
	}
}

// reclaimed moves a worker that finished a task from busy back to idle.
func (m *Metrics) reclaimed() {
	if m != nil {
		m.BusyWorkers.Dec()
		m.IdleWorkers.Inc()
	}
}

// retired records a worker leaving the pool for good. wasIdle says which
// gauge it was counted in.
func (m *Metrics) retired(wasIdle bool) {
	if m == nil {
		return
	}
	m.WorkersRetired.Inc()
	if wasIdle {
		m.IdleWorkers.Dec()
	} else {
		m.BusyWorkers.Dec()
	}
}

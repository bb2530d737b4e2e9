package raypool

import "log/slog"

// PoolOption configures a WorkerPool during creation.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	pool, err := raypool.NewWorkerPool(4,
//	    raypool.WithName("render"),
//	    raypool.WithMetrics(raypool.NewMetrics("raydemo", reg)),
//	)
type PoolOption func(*poolOptions)

// PoolHooks let callers observe and interfere with pool internals.
// Any hook may be nil.
type PoolHooks struct {
	// BeforeSpawn runs before a worker with the given id is started.
	// A non-nil error aborts the spawn.
	BeforeSpawn func(workerID int) error

	// BeforePost runs before a task handle is posted to a worker.
	// A non-nil error makes the post fail as if the worker were unreachable.
	BeforePost func(workerID int, task TaskID) error

	// OnFault runs after a task faulted and its worker was retired.
	OnFault func(err *FaultError)
}

// poolOptions holds optional configuration for WorkerPool creation.
type poolOptions struct {
	name    string
	logger  *slog.Logger
	metrics *Metrics
	hooks   PoolHooks
}

func defaultPoolOptions() poolOptions {
	return poolOptions{
		name: "default",
	}
}

// WithName labels the pool in log records.
func WithName(name string) PoolOption {
	return func(o *poolOptions) {
		o.name = name
	}
}

// WithLogger sets the pool's logger. Without it the pool uses Logger() as
// it was at construction time.
func WithLogger(l *slog.Logger) PoolOption {
	return func(o *poolOptions) {
		o.logger = l
	}
}

// WithMetrics attaches Prometheus collectors to the pool.
func WithMetrics(m *Metrics) PoolOption {
	return func(o *poolOptions) {
		o.metrics = m
	}
}

// WithHooks installs pool hooks.
func WithHooks(h PoolHooks) PoolOption {
	return func(o *poolOptions) {
		o.hooks = h
	}
}

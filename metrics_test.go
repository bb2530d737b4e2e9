package raypool

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("test", reg)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"test_worker_pool_workers_spawned_total",
		"test_worker_pool_idle_workers",
		"test_worker_pool_busy_workers",
		"test_worker_pool_task_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.spawned()
	m.dispatched()
	m.faulted()
	m.dispatchFailed()
	m.reclaimed()
	m.retired(true)
}

func TestMetrics_PoolLifecycle(t *testing.T) {
	m := NewMetrics("lifecycle", prometheus.NewRegistry())
	p := newTestPool(t, 2, WithMetrics(m))

	if got := testutil.ToFloat64(m.WorkersSpawned); got != 2 {
		t.Errorf("spawned = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.IdleWorkers); got != 2 {
		t.Errorf("idle = %v, want 2", got)
	}

	for range 5 {
		fut, err := RunNotify(p, func() int { return 1 })
		if err != nil {
			t.Fatalf("RunNotify: %v", err)
		}
		if _, err := await(t, fut); err != nil {
			t.Fatalf("Await: %v", err)
		}
	}
	waitFor(t, "workers idle", func() bool { return p.Idle() == 2 })

	if got := testutil.ToFloat64(m.TasksDispatched); got != 5 {
		t.Errorf("dispatched = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.TasksCompleted); got != 5 {
		t.Errorf("completed = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.BusyWorkers); got != 0 {
		t.Errorf("busy = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.IdleWorkers); got != 2 {
		t.Errorf("idle = %v, want 2", got)
	}

	fut, err := RunNotify(p, func() int { panic("x") })
	if err != nil {
		t.Fatalf("RunNotify: %v", err)
	}
	_, _ = await(t, fut)

	if got := testutil.ToFloat64(m.TasksFaulted); got != 1 {
		t.Errorf("faulted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WorkersRetired); got != 1 {
		t.Errorf("retired = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IdleWorkers); got != 1 {
		t.Errorf("idle after fault = %v, want 1", got)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := testutil.ToFloat64(m.WorkersRetired); got != 2 {
		t.Errorf("retired after Close = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.IdleWorkers); got != 0 {
		t.Errorf("idle after Close = %v, want 0", got)
	}
}

package raypool

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/raypool/internal/parallel"
)

// WorkerPool owns a set of goroutine workers and ships closures to them by
// message passing.
//
// Each dispatch takes an idle worker, or spawns a new one when none is idle,
// registers the closure in a task table and posts only its handle. When the
// worker reports completion the worker returns to the idle set. The pool
// grows on demand and never shrinks except through faults and Shutdown.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	name    string
	log     *slog.Logger
	metrics *Metrics
	hooks   PoolHooks

	// tasks is shipped to every worker at spawn; it is how a bare handle
	// becomes a closure again on the far side.
	tasks *parallel.TaskTable

	mu      sync.Mutex
	idle    []*Worker
	live    map[int]*Worker
	nextID  int
	closing bool

	drained   chan struct{}
	drainOnce sync.Once
	listeners sync.WaitGroup
}

// NewWorkerPool creates a pool and eagerly spawns initial idle workers.
// If any spawn fails the workers already started are retired and the error
// is returned.
func NewWorkerPool(initial int, opts ...PoolOption) (*WorkerPool, error) {
	if initial < 0 {
		return nil, fmt.Errorf("raypool: negative pool size %d", initial)
	}

	o := defaultPoolOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	p := &WorkerPool{
		name:    o.name,
		log:     o.logger.With("pool", o.name),
		metrics: o.metrics,
		hooks:   o.hooks,
		tasks:   parallel.NewTaskTable(),
		idle:    make([]*Worker, 0, initial),
		live:    make(map[int]*Worker, initial),
		drained: make(chan struct{}),
	}

	for range initial {
		w, err := p.spawn()
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.mu.Lock()
		p.idle = append(p.idle, w)
		p.mu.Unlock()
	}

	p.log.Info("worker pool started", "workers", initial)
	return p, nil
}

// Run dispatches work to a worker without waiting for it. The returned error
// only reports whether the dispatch itself succeeded.
func (p *WorkerPool) Run(work func()) error {
	return p.execute(work, func(error) {})
}

// RunNotify dispatches work and returns a Future resolved with its result.
// The future is rejected with a *FaultError if work panics.
//
// RunNotify is a function rather than a method because Go methods cannot
// declare type parameters.
func RunNotify[T any](p *WorkerPool, work func() T) (*Future[T], error) {
	return runNotify[T](p, parallel.NewCompletionSlot[T](), work)
}

// resultSlot is the single-value handoff between a task and its listener.
type resultSlot[T any] interface {
	Replace(v T) (T, bool)
	Take() (T, bool)
}

func runNotify[T any](p *WorkerPool, slot resultSlot[T], work func() T) (*Future[T], error) {
	if work == nil {
		return nil, ErrNilWork
	}

	fut := newFuture[T]()
	err := p.execute(func() {
		if _, ok := slot.Replace(work()); !ok {
			panic(ErrSlotContention)
		}
	}, func(err error) {
		settle(p, fut, slot, err)
	})
	if err != nil {
		return nil, err
	}
	return fut, nil
}

// settle completes fut from the listener once the task has reported.
func settle[T any](p *WorkerPool, fut *Future[T], slot resultSlot[T], err error) {
	if err != nil {
		fut.reject(err)
		return
	}
	v, ok := slot.Take()
	if !ok {
		p.log.Error("completion slot empty after done reply")
		fut.reject(ErrSlotContention)
		return
	}
	fut.resolve(v)
}

// execute is the dispatch path shared by Run and RunNotify. onFinish is
// called exactly once from the worker's listener: with nil after a done
// reply, or with the failure that lost the task.
func (p *WorkerPool) execute(work func(), onFinish func(error)) error {
	if work == nil {
		return ErrNilWork
	}

	w, err := p.acquire()
	if err != nil {
		p.metrics.dispatchFailed()
		p.log.Warn("dispatch failed: no worker", "error", err)
		return err
	}

	id := p.tasks.Register(work)
	w.task = id
	w.since = time.Now()
	w.onFinish = onFinish
	p.metrics.dispatched()

	if err := p.post(w, id); err != nil {
		// The handle never reached the worker: drop the work item here and
		// take the worker out of service.
		p.tasks.Discard(id)
		w.onFinish = nil
		p.metrics.dispatchFailed()
		p.log.Warn("dispatch failed: post", "worker", w.id, "task", id, "error", err)
		p.retire(w, false)
		return fmt.Errorf("%w: worker %d: %w", ErrDispatch, w.id, err)
	}

	p.log.Debug("dispatched", "worker", w.id, "task", id)
	return nil
}

func (p *WorkerPool) post(w *Worker, id TaskID) error {
	if h := p.hooks.BeforePost; h != nil {
		if err := h(w.id, id); err != nil {
			return err
		}
	}
	return w.post(id)
}

// acquire pops an idle worker or spawns a new one, and marks it busy.
func (p *WorkerPool) acquire() (*Worker, error) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		w.setState(WorkerBusy)
		p.mu.Unlock()
		return w, nil
	}
	p.mu.Unlock()

	w, err := p.spawn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	w.setState(WorkerBusy)
	return w, nil
}

// spawn starts a new worker and its listener. The worker is live but not in
// the idle set; the caller decides where it goes.
func (p *WorkerPool) spawn() (*Worker, error) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	id := p.nextID
	p.nextID++
	p.mu.Unlock()

	if h := p.hooks.BeforeSpawn; h != nil {
		if err := h(id); err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrSpawn, id, err)
		}
	}

	w := newWorker(id)

	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.live[id] = w
	p.mu.Unlock()

	go w.main()
	w.boot <- p.tasks

	p.listeners.Add(1)
	go p.listen(w)

	p.metrics.spawned()
	p.log.Debug("spawned worker", "worker", id)
	return w, nil
}

// listen handles every reply from one worker for the worker's lifetime.
func (p *WorkerPool) listen(w *Worker) {
	defer p.listeners.Done()
	for r := range w.replies {
		p.onMessage(w, r)
	}
	if w.State() != WorkerRetired {
		p.retire(w, false)
	}
	// The worker is gone. A callback still registered here belongs to a
	// task that will never report.
	if cb := w.onFinish; cb != nil {
		w.onFinish = nil
		cb(fmt.Errorf("%w: worker %d task %d", ErrWorkerLost, w.id, w.task))
	}
}

func (p *WorkerPool) onMessage(w *Worker, r reply) {
	cb := w.onFinish
	w.onFinish = nil
	if cb == nil {
		p.log.Warn("unhandled message from worker", "worker", w.id, "task", r.task)
		return
	}

	switch r.kind {
	case replyFault:
		ferr := &FaultError{WorkerID: w.id, TaskID: r.task, Value: r.value}
		p.metrics.faulted()
		p.log.Warn("task faulted", "worker", w.id, "task", r.task, "panic", r.value)
		p.retire(w, false)
		cb(ferr)
		if h := p.hooks.OnFault; h != nil {
			h(ferr)
		}

	case replyDone:
		p.metrics.completed(w.since)
		cb(nil)
		p.reclaim(w)
	}
}

// reclaim returns a worker that finished its task to the idle set.
func (p *WorkerPool) reclaim(w *Worker) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		p.retire(w, false)
		return
	}
	if slices.Contains(p.idle, w) {
		p.mu.Unlock()
		panic(fmt.Sprintf("raypool: worker %d reclaimed while already idle", w.id))
	}
	w.setState(WorkerIdle)
	p.metrics.reclaimed()
	p.idle = append(p.idle, w)
	p.mu.Unlock()

	p.log.Debug("reclaimed worker", "worker", w.id)
}

// retire removes a worker from the pool for good.
func (p *WorkerPool) retire(w *Worker, wasIdle bool) {
	p.mu.Lock()
	delete(p.live, w.id)
	drained := p.closing && len(p.live) == 0
	p.mu.Unlock()

	w.setState(WorkerRetired)
	w.close()
	p.metrics.retired(wasIdle)
	p.log.Debug("retired worker", "worker", w.id)

	if drained {
		p.drainOnce.Do(func() { close(p.drained) })
	}
}

// Shutdown stops the pool. New dispatches fail with ErrPoolClosed, idle
// workers are retired at once and busy workers are retired as they report.
// Shutdown returns when every worker has gone, or with ctx's error if ctx
// ends first; in that case remaining workers still retire on completion.
// Shutdown is safe to call multiple times.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	first := !p.closing
	p.closing = true
	idle := p.idle
	p.idle = nil
	empty := len(p.live) == 0
	p.mu.Unlock()

	for _, w := range idle {
		p.retire(w, true)
	}
	if empty {
		p.drainOnce.Do(func() { close(p.drained) })
	}
	if first {
		p.log.Info("worker pool shutting down", "idle", len(idle))
	}

	// A finished drain wins over a ctx that is already done.
	select {
	case <-p.drained:
		p.listeners.Wait()
		return nil
	default:
	}
	select {
	case <-p.drained:
		p.listeners.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the pool down and waits for all workers to finish.
func (p *WorkerPool) Close() error {
	return p.Shutdown(context.Background())
}

// Name returns the pool's label.
func (p *WorkerPool) Name() string {
	return p.name
}

// Size returns the number of live workers, idle or busy.
func (p *WorkerPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Idle returns the number of idle workers.
func (p *WorkerPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Busy returns the number of workers currently lent to a task.
func (p *WorkerPool) Busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live) - len(p.idle)
}

// Pending returns the number of dispatched work items that no worker has
// taken yet. It drops back to zero once every posted handle is consumed, so
// it doubles as a leak check for failed dispatches.
func (p *WorkerPool) Pending() int {
	return p.tasks.Len()
}

// IdleWorkers returns a snapshot of the idle set.
func (p *WorkerPool) IdleWorkers() []*Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.idle)
}

package raypool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/raypool/internal/parallel"
)

// TaskID is the opaque handle posted to a worker in place of a work item.
type TaskID = parallel.TaskID

// WorkerState is the lifecycle state of a Worker.
type WorkerState int32

const (
	// WorkerIdle workers are owned by the pool and available for dispatch.
	WorkerIdle WorkerState = iota
	// WorkerBusy workers are lent to exactly one task.
	WorkerBusy
	// WorkerRetired workers have left the pool after a fault, a failed post
	// or shutdown. They never run another task.
	WorkerRetired
)

// String returns the state name.
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerBusy:
		return "busy"
	case WorkerRetired:
		return "retired"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// errWorkerClosed is returned when posting to a worker whose mailbox has
// been shut.
var errWorkerClosed = errors.New("worker mailbox closed")

// errMailboxFull is returned when posting to a worker that has not yet
// consumed its previous handle.
var errMailboxFull = errors.New("worker mailbox full")

// replyKind distinguishes messages a worker sends back to its pool.
type replyKind int

const (
	replyDone replyKind = iota
	replyFault
)

// reply is posted by a worker after each handle it receives.
type reply struct {
	kind  replyKind
	task  TaskID
	value any // recovered panic value for replyFault
}

// Worker is the identity of one background execution context: a goroutine
// that receives task handles through its mailbox and answers each with a
// done or fault reply.
type Worker struct {
	id    int
	state atomic.Int32

	// boot delivers the capability to resolve handles, once, at spawn.
	boot chan *parallel.TaskTable

	// inbox receives task handles. Capacity 1: a busy worker holds at
	// most the handle it is running.
	inbox chan TaskID

	// replies carries done/fault messages to the pool's listener.
	replies chan reply

	mu     sync.Mutex
	closed bool

	// Dispatch bookkeeping. Written by the dispatcher before the handle is
	// posted and read by the listener after the matching reply, so the
	// mailbox round trip orders the accesses.
	task     TaskID
	since    time.Time
	onFinish func(error)
}

func newWorker(id int) *Worker {
	return &Worker{
		id:      id,
		boot:    make(chan *parallel.TaskTable, 1),
		inbox:   make(chan TaskID, 1),
		replies: make(chan reply),
	}
}

// ID returns the worker's identifier, unique within its pool.
func (w *Worker) ID() int {
	return w.id
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

// main is the worker goroutine. It waits for its bootstrap capability and
// then serves handles until the mailbox is closed.
func (w *Worker) main() {
	defer close(w.replies)
	tasks := <-w.boot
	for id := range w.inbox {
		w.replies <- entryPoint(tasks, id)
	}
}

// entryPoint resolves id to its work item, invokes it once and reports the
// outcome. The work item is dropped on return.
func entryPoint(tasks *parallel.TaskTable, id TaskID) (r reply) {
	fn, ok := tasks.Take(id)
	if !ok {
		return reply{kind: replyFault, task: id, value: fmt.Errorf("unknown task handle %d", id)}
	}
	defer func() {
		if v := recover(); v != nil {
			r = reply{kind: replyFault, task: id, value: v}
		}
	}()
	fn()
	return reply{kind: replyDone, task: id}
}

// post delivers a task handle to the worker's mailbox without blocking.
func (w *Worker) post(id TaskID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWorkerClosed
	}
	select {
	case w.inbox <- id:
		return nil
	default:
		return errMailboxFull
	}
}

// close shuts the mailbox. The worker goroutine exits after its current
// task, if any, and then closes its reply channel.
func (w *Worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.inbox)
}

package raypool

import (
	"errors"
	"fmt"

	"github.com/gogpu/raypool/internal/parallel"
)

// Pool and render errors.
var (
	// ErrNilWork is returned when a nil work function is dispatched.
	ErrNilWork = errors.New("raypool: nil work")

	// ErrPoolClosed is returned by dispatches after Shutdown has begun.
	ErrPoolClosed = errors.New("raypool: pool closed")

	// ErrSpawn is returned when a new worker could not be started.
	ErrSpawn = errors.New("raypool: spawn worker")

	// ErrDispatch is returned when a task could not be handed to a worker,
	// either because no worker could be spawned or because the handle could
	// not be posted. The task is discarded and never runs.
	ErrDispatch = errors.New("raypool: dispatch failed")

	// ErrWorkerFault is wrapped by errors reporting a task that panicked on
	// its worker. The task's result is lost.
	ErrWorkerFault = errors.New("raypool: worker fault")

	// ErrWorkerLost is returned by a Future whose worker was retired before
	// it reported a result.
	ErrWorkerLost = errors.New("raypool: worker lost before reporting")

	// ErrSlotContention indicates two producers raced on one completion
	// slot. It is raised as a panic: it can only result from a programming
	// error.
	ErrSlotContention = errors.New("raypool: completion slot contention")

	// ErrInvalidConcurrency is returned by Render for a concurrency below 1.
	ErrInvalidConcurrency = errors.New("raypool: concurrency must be positive")

	// ErrInvalidSize is returned for non-positive image dimensions or a
	// buffer whose length does not match them.
	ErrInvalidSize = errors.New("raypool: invalid image size")
)

// FaultError describes a task that panicked on a worker.
type FaultError struct {
	WorkerID int
	TaskID   parallel.TaskID
	Value    any
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	return fmt.Sprintf("raypool: worker %d faulted running task %d: %v", e.WorkerID, e.TaskID, e.Value)
}

// Unwrap returns ErrWorkerFault, or the panic value if it is itself an
// error so callers can match either.
func (e *FaultError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrWorkerFault, err}
	}
	return []error{ErrWorkerFault}
}

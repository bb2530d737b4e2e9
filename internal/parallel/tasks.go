package parallel

import (
	"sync"
	"sync/atomic"
)

// TaskID is an opaque handle for a registered, not yet invoked work item.
// Handles are never reused within a table.
type TaskID uint64

// TaskTable owns work items between dispatch and invocation.
//
// The dispatcher registers a closure and ships only its TaskID across the
// execution boundary; the receiving context takes the closure back out of
// the table and is then its sole owner. A handle resolves at most once.
//
// Thread safety: TaskTable is safe for concurrent use.
type TaskTable struct {
	mu    sync.Mutex
	items map[TaskID]func()
	next  atomic.Uint64
}

// NewTaskTable creates an empty task table.
func NewTaskTable() *TaskTable {
	return &TaskTable{items: make(map[TaskID]func())}
}

// Register stores fn and returns the handle that identifies it.
func (t *TaskTable) Register(fn func()) TaskID {
	id := TaskID(t.next.Add(1))
	t.mu.Lock()
	t.items[id] = fn
	t.mu.Unlock()
	return id
}

// Take removes and returns the work item for id.
// The second result is false if id is unknown or was already taken.
func (t *TaskTable) Take(id TaskID) (func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn, ok := t.items[id]
	if ok {
		delete(t.items, id)
	}
	return fn, ok
}

// Discard drops the work item for id without running it.
// It reports whether an item was removed.
func (t *TaskTable) Discard(id TaskID) bool {
	_, ok := t.Take(id)
	return ok
}

// Len returns the number of registered items not yet taken.
func (t *TaskTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

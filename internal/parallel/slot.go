package parallel

import "sync/atomic"

// CompletionSlot is a single-value cell that hands a result from a
// background context to whoever drains it.
//
// Writes are guarded by an exclusivity flag rather than a mutex: a second
// writer arriving while the flag is held fails immediately instead of
// waiting or overwriting. Each slot is expected to have exactly one
// producer, so a failed Replace indicates a logic error in the caller.
//
// Thread safety: CompletionSlot is safe for concurrent use.
type CompletionSlot[T any] struct {
	// modifying is the exclusivity flag held for the duration of a store.
	modifying atomic.Bool

	// full reports whether value holds a stored result.
	full  bool
	value T
}

// NewCompletionSlot returns an empty slot.
func NewCompletionSlot[T any]() *CompletionSlot[T] {
	return &CompletionSlot[T]{}
}

// Replace stores v and returns the previous contents.
//
// If another Replace or Take is in progress, Replace fails: it returns v
// unchanged and ok is false. The zero value of T is returned as the previous
// contents of an empty slot.
func (s *CompletionSlot[T]) Replace(v T) (prev T, ok bool) {
	if s.modifying.Swap(true) {
		return v, false
	}
	prev = s.value
	s.value = v
	s.full = true
	s.modifying.Store(false)
	return prev, true
}

// Take drains the slot. It returns the stored value and true if a value was
// present, or the zero value and false if the slot was empty or currently
// being written.
func (s *CompletionSlot[T]) Take() (T, bool) {
	var zero T
	if s.modifying.Swap(true) {
		return zero, false
	}
	v, full := s.value, s.full
	s.value = zero
	s.full = false
	s.modifying.Store(false)
	return v, full
}

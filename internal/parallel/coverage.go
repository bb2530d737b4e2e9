package parallel

import (
	"math/bits"
	"sync/atomic"
)

// Coverage records which chunks of a shared buffer have been written, using
// an atomic bitmap with one bit per chunk.
//
// Writers store a chunk's bytes and then Mark it. Readers check IsSet before
// touching a chunk's bytes; the atomic OR/Load pair orders the byte writes
// before the read, so a reader never observes a partially published chunk.
//
// All methods are safe for concurrent use without external synchronization.
type Coverage struct {
	// words is the bitmap; bit i%64 of word i/64 is chunk i.
	words []atomic.Uint64

	// total is the number of chunks tracked.
	total int

	// marked counts distinct chunks marked so far.
	marked atomic.Int64
}

// NewCoverage creates a coverage map for n chunks, all unwritten.
// Returns nil if n is negative.
func NewCoverage(n int) *Coverage {
	if n < 0 {
		return nil
	}
	return &Coverage{
		words: make([]atomic.Uint64, (n+63)/64),
		total: n,
	}
}

// Mark records chunk i as written.
// It returns true the first time i is marked and false if i was already
// marked or is out of range.
func (c *Coverage) Mark(i int) bool {
	if i < 0 || i >= c.total {
		return false
	}
	bit := uint64(1) << (i & 63)
	old := c.words[i/64].Or(bit)
	if old&bit != 0 {
		return false
	}
	c.marked.Add(1)
	return true
}

// IsSet reports whether chunk i has been written.
// Returns false for out-of-range indices.
func (c *Coverage) IsSet(i int) bool {
	if i < 0 || i >= c.total {
		return false
	}
	return c.words[i/64].Load()&(1<<(i&63)) != 0
}

// Count returns the number of written chunks.
func (c *Coverage) Count() int {
	return int(c.marked.Load())
}

// Total returns the number of chunks tracked.
func (c *Coverage) Total() int {
	return c.total
}

// Complete reports whether every chunk has been written.
func (c *Coverage) Complete() bool {
	return c.Count() == c.total
}

// ForEachSet calls fn for each written chunk in ascending index order.
// Chunks marked while ForEachSet runs may or may not be visited.
func (c *Coverage) ForEachSet(fn func(i int)) {
	if fn == nil {
		return
	}
	for w := range c.words {
		word := c.words[w].Load()
		for word != 0 {
			b := bits.TrailingZeros64(word)
			i := w*64 + b
			if i >= c.total {
				break
			}
			fn(i)
			word &^= 1 << b
		}
	}
}

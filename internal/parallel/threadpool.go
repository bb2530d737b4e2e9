package parallel

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrChunkSize is returned by ForEachChunk when the chunk size is not
// positive or does not divide the buffer length.
var ErrChunkSize = errors.New("parallel: invalid chunk size")

// batchesPerThread controls how finely ForEachChunk splits its index range.
// More batches balance uneven per-chunk cost at the price of more claims.
const batchesPerThread = 4

// Thread is one logical participant in a ThreadPool.
// A SpawnHandler decides where the thread's Run loop executes.
type Thread struct {
	index int
	pool  *ThreadPool
}

// Index returns the thread's position in the pool, starting at 0.
func (t Thread) Index() int {
	return t.index
}

// Run executes the thread's main loop. It returns once the pool is closed.
func (t Thread) Run() {
	t.pool.threadLoop()
}

// SpawnHandler starts a logical thread. It must arrange for thread.Run to
// be called exactly once, on some other execution context, and return
// without waiting for it.
type SpawnHandler func(thread Thread) error

// ThreadPool is a data-parallel pool of logical threads whose execution
// contexts are supplied by a SpawnHandler instead of being created here.
//
// The goroutine that calls ForEachChunk acts as one more participant, so a
// pool built for concurrency C needs only C-1 logical threads.
//
// Thread safety: ForEachChunk may be called concurrently. Close must not
// race with a ForEachChunk that is still distributing work.
type ThreadPool struct {
	numThreads int

	// jobs carries work-sharing loops to idle logical threads.
	jobs chan func()

	// mu guards sends on jobs against Close.
	mu     sync.RWMutex
	closed bool

	// exited counts logical threads still inside Run.
	exited sync.WaitGroup
}

// NewThreadPool builds a pool of numThreads logical threads, starting each
// through spawn. If spawn fails the threads started so far are stopped and
// the error is returned.
func NewThreadPool(numThreads int, spawn SpawnHandler) (*ThreadPool, error) {
	if numThreads < 0 {
		numThreads = 0
	}
	p := &ThreadPool{
		numThreads: numThreads,
		jobs:       make(chan func(), numThreads),
	}

	for i := range numThreads {
		p.exited.Add(1)
		if err := spawn(Thread{index: i, pool: p}); err != nil {
			p.exited.Done()
			p.Close()
			return nil, fmt.Errorf("parallel: spawn thread %d: %w", i, err)
		}
	}
	return p, nil
}

// threadLoop runs shared jobs until the pool is closed.
func (p *ThreadPool) threadLoop() {
	defer p.exited.Done()
	for job := range p.jobs {
		job()
	}
}

// NumThreads returns the number of logical threads, excluding the caller.
func (p *ThreadPool) NumThreads() int {
	return p.numThreads
}

// Install runs op on the calling goroutine. Parallel loops issued from op
// use the caller as the pool's initiating thread.
func (p *ThreadPool) Install(op func()) {
	op()
}

// ForEachChunk splits buf into consecutive size-byte chunks and calls fn for
// each one with its index. Chunks are visited exactly once, in no particular
// order, by the logical threads and the caller together. ForEachChunk
// returns when every chunk has been visited.
//
// If fn panics, the rest of that batch is abandoned, other batches still
// run, and the first panic is re-raised on the caller once all participants
// have finished.
func (p *ThreadPool) ForEachChunk(buf []byte, size int, fn func(i int, chunk []byte)) error {
	if size <= 0 || len(buf)%size != 0 {
		return fmt.Errorf("%w: %d for buffer of %d bytes", ErrChunkSize, size, len(buf))
	}
	n := len(buf) / size
	if n == 0 {
		return nil
	}

	grain := n / ((p.numThreads + 1) * batchesPerThread)
	if grain < 1 {
		grain = 1
	}
	j := &chunkJob{buf: buf, size: size, n: n, grain: grain, fn: fn}

	var helpers sync.WaitGroup
	p.mu.RLock()
	if !p.closed {
	offer:
		for range p.numThreads {
			helpers.Add(1)
			select {
			case p.jobs <- func() { defer helpers.Done(); j.work() }:
			default:
				// Every logical thread already has work queued.
				helpers.Done()
				break offer
			}
		}
	}
	p.mu.RUnlock()

	j.work()
	helpers.Wait()

	if r := j.panicked.Load(); r != nil {
		panic(r.value)
	}
	return nil
}

// Close stops the logical threads and waits for each to leave its Run loop.
// Close is safe to call multiple times.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.exited.Wait()
}

// chunkJob is one ForEachChunk call shared between participants.
type chunkJob struct {
	buf   []byte
	size  int
	n     int
	grain int
	fn    func(i int, chunk []byte)

	// next is the first chunk index not yet claimed.
	next atomic.Int64

	panicked atomic.Pointer[panicValue]
}

type panicValue struct {
	value any
}

// work claims batches until none remain.
func (j *chunkJob) work() {
	for {
		start := int(j.next.Add(int64(j.grain))) - j.grain
		if start >= j.n {
			return
		}
		end := min(start+j.grain, j.n)
		j.runBatch(start, end)
	}
}

func (j *chunkJob) runBatch(start, end int) {
	defer func() {
		if r := recover(); r != nil {
			j.panicked.CompareAndSwap(nil, &panicValue{value: r})
		}
	}()
	for i := start; i < end; i++ {
		off := i * j.size
		j.fn(i, j.buf[off:off+j.size:off+j.size])
	}
}

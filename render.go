package raypool

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/raypool/internal/parallel"
)

// BytesPerPixel is the size of one output chunk: a single RGBA8 pixel.
const BytesPerPixel = 4

// Tracer is the per-pixel collaborator driven by Render. R is the tracer's
// ray type; Render never looks inside it.
//
// PrimaryRay and Cast are called concurrently from several workers and must
// not mutate shared state.
type Tracer[R any] interface {
	// Width and Height give the output size in pixels.
	Width() int
	Height() int

	// PrimaryRay returns the ray through pixel (x, y).
	PrimaryRay(x, y int) R

	// Cast traces ray and returns the pixel's RGBA8 color.
	Cast(ray R) [4]byte
}

// Render traces every pixel of tracer's image on pool, using concurrency
// logical threads, and returns immediately with a handle to the render.
//
// One logical thread is the dispatched render task itself; the other
// concurrency-1 run their loops on further pooled workers, which the pool
// spawns if it has too few idle. The calling goroutine never blocks on the
// render.
func Render[R any](pool *WorkerPool, tracer Tracer[R], concurrency int) (*RenderHandle, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, concurrency)
	}
	width, height := tracer.Width(), tracer.Height()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	h := &RenderHandle{
		id:          uuid.New(),
		width:       width,
		height:      height,
		concurrency: concurrency,
		buf:         make([]byte, width*height*BytesPerPixel),
		coverage:    parallel.NewCoverage(width * height),
		started:     time.Now(),
	}
	log := pool.log.With("job", h.id.String())

	threads, err := parallel.NewThreadPool(concurrency-1, func(t parallel.Thread) error {
		return pool.Run(t.Run)
	})
	if err != nil {
		return nil, fmt.Errorf("raypool: build thread pool: %w", err)
	}

	done, err := RunNotify(pool, func() []byte {
		defer threads.Close()
		threads.Install(func() {
			err := threads.ForEachChunk(h.buf, BytesPerPixel, func(i int, chunk []byte) {
				rgba := tracer.Cast(tracer.PrimaryRay(i%width, i/width))
				copy(chunk, rgba[:])
				if !h.coverage.Mark(i) {
					panic(fmt.Sprintf("raypool: chunk %d written twice", i))
				}
			})
			if err != nil {
				panic(err)
			}
		})
		return h.buf
	})
	if err != nil {
		threads.Close()
		return nil, err
	}

	h.completion = thenFuture(done, func(buf []byte) (*Pixmap, error) {
		log.Debug("render complete", "elapsed", time.Since(h.started))
		return FromBuffer(buf, width, height)
	})

	log.Debug("render started", "width", width, "height", height, "concurrency", concurrency)
	return h, nil
}

package raypool

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/raypool/internal/parallel"
)

// RenderHandle is the caller's view of one in-flight render: a completion
// future plus progressive reads of the partially written output.
//
// The handle borrows the render's output buffer. Pixels are published one at
// a time through a coverage bitmap, so ProgressiveSnapshot only ever copies
// pixels that are completely written and leaves the rest transparent black.
// Snapshots taken mid-render may still tear visually: neighbouring pixels
// can come from different moments of the render.
type RenderHandle struct {
	id          uuid.UUID
	width       int
	height      int
	concurrency int
	started     time.Time

	buf        []byte
	coverage   *parallel.Coverage
	completion *Future[*Pixmap]
}

// ID returns the render's unique job id.
func (h *RenderHandle) ID() uuid.UUID {
	return h.id
}

// Width returns the image width in pixels.
func (h *RenderHandle) Width() int {
	return h.width
}

// Height returns the image height in pixels.
func (h *RenderHandle) Height() int {
	return h.height
}

// Concurrency returns the number of logical threads the render uses.
func (h *RenderHandle) Concurrency() int {
	return h.concurrency
}

// Started returns when the render was dispatched.
func (h *RenderHandle) Started() time.Time {
	return h.started
}

// Completion returns the future that resolves with the finished image once
// every pixel has been written.
func (h *RenderHandle) Completion() *Future[*Pixmap] {
	return h.completion
}

// Wait blocks until the render finishes or ctx is done.
func (h *RenderHandle) Wait(ctx context.Context) (*Pixmap, error) {
	return h.completion.Await(ctx)
}

// Progress returns how many pixels have been written out of the total.
func (h *RenderHandle) Progress() (written, total int) {
	return h.coverage.Count(), h.coverage.Total()
}

// ProgressiveSnapshot copies the pixels written so far into a new pixmap of
// the full image size. It never blocks and may be called at any time,
// including after completion.
func (h *RenderHandle) ProgressiveSnapshot() *Pixmap {
	pm := NewPixmap(h.width, h.height)
	data := pm.Data()
	h.coverage.ForEachSet(func(i int) {
		off := i * BytesPerPixel
		copy(data[off:off+BytesPerPixel], h.buf[off:off+BytesPerPixel])
	})
	return pm
}

// Package raypool dispatches closures to a reusable pool of goroutine
// workers and uses them to run data-parallel per-pixel renders.
//
// # Overview
//
// A WorkerPool keeps a set of idle workers. Each worker is a goroutine with
// its own mailbox; the pool never hands it a closure directly. Instead the
// closure is registered in a task table and only its numeric handle is
// posted. The worker takes the closure back out of the table, runs it once,
// and replies "done" or "fault". On "done" the worker returns to the idle
// set; on "fault" it is retired. When no worker is idle the pool spawns
// another one.
//
// # Quick Start
//
//	pool, err := raypool.NewWorkerPool(2)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	fut, err := raypool.RunNotify(pool, func() int { return 40 + 2 })
//	if err != nil {
//	    return err
//	}
//	v, err := fut.Await(ctx) // 42
//
// # Rendering
//
// Render fans a Tracer out over concurrency logical threads. One logical
// thread is the render task itself, dispatched with RunNotify; the others
// run their loops on further pooled workers. Each pixel is one 4-byte RGBA
// chunk of a shared buffer.
//
//	h, err := raypool.Render(pool, raytrace.NewRenderer(scene), 4)
//	preview := h.ProgressiveSnapshot() // any time, never blocks
//	img, err := h.Wait(ctx)
//
// Progressive snapshots only copy pixels whose coverage bit is set, so a
// snapshot never contains half-written pixels. Pixels not yet traced are
// transparent black.
//
// # Errors
//
// Dispatch failures are returned synchronously (ErrSpawn, ErrDispatch,
// ErrPoolClosed). A task that panics on its worker rejects its Future with a
// *FaultError matching ErrWorkerFault. Nothing is retried.
//
// # Logging
//
// raypool logs through log/slog and is silent by default; see SetLogger and
// WithLogger.
package raypool

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/pranabesh-official/camelot-downloader/worker"
)

// Start launches the worker pool and the dispatch loop. It returns
// immediately and is idempotent. Submit and Retry call Start lazily, so
// explicit calls are only needed to warm the engine up front.
func (e *Engine) Start(_ context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		return nil
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})

	pool := worker.NewPool(e.executor, int(e.concurrency.Load()), e.logger)
	e.poolMu.Lock()
	e.pool = pool
	e.poolMu.Unlock()
	pool.Start()

	go e.dispatchLoop(e.stopCh, e.loopDone)

	e.logger.Info("download engine started",
		slog.Int("concurrency", int(e.concurrency.Load())),
		slog.String("worker_id", pool.WorkerID().String()),
	)
	return nil
}

// Stop shuts the engine down gracefully: the dispatch loop exits, in-flight
// downloads drain, pending downloads stay queued in memory. Idempotent.
// A Stop-ed engine can be started again.
func (e *Engine) Stop(ctx context.Context) error {
	e.runMu.Lock()
	if !e.running {
		e.runMu.Unlock()
		return nil
	}
	e.running = false
	close(e.stopCh)
	loopDone := e.loopDone
	e.runMu.Unlock()

	if e.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}

	select {
	case <-loopDone:
	case <-ctx.Done():
		e.logger.Warn("dispatch loop did not exit before deadline")
		return ctx.Err()
	}

	err := e.currentPool().Stop(ctx)

	e.observers.EmitShutdown(ctx)
	e.logger.Info("download engine stopped")
	return err
}

// SetConcurrency resizes the worker pool. When the engine is running this
// blocks until in-flight downloads drain, then brings up a fresh pool of
// the new size; the dispatch loop requeues anything it could not hand
// over during the swap.
func (e *Engine) SetConcurrency(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	e.concurrency.Store(int64(n))

	e.runMu.Lock()
	running := e.running
	e.runMu.Unlock()
	if !running {
		return nil
	}

	e.logger.Info("resizing worker pool", slog.Int("concurrency", n))

	old := e.currentPool()
	stopErr := old.Stop(ctx)

	fresh := worker.NewPool(e.executor, n, e.logger)
	fresh.Start()
	e.poolMu.Lock()
	e.pool = fresh
	e.poolMu.Unlock()

	return stopErr
}

// sleep waits for d or until the stop channel fires, whichever is first.
func sleep(stop <-chan struct{}, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-stop:
	}
}

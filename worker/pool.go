package worker

import (
	"context"
	"log/slog"
	"sync"

	downloader "github.com/pranabesh-official/camelot-downloader"
	"github.com/pranabesh-official/camelot-downloader/id"
	"github.com/pranabesh-official/camelot-downloader/job"
)

// Pool manages a fixed set of worker goroutines fed by the dispatch loop.
// The pool itself enforces nothing about admission order or caps; it only
// runs what it is handed. Resizing is done by draining one pool and
// starting a fresh one.
type Pool struct {
	executor *Executor
	size     int
	workerID id.WorkerID
	logger   *slog.Logger

	jobs    chan *job.Download
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewPool creates a pool of size worker goroutines. The pool is inert
// until Start is called.
func NewPool(executor *Executor, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		executor: executor,
		size:     size,
		workerID: id.NewWorkerID(),
		logger:   logger,
		jobs:     make(chan *job.Download),
		stopCh:   make(chan struct{}),
	}
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Size returns the number of worker goroutines.
func (p *Pool) Size() int { return p.size }

// Start launches the worker goroutines. It returns immediately and is
// idempotent.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("size", p.size),
	)

	for range p.size {
		p.wg.Add(1)
		go p.run()
	}
}

// Dispatch hands a download to an idle worker. The jobs channel is
// unbuffered, so Dispatch blocks until a worker picks the download up or
// the pool stops. Returns ErrStopped if the pool shut down first; the
// caller is expected to requeue the download.
func (p *Pool) Dispatch(d *job.Download) error {
	select {
	case p.jobs <- d:
		return nil
	case <-p.stopCh:
		return downloader.ErrStopped
	}
}

// Stop signals all workers to stop and waits for in-flight downloads to
// finish. If the context expires first, Stop returns its error while
// workers keep draining in the background. Idempotent.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out with downloads in flight")
		return ctx.Err()
	}
}

// run is the loop executed by each worker goroutine.
func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case d := <-p.jobs:
			p.executor.Execute(context.Background(), d)
		}
	}
}

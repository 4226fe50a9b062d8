// Package worker provides the download execution engine — an Executor
// that runs a single fetch through middleware, and a Pool that manages
// the fixed set of worker goroutines consuming admitted downloads.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
	"github.com/pranabesh-official/camelot-downloader/middleware"
)

// ProgressSink receives progress ticks from running fetches. d is the
// executing attempt's private copy; the sink matches it to live state by
// ID and sequence and owns locking, monotonic clamping, and observer
// fan-out.
type ProgressSink func(d *job.Download, progress float64, stage, message string)

// OutcomeSink receives the terminal result of a fetch attempt. A nil err
// means the fetch succeeded and res describes the artifact. The sink owns
// all state transitions (complete, requeue, fail) and uses d's ID and
// sequence to drop outcomes from superseded attempts.
type OutcomeSink func(ctx context.Context, d *job.Download, res *job.Result, err error)

// Executor runs a single download through the middleware chain and the
// configured Fetcher, then reports the outcome. It holds no registry
// state of its own: progress and outcomes flow through the sinks.
type Executor struct {
	fetcher  job.Fetcher
	progress ProgressSink
	outcome  OutcomeSink
	mw       middleware.Middleware
	logger   *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	fetcher job.Fetcher,
	progress ProgressSink,
	outcome OutcomeSink,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		fetcher:  fetcher,
		progress: progress,
		outcome:  outcome,
		mw:       middleware.Chain(mws...),
		logger:   logger,
	}
}

// Execute runs one download attempt. The Download passed in is the
// worker's private copy; shared state is only touched through the sinks.
// Execute never returns an error to the pool: every attempt ends in a
// call to the outcome sink, success or not.
func (e *Executor) Execute(ctx context.Context, d *job.Download) {
	start := time.Now()

	report := func(progress float64, stage, message string) {
		e.progress(d, progress, stage, message)
	}

	var res *job.Result
	terminal := func(ctx context.Context) error {
		r, err := e.fetcher.Fetch(ctx, d, report)
		res = r
		return err
	}

	err := e.mw(ctx, d, terminal)

	e.logger.Debug("fetch attempt finished",
		slog.String("download_id", d.ID.String()),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil),
	)

	e.outcome(ctx, d, res, err)
}

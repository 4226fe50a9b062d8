package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Named entry types pair a hook implementation with the observer name
// captured at registration time. This avoids type-asserting back to
// Observer inside the emit methods.
type enqueuedEntry struct {
	name string
	hook DownloadEnqueued
}

type startedEntry struct {
	name string
	hook DownloadStarted
}

type progressEntry struct {
	name string
	hook DownloadProgress
}

type completedEntry struct {
	name string
	hook DownloadCompleted
}

type failedEntry struct {
	name string
	hook DownloadFailed
}

type retryingEntry struct {
	name string
	hook DownloadRetrying
}

type cancelledEntry struct {
	name string
	hook DownloadCancelled
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered observers and dispatches lifecycle events to
// them. It type-caches observers at registration time so emit calls iterate
// only over observers that implement the relevant hook.
//
// Register is not safe to call concurrently with emits; register observers
// before starting the engine.
type Registry struct {
	observers []Observer
	logger    *slog.Logger

	// Type-cached slices for each lifecycle hook, in registration order.
	enqueued  []enqueuedEntry
	started   []startedEntry
	progress  []progressEntry
	completed []completedEntry
	failed    []failedEntry
	retrying  []retryingEntry
	cancelled []cancelledEntry
	shutdown  []shutdownEntry
}

// NewRegistry creates an observer registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an observer, caching each hook interface it implements.
func (r *Registry) Register(o Observer) {
	r.observers = append(r.observers, o)

	if h, ok := o.(DownloadEnqueued); ok {
		r.enqueued = append(r.enqueued, enqueuedEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(DownloadStarted); ok {
		r.started = append(r.started, startedEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(DownloadProgress); ok {
		r.progress = append(r.progress, progressEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(DownloadCompleted); ok {
		r.completed = append(r.completed, completedEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(DownloadFailed); ok {
		r.failed = append(r.failed, failedEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(DownloadRetrying); ok {
		r.retrying = append(r.retrying, retryingEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(DownloadCancelled); ok {
		r.cancelled = append(r.cancelled, cancelledEntry{name: o.Name(), hook: h})
	}
	if h, ok := o.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name: o.Name(), hook: h})
	}
}

// Observers returns the registered observers in registration order.
func (r *Registry) Observers() []Observer { return r.observers }

// EmitEnqueued notifies all observers that implement DownloadEnqueued.
func (r *Registry) EmitEnqueued(ctx context.Context, d *job.Download) {
	for _, e := range r.enqueued {
		r.invoke("OnDownloadEnqueued", e.name, func() error {
			return e.hook.OnDownloadEnqueued(ctx, d)
		})
	}
}

// EmitStarted notifies all observers that implement DownloadStarted.
func (r *Registry) EmitStarted(ctx context.Context, d *job.Download) {
	for _, e := range r.started {
		r.invoke("OnDownloadStarted", e.name, func() error {
			return e.hook.OnDownloadStarted(ctx, d)
		})
	}
}

// EmitProgress notifies all observers that implement DownloadProgress.
func (r *Registry) EmitProgress(ctx context.Context, d *job.Download) {
	for _, e := range r.progress {
		r.invoke("OnDownloadProgress", e.name, func() error {
			return e.hook.OnDownloadProgress(ctx, d)
		})
	}
}

// EmitCompleted notifies all observers that implement DownloadCompleted.
func (r *Registry) EmitCompleted(ctx context.Context, d *job.Download, elapsed time.Duration) {
	for _, e := range r.completed {
		r.invoke("OnDownloadCompleted", e.name, func() error {
			return e.hook.OnDownloadCompleted(ctx, d, elapsed)
		})
	}
}

// EmitFailed notifies all observers that implement DownloadFailed.
func (r *Registry) EmitFailed(ctx context.Context, d *job.Download, dlErr error) {
	for _, e := range r.failed {
		r.invoke("OnDownloadFailed", e.name, func() error {
			return e.hook.OnDownloadFailed(ctx, d, dlErr)
		})
	}
}

// EmitRetrying notifies all observers that implement DownloadRetrying.
func (r *Registry) EmitRetrying(ctx context.Context, d *job.Download, attempt int) {
	for _, e := range r.retrying {
		r.invoke("OnDownloadRetrying", e.name, func() error {
			return e.hook.OnDownloadRetrying(ctx, d, attempt)
		})
	}
}

// EmitCancelled notifies all observers that implement DownloadCancelled.
func (r *Registry) EmitCancelled(ctx context.Context, d *job.Download) {
	for _, e := range r.cancelled {
		r.invoke("OnDownloadCancelled", e.name, func() error {
			return e.hook.OnDownloadCancelled(ctx, d)
		})
	}
}

// EmitShutdown notifies all observers that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.invoke("OnShutdown", e.name, func() error {
			return e.hook.OnShutdown(ctx)
		})
	}
}

// invoke runs one hook, converting panics to logged errors. Hook failures
// are never propagated — they must not block the pipeline or the remaining
// observers.
func (r *Registry) invoke(hook, observerName string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("observer hook panicked",
				slog.String("hook", hook),
				slog.String("observer", observerName),
				slog.Any("panic", rec),
			)
		}
	}()

	if err := fn(); err != nil {
		r.logger.Warn("observer hook error",
			slog.String("hook", hook),
			slog.String("observer", observerName),
			slog.String("error", err.Error()),
		)
	}
}

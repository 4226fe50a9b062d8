// Package ext defines the observer system for the download engine.
// Observers are notified of lifecycle events (enqueued, progress,
// completed, failed, etc.) and can react to them — updating a UI,
// recording metrics, writing audit logs.
//
// Each lifecycle hook is a separate interface so observers opt in only to
// the events they care about. The Registry fans each event out to every
// registered observer that implements the corresponding hook, in
// registration order. A failing observer is logged and never blocks the
// others or the engine.
package ext

import (
	"context"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Observer is the base interface all observers must implement.
type Observer interface {
	// Name returns a unique human-readable name for the observer.
	Name() string
}

// DownloadEnqueued is called after a download is accepted into the queue.
type DownloadEnqueued interface {
	OnDownloadEnqueued(ctx context.Context, d *job.Download) error
}

// DownloadStarted is called when a download is admitted and a worker
// begins executing it.
type DownloadStarted interface {
	OnDownloadStarted(ctx context.Context, d *job.Download) error
}

// DownloadProgress is called on each advisory progress tick of a running
// download. The record carries the current progress, stage, and message.
type DownloadProgress interface {
	OnDownloadProgress(ctx context.Context, d *job.Download) error
}

// DownloadCompleted is called after a download finishes successfully.
type DownloadCompleted interface {
	OnDownloadCompleted(ctx context.Context, d *job.Download, elapsed time.Duration) error
}

// DownloadFailed is called when a download fails terminally (retry budget
// exhausted).
type DownloadFailed interface {
	OnDownloadFailed(ctx context.Context, d *job.Download, err error) error
}

// DownloadRetrying is called when a download fails but is requeued for
// another attempt.
type DownloadRetrying interface {
	OnDownloadRetrying(ctx context.Context, d *job.Download, attempt int) error
}

// DownloadCancelled is called when a download is cancelled by the caller.
type DownloadCancelled interface {
	OnDownloadCancelled(ctx context.Context, d *job.Download) error
}

// Shutdown is called during graceful engine shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}

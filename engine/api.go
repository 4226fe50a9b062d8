package engine

import (
	"context"
	"log/slog"
	"time"

	downloader "github.com/pranabesh-official/camelot-downloader"
	"github.com/pranabesh-official/camelot-downloader/id"
	"github.com/pranabesh-official/camelot-downloader/job"
)

// Stats is a point-in-time snapshot of registry sizes.
type Stats struct {
	Queued    int `json:"queued"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// Submit queues a download for execution and lazily starts the engine.
// Submitting a download whose id is already queued or active is a no-op
// returning the existing id. The engine takes ownership of d; callers
// must not touch it afterwards and should read state back through Get.
func (e *Engine) Submit(ctx context.Context, d *job.Download) (id.DownloadID, error) {
	if d == nil {
		return id.DownloadID{}, downloader.ErrInvalidDownload
	}
	if d.ID.IsNil() {
		return id.DownloadID{}, downloader.ErrInvalidDownload
	}

	key := d.ID.String()

	e.mu.Lock()
	if _, ok := e.active[key]; ok {
		e.mu.Unlock()
		e.logger.Warn("download already active, submit ignored",
			slog.String("download_id", key),
		)
		return d.ID, nil
	}
	if _, ok := e.queued[key]; ok {
		e.mu.Unlock()
		e.logger.Warn("download already queued, submit ignored",
			slog.String("download_id", key),
		)
		return d.ID, nil
	}

	e.nextSequence++
	d.Sequence = e.nextSequence
	if d.MaxRetries == 0 {
		d.MaxRetries = e.cfg.MaxRetries
	}
	if d.DownloadPath == "" {
		d.DownloadPath = e.cfg.DownloadDir
	}
	d.Status = job.StatusQueued
	d.Stage = "queued"
	if d.Message == "" {
		d.Message = "Added to download queue"
	}
	d.CanCancel = true
	d.CanRetry = false

	e.queued[key] = d
	e.pending.Push(d)
	clone := d.Clone()
	e.mu.Unlock()

	e.logger.Info("download queued",
		slog.String("download_id", key),
		slog.String("title", clone.Title),
		slog.String("priority", clone.Priority.String()),
		slog.Uint64("sequence", clone.Sequence),
	)

	e.observers.EmitEnqueued(ctx, clone)

	_ = e.Start(ctx)
	return d.ID, nil
}

// Cancel marks a download cancelled. An active download is removed from
// the active registry immediately, parked in the cancelled registry, and
// reported as cancelled; its running fetch is left to finish and its
// outcome is discarded. A pending download is tombstoned and moved to
// the cancelled registry when the dispatch loop pops it.
//
// Returns true only for active downloads. A pending cancellation returns
// false because it takes effect asynchronously.
func (e *Engine) Cancel(ctx context.Context, dlID id.DownloadID) bool {
	key := dlID.String()
	now := time.Now().UTC()

	e.mu.Lock()
	if d, ok := e.active[key]; ok {
		delete(e.active, key)
		// The abandoned fetch no longer counts against its host.
		if lease, held := e.hostOf[key]; held {
			delete(e.hostOf, key)
			if e.hosts != nil {
				e.hosts.Release(lease.host)
			}
		}
		d.Status = job.StatusCancelled
		d.Stage = "cancelled"
		d.Message = "Download cancelled"
		d.EndedAt = &now
		d.CanCancel = false
		d.CanRetry = true
		e.cancelled[key] = d
		clone := d.Clone()
		e.mu.Unlock()

		e.logger.Info("active download cancelled", slog.String("download_id", key))
		e.observers.EmitCancelled(ctx, clone)
		e.observers.EmitProgress(ctx, clone)
		return true
	}

	if d, ok := e.queued[key]; ok {
		d.Status = job.StatusCancelled
		d.Stage = "cancelled"
		d.Message = "Download cancelled"
		d.EndedAt = &now
		d.CanCancel = false
		d.CanRetry = true
		clone := d.Clone()
		e.mu.Unlock()

		e.logger.Info("pending download cancelled, will be discarded on pop",
			slog.String("download_id", key),
		)
		e.observers.EmitCancelled(ctx, clone)
		return false
	}
	e.mu.Unlock()

	e.logger.Warn("cancel requested for unknown download", slog.String("download_id", key))
	return false
}

// Retry resubmits a download from the failed or cancelled registry with
// a reset retry budget and a fresh sequence number (it queues behind
// existing work at its priority). Returns ErrNotRetryable for anything
// else.
func (e *Engine) Retry(ctx context.Context, dlID id.DownloadID) error {
	key := dlID.String()

	e.mu.Lock()
	d, ok := e.failed[key]
	if ok {
		delete(e.failed, key)
	} else if d, ok = e.cancelled[key]; ok {
		delete(e.cancelled, key)
	}
	if !ok {
		e.mu.Unlock()
		return downloader.ErrNotRetryable
	}

	e.nextSequence++
	d.Sequence = e.nextSequence
	d.RetryCount = 0
	d.LastError = ""
	d.Status = job.StatusQueued
	d.Stage = "queued"
	d.Message = "Retrying download..."
	d.Progress = 0
	d.DownloadedSize = 0
	d.CanCancel = true
	d.CanRetry = false
	d.StartedAt = nil
	d.EndedAt = nil
	d.RunAt = time.Time{}

	e.queued[key] = d
	e.pending.Push(d)
	clone := d.Clone()
	e.mu.Unlock()

	e.logger.Info("download resubmitted",
		slog.String("download_id", key),
		slog.String("title", clone.Title),
	)

	e.observers.EmitEnqueued(ctx, clone)

	_ = e.Start(ctx)
	return nil
}

// Get returns a copy of the download's current state, looked up across
// all registries.
func (e *Engine) Get(dlID id.DownloadID) (*job.Download, error) {
	key := dlID.String()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, reg := range []map[string]*job.Download{e.active, e.queued, e.completed, e.failed, e.cancelled} {
		if d, ok := reg[key]; ok {
			return d.Clone(), nil
		}
	}
	return nil, downloader.ErrNotFound
}

// All returns a copy of every tracked download keyed by id.
func (e *Engine) All() map[string]*job.Download {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]*job.Download,
		len(e.queued)+len(e.active)+len(e.completed)+len(e.failed)+len(e.cancelled))
	for _, reg := range []map[string]*job.Download{e.queued, e.active, e.completed, e.failed, e.cancelled} {
		for k, d := range reg {
			out[k] = d.Clone()
		}
	}
	return out
}

// QueueStats returns current registry sizes. Queued includes tombstoned
// cancellations that have not been popped yet; Cancelled counts the
// popped and cancelled-while-active ones.
func (e *Engine) QueueStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Queued:    len(e.queued),
		Active:    len(e.active),
		Completed: len(e.completed),
		Failed:    len(e.failed),
		Cancelled: len(e.cancelled),
	}
	s.Total = s.Queued + s.Active + s.Completed + s.Failed + s.Cancelled
	return s
}

// ClearCompleted drops all completed downloads and returns how many were
// removed.
func (e *Engine) ClearCompleted() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.completed)
	e.completed = make(map[string]*job.Download)
	return n
}

// ClearFailed drops all failed downloads and returns how many were
// removed.
func (e *Engine) ClearFailed() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.failed)
	e.failed = make(map[string]*job.Download)
	return n
}

// ClearCancelled drops all cancelled downloads and returns how many were
// removed.
func (e *Engine) ClearCancelled() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.cancelled)
	e.cancelled = make(map[string]*job.Download)
	return n
}

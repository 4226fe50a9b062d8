package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// onProgress is the worker progress sink. attempt is the executing
// worker's private copy; its sequence identifies the admission, so ticks
// from an attempt that was cancelled and superseded by a retry are
// dropped. Progress is clamped to be non-decreasing so a jittery fetcher
// never walks a progress bar backwards.
func (e *Engine) onProgress(attempt *job.Download, progress float64, stage, message string) {
	e.mu.Lock()
	d, ok := e.active[attempt.ID.String()]
	if !ok || d.Sequence != attempt.Sequence {
		e.mu.Unlock()
		return
	}

	if progress > 100 {
		progress = 100
	}
	if progress > d.Progress {
		d.Progress = progress
	}
	if stage != "" {
		d.Stage = stage
	}
	if message != "" {
		d.Message = message
	}
	if d.FileSize > 0 {
		d.DownloadedSize = int64(d.Progress / 100 * float64(d.FileSize))
	}
	clone := d.Clone()
	e.mu.Unlock()

	e.observers.EmitProgress(context.Background(), clone)
}

// onOutcome is the worker outcome sink: exactly one call per execution
// attempt. It moves the download out of the active registry and into
// completed, back to pending (retry), or into failed. An outcome from an
// attempt that is no longer the admitted one is a no-op.
//
// A panic anywhere in outcome handling must not leak a download into
// limbo, so the handler is guarded by a fail-safe that forces the
// download into the failed registry.
func (e *Engine) onOutcome(ctx context.Context, attempt *job.Download, res *job.Result, fetchErr error) {
	var owned *job.Download
	defer func() {
		if r := recover(); r != nil {
			e.failsafe(ctx, attempt.ID.String(), owned, r)
		}
	}()

	if emit := e.transition(attempt, res, fetchErr, &owned); emit != nil {
		emit(ctx)
	}
}

// transition applies the outcome's state change under the registry lock
// and returns the announcement to run after the lock is released. A nil
// return means there is nothing to announce (stale outcome from a
// cancelled, possibly since-retried attempt). Once transition commits to
// handling the outcome it stores the record in owned, so the panic
// fail-safe can park it even when the panic strikes mid-transition.
func (e *Engine) transition(attempt *job.Download, res *job.Result, fetchErr error, owned **job.Download) func(context.Context) {
	key := attempt.ID.String()

	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.active[key]
	if !ok || d.Sequence != attempt.Sequence {
		// Cancelled while running (and possibly resubmitted since):
		// Cancel already removed this attempt and published its terminal
		// state. Drop the late outcome.
		e.logger.Debug("dropping outcome from a superseded attempt",
			slog.String("download_id", key),
			slog.Uint64("sequence", attempt.Sequence),
		)
		return nil
	}

	if lease, held := e.hostOf[key]; held && lease.seq == attempt.Sequence {
		delete(e.hostOf, key)
		if e.hosts != nil {
			e.hosts.Release(lease.host)
		}
	}

	delete(e.active, key)
	*owned = d

	if fetchErr == nil {
		return e.complete(d, res)
	}
	if d.RetryCount < d.MaxRetries {
		return e.requeue(d, fetchErr)
	}
	return e.fail(d, fetchErr)
}

// complete finalizes a successful download. Called with e.mu held.
func (e *Engine) complete(d *job.Download, res *job.Result) func(context.Context) {
	now := time.Now().UTC()

	d.Status = job.StatusCompleted
	d.Stage = "complete"
	d.Message = "Download completed successfully"
	d.Progress = 100
	d.EndedAt = &now
	d.CanCancel = false
	d.CanRetry = false
	if res != nil {
		d.ArtifactPath = res.ArtifactPath
		if res.FileSize > 0 {
			d.FileSize = res.FileSize
			d.DownloadedSize = res.FileSize
		}
	}
	e.completed[d.ID.String()] = d

	clone := d.Clone()
	var elapsed time.Duration
	if d.StartedAt != nil {
		elapsed = now.Sub(*d.StartedAt)
	}

	return func(ctx context.Context) {
		e.logger.Info("download completed",
			slog.String("download_id", clone.ID.String()),
			slog.String("title", clone.Title),
			slog.Duration("elapsed", elapsed),
			slog.String("artifact", clone.ArtifactPath),
		)
		e.observers.EmitProgress(ctx, clone)
		e.observers.EmitCompleted(ctx, clone, elapsed)
	}
}

// requeue sends a failed attempt back to the pending queue with its
// original sequence, so a retry does not jump ahead of downloads that
// were submitted before it at the same priority. Called with e.mu held.
func (e *Engine) requeue(d *job.Download, fetchErr error) func(context.Context) {
	d.RetryCount++
	d.Status = job.StatusQueued
	d.Stage = "queued"
	d.Message = fmt.Sprintf("Retrying download (attempt %d/%d)...", d.RetryCount+1, d.MaxRetries+1)
	d.Progress = 0
	d.DownloadedSize = 0
	d.LastError = ""
	d.StartedAt = nil
	if delay := e.bo.Delay(d.RetryCount); delay > 0 {
		d.RunAt = time.Now().UTC().Add(delay)
	} else {
		d.RunAt = time.Time{}
	}
	e.queued[d.ID.String()] = d
	e.pending.Push(d)

	clone := d.Clone()
	attempt := d.RetryCount

	return func(ctx context.Context) {
		e.logger.Info("download scheduled for retry",
			slog.String("download_id", clone.ID.String()),
			slog.String("title", clone.Title),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", clone.MaxRetries),
			slog.String("error", fetchErr.Error()),
		)
		e.observers.EmitRetrying(ctx, clone, attempt)
		e.observers.EmitProgress(ctx, clone)
	}
}

// fail moves a download with an exhausted retry budget into the failed
// registry. Called with e.mu held.
func (e *Engine) fail(d *job.Download, fetchErr error) func(context.Context) {
	now := time.Now().UTC()

	d.Status = job.StatusFailed
	d.Stage = "error"
	d.Message = "Download failed"
	d.LastError = fetchErr.Error()
	d.EndedAt = &now
	d.CanCancel = false
	d.CanRetry = true
	e.failed[d.ID.String()] = d

	clone := d.Clone()

	return func(ctx context.Context) {
		e.logger.Warn("download failed after exhausting retries",
			slog.String("download_id", clone.ID.String()),
			slog.String("title", clone.Title),
			slog.Int("retry_count", clone.RetryCount),
			slog.String("error", fetchErr.Error()),
		)
		e.observers.EmitFailed(ctx, clone, fetchErr)
		e.observers.EmitProgress(ctx, clone)
	}
}

// failsafe forces a download into the failed registry after a panic in
// outcome handling, so it cannot vanish from every registry. owned is
// the record the panicking transition had already pulled out of the
// active registry, nil when the panic struck before the outcome was
// matched to a live record.
func (e *Engine) failsafe(ctx context.Context, key string, owned *job.Download, cause any) {
	e.logger.Error("panic while handling download outcome",
		slog.String("download_id", key),
		slog.Any("panic", cause),
	)

	now := time.Now().UTC()

	e.mu.Lock()
	d := owned
	if d == nil {
		// The panic struck before the outcome was matched to a record.
		// If the attempt is still active, pull it out; anything else is
		// not ours to touch.
		a, ok := e.active[key]
		if !ok {
			e.mu.Unlock()
			return
		}
		delete(e.active, key)
		d = a
	} else {
		// The transition may have committed the record to a registry
		// before the panic (an announcement blew up after the state
		// change). A settled record stays where it landed.
		for _, reg := range []map[string]*job.Download{e.queued, e.completed, e.failed, e.cancelled} {
			if _, settled := reg[key]; settled {
				e.mu.Unlock()
				return
			}
		}
	}

	d.Status = job.StatusFailed
	d.Stage = "error"
	d.Message = "Download failed"
	d.LastError = fmt.Sprintf("internal error: %v", cause)
	d.EndedAt = &now
	d.CanCancel = false
	d.CanRetry = true
	e.failed[key] = d
	clone := d.Clone()
	e.mu.Unlock()

	e.observers.EmitFailed(ctx, clone, fmt.Errorf("internal error: %v", cause))
}

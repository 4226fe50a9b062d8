package engine

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// dispatchLoop is the single admission goroutine. Each iteration it
// checks the concurrency cap, asks the resource gate for headroom, pops
// the highest-priority pending download, and hands it to the worker pool.
// Cancelled downloads are discarded lazily when popped.
func (e *Engine) dispatchLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx := context.Background()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if e.activeCount() >= int(e.concurrency.Load()) {
			sleep(stop, e.cfg.IdleInterval)
			continue
		}

		if !e.gate.Admit(ctx) {
			sleep(stop, e.cfg.GateInterval)
			continue
		}

		d, ok := e.pending.Pop(e.cfg.PopTimeout)
		if !ok {
			continue
		}

		key := d.ID.String()

		e.mu.Lock()
		delete(e.queued, key)

		if d.Status == job.StatusCancelled {
			// Tombstoned while pending. Park it so Get and Retry still
			// find it.
			e.cancelled[key] = d
			e.mu.Unlock()
			e.logger.Debug("discarding cancelled download",
				slog.String("download_id", key),
			)
			continue
		}

		// Backoff: a requeued download may not be eligible yet. Put it
		// back and idle; it is the front of the heap, so nothing behind
		// it is being starved by the wait.
		if !d.RunAt.IsZero() && time.Now().Before(d.RunAt) {
			e.queued[key] = d
			e.pending.Push(d)
			e.mu.Unlock()
			sleep(stop, e.cfg.IdleInterval)
			continue
		}
		e.mu.Unlock()

		host := sourceHost(d.URL)
		if e.hosts != nil && host != "" && !e.hosts.Acquire(host) {
			e.mu.Lock()
			e.queued[key] = d
			e.pending.Push(d)
			e.mu.Unlock()
			sleep(stop, e.cfg.IdleInterval)
			continue
		}

		clone := e.admit(ctx, d, host)

		if err := e.currentPool().Dispatch(clone); err != nil {
			// Pool stopped mid-handover (shutdown or resize). Roll the
			// download back to queued; the next loop pass retries it.
			e.rollback(d, host)
			sleep(stop, e.cfg.IdleInterval)
		}
	}
}

// admit moves a popped download into the active registry and announces
// it. Returns the clone handed to the worker pool.
func (e *Engine) admit(ctx context.Context, d *job.Download, host string) *job.Download {
	now := time.Now().UTC()

	e.mu.Lock()
	d.Status = job.StatusRunning
	d.Stage = "initializing"
	d.Message = "Starting download..."
	d.StartedAt = &now
	d.RunAt = time.Time{}
	e.active[d.ID.String()] = d
	if host != "" {
		e.hostOf[d.ID.String()] = hostLease{host: host, seq: d.Sequence}
	}
	clone := d.Clone()
	e.mu.Unlock()

	e.logger.Info("download started",
		slog.String("download_id", clone.ID.String()),
		slog.String("title", clone.Title),
		slog.String("priority", clone.Priority.String()),
		slog.Int("attempt", clone.RetryCount+1),
	)

	e.observers.EmitStarted(ctx, clone)
	e.observers.EmitProgress(ctx, clone)
	return clone
}

// rollback undoes an admission whose pool handover failed.
func (e *Engine) rollback(d *job.Download, host string) {
	key := d.ID.String()

	e.mu.Lock()
	delete(e.active, key)
	delete(e.hostOf, key)
	d.Status = job.StatusQueued
	d.Stage = "queued"
	d.Message = "Waiting in download queue"
	d.StartedAt = nil
	e.queued[key] = d
	e.pending.Push(d)
	e.mu.Unlock()

	if e.hosts != nil && host != "" {
		e.hosts.Release(host)
	}

	e.logger.Debug("pool handover failed, download requeued",
		slog.String("download_id", key),
	)
}

// sourceHost extracts the hostname used for per-host limits. Unparseable
// URLs map to the empty host, which is never limited.
func sourceHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

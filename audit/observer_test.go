package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pranabesh-official/camelot-downloader/audit"
	"github.com/pranabesh-official/camelot-downloader/job"
)

type captureRecorder struct {
	events []*audit.Event
	err    error
}

func (c *captureRecorder) Record(_ context.Context, e *audit.Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

func newTestDownload() *job.Download {
	return job.New("https://example.com/track", "Track", "Artist")
}

func TestObserver_EmitsAllLifecycleEvents(t *testing.T) {
	rec := &captureRecorder{}
	o := audit.New(rec)
	ctx := context.Background()
	d := newTestDownload()

	_ = o.OnDownloadEnqueued(ctx, d)
	_ = o.OnDownloadStarted(ctx, d)
	_ = o.OnDownloadCompleted(ctx, d, time.Second)
	_ = o.OnDownloadFailed(ctx, d, errors.New("boom"))
	_ = o.OnDownloadRetrying(ctx, d, 1)
	_ = o.OnDownloadCancelled(ctx, d)

	if len(rec.events) != 6 {
		t.Fatalf("events = %d, want 6", len(rec.events))
	}

	want := audit.AllActions()
	for i, evt := range rec.events {
		if evt.Action != want[i] {
			t.Errorf("event[%d].Action = %q, want %q", i, evt.Action, want[i])
		}
		if evt.Resource != audit.ResourceDownload {
			t.Errorf("event[%d].Resource = %q", i, evt.Resource)
		}
		if evt.ResourceID != d.ID.String() {
			t.Errorf("event[%d].ResourceID = %q", i, evt.ResourceID)
		}
	}
}

func TestObserver_FailureEventCarriesReason(t *testing.T) {
	rec := &captureRecorder{}
	o := audit.New(rec)

	_ = o.OnDownloadFailed(context.Background(), newTestDownload(), errors.New("network unreachable"))

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Severity != audit.SeverityCritical || evt.Outcome != audit.OutcomeFailure {
		t.Errorf("severity/outcome = %s/%s", evt.Severity, evt.Outcome)
	}
	if evt.Reason != "network unreachable" {
		t.Errorf("reason = %q", evt.Reason)
	}
	if evt.Metadata["error"] != "network unreachable" {
		t.Errorf("metadata error = %v", evt.Metadata["error"])
	}
}

func TestObserver_WithActionsFilters(t *testing.T) {
	rec := &captureRecorder{}
	o := audit.New(rec, audit.WithActions(audit.ActionFailed))
	ctx := context.Background()
	d := newTestDownload()

	_ = o.OnDownloadEnqueued(ctx, d)
	_ = o.OnDownloadCompleted(ctx, d, time.Second)
	_ = o.OnDownloadFailed(ctx, d, errors.New("boom"))

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1 (only failed enabled)", len(rec.events))
	}
	if rec.events[0].Action != audit.ActionFailed {
		t.Errorf("action = %q", rec.events[0].Action)
	}
}

func TestObserver_RecorderErrorIsReturned(t *testing.T) {
	recErr := errors.New("backend down")
	rec := &captureRecorder{err: recErr}
	o := audit.New(rec, audit.WithLogger(slog.New(slog.DiscardHandler)))

	if err := o.OnDownloadEnqueued(context.Background(), newTestDownload()); !errors.Is(err, recErr) {
		t.Errorf("err = %v, want %v", err, recErr)
	}
}

func TestRecorderFunc_Adapts(t *testing.T) {
	var got *audit.Event
	o := audit.New(audit.RecorderFunc(func(_ context.Context, e *audit.Event) error {
		got = e
		return nil
	}))

	_ = o.OnDownloadStarted(context.Background(), newTestDownload())
	if got == nil || got.Action != audit.ActionStarted {
		t.Fatalf("recorded = %+v", got)
	}
}

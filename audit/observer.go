package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pranabesh-official/camelot-downloader/ext"
	"github.com/pranabesh-official/camelot-downloader/job"
)

// Compile-time interface checks.
var (
	_ ext.Observer          = (*Observer)(nil)
	_ ext.DownloadEnqueued  = (*Observer)(nil)
	_ ext.DownloadStarted   = (*Observer)(nil)
	_ ext.DownloadCompleted = (*Observer)(nil)
	_ ext.DownloadFailed    = (*Observer)(nil)
	_ ext.DownloadRetrying  = (*Observer)(nil)
	_ ext.DownloadCancelled = (*Observer)(nil)
)

// Recorder is the interface audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// Event is a backend-neutral audit event.
type Event struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Observer bridges engine lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the
// [Recorder].
type Observer struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// Option configures an Observer.
type Option func(*Observer)

// WithActions restricts the observer to emit only the listed actions.
// By default all actions are enabled. Unknown actions are silently
// ignored.
func WithActions(actions ...string) Option {
	return func(o *Observer) {
		o.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			o.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the observer.
func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) { o.logger = l }
}

// New creates an Observer that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Observer {
	o := &Observer{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements ext.Observer.
func (o *Observer) Name() string { return "audit" }

// OnDownloadEnqueued implements ext.DownloadEnqueued.
func (o *Observer) OnDownloadEnqueued(ctx context.Context, d *job.Download) error {
	return o.record(ctx, ActionEnqueued, SeverityInfo, OutcomeSuccess, d.ID.String(), nil,
		"title", d.Title,
		"url", d.URL,
		"priority", d.Priority.String(),
	)
}

// OnDownloadStarted implements ext.DownloadStarted.
func (o *Observer) OnDownloadStarted(ctx context.Context, d *job.Download) error {
	return o.record(ctx, ActionStarted, SeverityInfo, OutcomeSuccess, d.ID.String(), nil,
		"title", d.Title,
		"attempt", d.RetryCount+1,
	)
}

// OnDownloadCompleted implements ext.DownloadCompleted.
func (o *Observer) OnDownloadCompleted(ctx context.Context, d *job.Download, elapsed time.Duration) error {
	return o.record(ctx, ActionCompleted, SeverityInfo, OutcomeSuccess, d.ID.String(), nil,
		"title", d.Title,
		"artifact_path", d.ArtifactPath,
		"file_size", d.FileSize,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnDownloadFailed implements ext.DownloadFailed.
func (o *Observer) OnDownloadFailed(ctx context.Context, d *job.Download, dlErr error) error {
	return o.record(ctx, ActionFailed, SeverityCritical, OutcomeFailure, d.ID.String(), dlErr,
		"title", d.Title,
		"retry_count", d.RetryCount,
		"max_retries", d.MaxRetries,
	)
}

// OnDownloadRetrying implements ext.DownloadRetrying.
func (o *Observer) OnDownloadRetrying(ctx context.Context, d *job.Download, attempt int) error {
	return o.record(ctx, ActionRetrying, SeverityWarning, OutcomeFailure, d.ID.String(), nil,
		"title", d.Title,
		"attempt", attempt,
		"max_retries", d.MaxRetries,
	)
}

// OnDownloadCancelled implements ext.DownloadCancelled.
func (o *Observer) OnDownloadCancelled(ctx context.Context, d *job.Download) error {
	return o.record(ctx, ActionCancelled, SeverityWarning, OutcomeSuccess, d.ID.String(), nil,
		"title", d.Title,
		"status", string(d.Status),
	)
}

func (o *Observer) record(
	ctx context.Context,
	action, severity, outcome, resourceID string,
	err error,
	kvPairs ...any,
) error {
	if o.enabled != nil && !o.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &Event{
		Action:     action,
		Resource:   ResourceDownload,
		Category:   CategoryDownload,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := o.recorder.Record(ctx, evt); recErr != nil {
		o.logger.Warn("audit: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
		return recErr
	}
	return nil
}

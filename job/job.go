package job

import (
	"time"

	"github.com/pranabesh-official/camelot-downloader/id"
)

// Priority orders pending downloads. Higher values are served first.
type Priority int

// Priority levels, lowest to highest.
const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// String returns the lowercase name of the priority level.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Status represents the lifecycle state of a download.
type Status string

const (
	// StatusQueued means the download is waiting in the pending queue.
	StatusQueued Status = "queued"
	// StatusRunning means a worker is currently executing the download.
	StatusRunning Status = "running"
	// StatusCompleted means the download finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the download failed and exhausted its retry budget.
	StatusFailed Status = "failed"
	// StatusCancelled means the download was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is an end state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Download represents one submitted download tracked end-to-end by ID.
//
// Identity fields (ID, URL, Title, Artist, Priority, Sequence) are set at
// creation and never change. Status fields are owned by the engine: callers
// read them through engine queries, which return copies.
type Download struct {
	ID       id.DownloadID `json:"id"`
	URL      string        `json:"url"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album,omitempty"`
	Priority Priority      `json:"priority"`

	// Sequence is a monotonic admission counter assigned on submission.
	// Among equal priorities, lower sequence pops first. Requeues keep
	// their sequence; Retry from the failed registry assigns a fresh one.
	Sequence uint64 `json:"sequence"`

	Status   Status  `json:"status"`
	Stage    string  `json:"stage"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`

	DownloadPath   string `json:"download_path,omitempty"`
	ArtifactPath   string `json:"artifact_path,omitempty"`
	FileSize       int64  `json:"file_size"`
	DownloadedSize int64  `json:"downloaded_size"`
	Quality        string `json:"quality"`
	Format         string `json:"format"`

	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	LastError  string `json:"error,omitempty"`

	CanCancel bool `json:"can_cancel"`
	CanRetry  bool `json:"can_retry"`

	// Timeout bounds a single execution attempt. Zero means no deadline,
	// matching the engine's historical behavior of never timing out a
	// hung fetcher call.
	Timeout time.Duration `json:"timeout,omitempty"`

	// RunAt is the earliest admission time for a requeued download. The
	// zero value means eligible immediately. Set by the engine from the
	// backoff strategy; never set by callers.
	RunAt time.Time `json:"run_at,omitzero"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// New creates a Download in queued state with a fresh ID and the given
// identity fields. Options override the defaults (normal priority,
// 320kbps mp3). The retry budget is left at zero; the engine fills it
// from its configuration at submission unless WithMaxRetries set one.
func New(url, title, artist string, opts ...Option) *Download {
	d := &Download{
		ID:        id.NewDownloadID(),
		URL:       url,
		Title:     title,
		Artist:    artist,
		Priority:  PriorityNormal,
		Status:    StatusQueued,
		Stage:     "queued",
		Message:   "Added to download queue",
		Quality:   "320kbps",
		Format:    "mp3",
		CanCancel: true,
		CreatedAt: time.Now().UTC(),
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	options.apply(d)

	return d
}

// Clone returns a deep copy of the download. The engine hands clones to
// observers and query callers so they can never race with worker mutation.
func (d *Download) Clone() *Download {
	cp := *d
	if d.Metadata != nil {
		cp.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			cp.Metadata[k] = v
		}
	}
	if d.StartedAt != nil {
		t := *d.StartedAt
		cp.StartedAt = &t
	}
	if d.EndedAt != nil {
		t := *d.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

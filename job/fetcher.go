package job

import "context"

// ProgressFunc reports an advisory progress tick for a running download.
// Progress is a percentage in [0, 100]; stage and message are free-text
// sub-stage decorations ("downloading", "converting", ...) that never
// affect scheduling. The engine clamps progress to be non-decreasing.
type ProgressFunc func(progress float64, stage, message string)

// Result describes the finalized artifact of a successful fetch.
type Result struct {
	// ArtifactPath is where the finished file landed.
	ArtifactPath string
	// FileSize is the artifact size in bytes, zero if unknown.
	FileSize int64
}

// Fetcher is the external job-executor capability. Fetch runs the actual
// download synchronously, emitting zero or more progress ticks before
// returning. The Download passed in is a private copy: Fetch reads it for
// the URL, destination, and format settings, and returns artifact details
// in the Result rather than mutating shared state.
//
// Fetch is called from a worker goroutine. The engine treats a panic
// inside Fetch as a failure outcome, not a crash.
type Fetcher interface {
	Fetch(ctx context.Context, d *Download, report ProgressFunc) (*Result, error)
}

// FetchFunc adapts a plain function to the Fetcher interface.
type FetchFunc func(ctx context.Context, d *Download, report ProgressFunc) (*Result, error)

// Fetch implements Fetcher.
func (f FetchFunc) Fetch(ctx context.Context, d *Download, report ProgressFunc) (*Result, error) {
	return f(ctx, d, report)
}

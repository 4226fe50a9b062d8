package job

import (
	"time"

	"github.com/pranabesh-official/camelot-downloader/id"
)

// Options configures per-download behavior such as priority, retries, and
// output settings.
type Options struct {
	id           id.DownloadID
	priority     Priority
	maxRetries   int
	album        string
	downloadPath string
	quality      string
	format       string
	timeout      time.Duration
	metadata     map[string]any
}

func defaultOptions() Options {
	return Options{
		priority: PriorityNormal,
		quality:  "320kbps",
		format:   "mp3",
	}
}

func (o Options) apply(d *Download) {
	if !o.id.IsNil() {
		d.ID = o.id
	}
	d.Priority = o.priority
	d.MaxRetries = o.maxRetries
	d.Quality = o.quality
	d.Format = o.format
	d.Album = o.album
	d.DownloadPath = o.downloadPath
	d.Timeout = o.timeout
	d.Metadata = o.metadata
}

// Option is a functional option for configuring a download at creation.
type Option func(*Options)

// WithID sets an explicit download ID. Submission with an ID already in the
// active registry is idempotent and returns the existing ID.
func WithID(downloadID id.DownloadID) Option {
	return func(o *Options) { o.id = downloadID }
}

// WithPriority sets the scheduling priority. Higher priorities pop first.
func WithPriority(p Priority) Option {
	return func(o *Options) { o.priority = p }
}

// WithMaxRetries sets the retry budget for fetcher failures. Zero leaves
// the budget to the engine's configured default at submission.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.maxRetries = n }
}

// WithAlbum sets the album tag carried on the record.
func WithAlbum(album string) Option {
	return func(o *Options) { o.album = album }
}

// WithDownloadPath sets the destination directory for this download,
// overriding the engine default.
func WithDownloadPath(path string) Option {
	return func(o *Options) { o.downloadPath = path }
}

// WithQuality sets the requested audio quality (e.g. "320kbps").
func WithQuality(quality string) Option {
	return func(o *Options) { o.quality = quality }
}

// WithFormat sets the requested output format (e.g. "mp3").
func WithFormat(format string) Option {
	return func(o *Options) { o.format = format }
}

// WithTimeout bounds a single execution attempt. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.timeout = d }
}

// WithMetadata attaches arbitrary metadata to the record. The engine never
// reads it; it rides along for observers and callers.
func WithMetadata(m map[string]any) Option {
	return func(o *Options) { o.metadata = m }
}

package downloader

import "errors"

var (
	// Not found errors.
	ErrNotFound     = errors.New("downloader: download not found")
	ErrNotRetryable = errors.New("downloader: download is not in a retryable state")

	// Submission errors.
	ErrInvalidDownload = errors.New("downloader: invalid download")

	// Lifecycle errors.
	ErrStopped   = errors.New("downloader: engine stopped")
	ErrNoFetcher = errors.New("downloader: no fetcher configured")
)

package middleware

import (
	"context"
	"log/slog"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Timeout returns middleware that enforces a per-download execution
// deadline. If the download has a non-zero Timeout, a context.WithTimeout
// wraps the fetcher call; when the deadline is exceeded the context is
// cancelled and the fetcher should return context.DeadlineExceeded.
//
// Downloads without a Timeout run unbounded, which is the engine's
// historical behavior for network-bound fetches.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *job.Download, next Handler) error {
		if d.Timeout > 0 {
			logger.Debug("download timeout set",
				slog.String("download_id", d.ID.String()),
				slog.Duration("timeout", d.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}

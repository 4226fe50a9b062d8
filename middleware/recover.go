package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Recover returns middleware that recovers from panics in the fetcher
// chain. Panics are converted to errors and logged with a stack trace, so
// a buggy fetcher degrades into a failed download instead of crashing a
// worker goroutine.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *job.Download, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("fetcher panicked",
					slog.String("download_id", d.ID.String()),
					slog.String("url", d.URL),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in download %s: %v", d.ID, r)
			}
		}()
		return next(ctx)
	}
}

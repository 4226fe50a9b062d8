package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Logging returns middleware that logs the start and outcome of each
// download attempt.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *job.Download, next Handler) error {
		logger.Info("download attempt started",
			slog.String("download_id", d.ID.String()),
			slog.String("title", d.Title),
			slog.String("artist", d.Artist),
			slog.Int("attempt", d.RetryCount+1),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("download attempt failed",
				slog.String("download_id", d.ID.String()),
				slog.String("title", d.Title),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("download attempt completed",
				slog.String("download_id", d.ID.String()),
				slog.String("title", d.Title),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}

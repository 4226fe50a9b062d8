// Package ytdlp adapts the yt-dlp command wrapper to the engine's
// Fetcher interface. It downloads the best available audio stream,
// extracts it to the requested format, and maps yt-dlp's byte-level
// progress into the 30–90% band of the download's progress bar (the
// bands below and above are reserved for setup and post-processing).
package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Compile-time interface check.
var _ job.Fetcher = (*Fetcher)(nil)

// Fetcher runs downloads through yt-dlp.
type Fetcher struct {
	progressInterval time.Duration
	logger           *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithProgressInterval sets how often yt-dlp progress is sampled.
func WithProgressInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.progressInterval = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// New creates a yt-dlp backed Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		progressInterval: 500 * time.Millisecond,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements job.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, d *job.Download, report job.ProgressFunc) (*job.Result, error) {
	dir, err := resolveDir(d.DownloadPath)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}

	format := d.Format
	if format == "" {
		format = "mp3"
	}

	base := safeTitle(fmt.Sprintf("%s - %s", d.Artist, d.Title))
	finalPath := uniquePath(dir, base, format)

	report(10, "downloading", "Downloading audio...")

	cmd := goytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(format).
		AudioQuality(audioQuality(d.Quality)).
		Output(templateFor(finalPath))

	cmd.ProgressFunc(f.progressInterval, func(update goytdlp.ProgressUpdate) {
		if update.TotalBytes == 0 {
			return
		}
		// Byte progress maps to 30–90; extraction and tagging fill the rest.
		pct := 30 + float64(update.DownloadedBytes)/float64(update.TotalBytes)*60
		if pct > 90 {
			pct = 90
		}
		msg := fmt.Sprintf("Downloading... %d%%", int(pct))
		if eta := update.ETA(); eta > 0 {
			msg = fmt.Sprintf("Downloading... %d%% (ETA %s)", int(pct), eta.Round(time.Second))
		}
		report(pct, "downloading", msg)
	})

	f.logger.Info("yt-dlp download starting",
		slog.String("url", d.URL),
		slog.String("destination", finalPath),
	)

	res, err := cmd.Run(ctx, d.URL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	report(90, "converting", "Download complete, processing...")

	artifact := finalPath
	if _, statErr := os.Stat(artifact); statErr != nil {
		// yt-dlp occasionally lands on a different extension; trust its
		// own record of what it wrote.
		if found := extractedFilename(res); found != "" {
			artifact = found
		} else {
			return nil, fmt.Errorf("yt-dlp finished but no file at %s", finalPath)
		}
	}

	var size int64
	if info, statErr := os.Stat(artifact); statErr == nil {
		size = info.Size()
	}

	report(95, "finalizing", "Finalizing download...")

	return &job.Result{ArtifactPath: artifact, FileSize: size}, nil
}

// resolveDir validates the destination directory, falling back to
// ~/Music/CAMELOTDJ when unset, and creates it if needed.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Music", "CAMELOTDJ")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// safeTitle strips a display name down to filesystem-safe characters,
// capped at 200 runes.
func safeTitle(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if runes := []rune(s); len(runes) > 200 {
		s = strings.TrimSpace(string(runes[:200]))
	}
	if s == "" {
		s = fmt.Sprintf("download_%d", time.Now().Unix())
	}
	return s
}

// uniquePath joins dir, base, and ext, appending a timestamp suffix when
// the file already exists so an earlier download is never overwritten.
func uniquePath(dir, base, ext string) string {
	p := filepath.Join(dir, base+"."+ext)
	if _, err := os.Stat(p); err == nil {
		p = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, time.Now().Unix(), ext))
	}
	return p
}

// templateFor converts a concrete output path into a yt-dlp output
// template, letting yt-dlp pick the intermediate extension.
func templateFor(finalPath string) string {
	ext := filepath.Ext(finalPath)
	return strings.TrimSuffix(finalPath, ext) + ".%(ext)s"
}

// audioQuality converts a display quality like "320kbps" into the
// bitrate form yt-dlp expects.
func audioQuality(quality string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, quality)
	if digits == "" {
		digits = "320"
	}
	return digits + "K"
}

// extractedFilename pulls the first recorded output file from a yt-dlp
// result, or "" when none is available.
func extractedFilename(res *goytdlp.Result) string {
	if res == nil {
		return ""
	}
	info, err := res.GetExtractedInfo()
	if err != nil || len(info) == 0 {
		return ""
	}
	if info[0].Filename == nil {
		return ""
	}
	return *info[0].Filename
}

package resource

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Thresholds are the usage percentages above which the gate denies
// admission.
type Thresholds struct {
	CPU    float64
	Memory float64
	Disk   float64
}

// DefaultThresholds returns the stock limits: CPU 80%, memory 80%,
// disk 90%.
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: 80.0, Memory: 80.0, Disk: 90.0}
}

// Gate decides whether the system has headroom for another download.
// It caches probe samples for a short TTL to avoid hammering the probe
// from a tight dispatch loop.
//
// The gate fails open: when the probe errors, Admit returns true. This is
// a deliberate availability-over-throttling tradeoff — a broken probe must
// never starve the whole pipeline.
type Gate struct {
	probe      Probe
	thresholds Thresholds
	diskPath   string
	ttl        time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	last      Sample
	lastOK    bool
	sampledAt time.Time
}

// NewGate creates a Gate over the given probe. diskPath names the volume
// checked against the disk threshold; empty skips the disk check. ttl is
// how long a sample is reused; zero samples on every Admit.
func NewGate(probe Probe, thresholds Thresholds, diskPath string, ttl time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		probe:      probe,
		thresholds: thresholds,
		diskPath:   diskPath,
		ttl:        ttl,
		logger:     logger,
	}
}

// Admit reports whether a new download may be admitted right now.
func (g *Gate) Admit(ctx context.Context) bool {
	sample, ok := g.sample(ctx)
	if !ok {
		// Fail open.
		return true
	}

	if sample.CPU > g.thresholds.CPU {
		g.logger.Warn("admission denied: cpu usage too high",
			slog.Float64("cpu_pct", sample.CPU),
			slog.Float64("threshold", g.thresholds.CPU),
		)
		return false
	}
	if sample.Memory > g.thresholds.Memory {
		g.logger.Warn("admission denied: memory usage too high",
			slog.Float64("memory_pct", sample.Memory),
			slog.Float64("threshold", g.thresholds.Memory),
		)
		return false
	}
	if sample.DiskSampled && sample.Disk > g.thresholds.Disk {
		g.logger.Warn("admission denied: disk usage too high",
			slog.Float64("disk_pct", sample.Disk),
			slog.Float64("threshold", g.thresholds.Disk),
			slog.String("path", g.diskPath),
		)
		return false
	}

	return true
}

// sample returns a cached or fresh probe reading. ok is false when the
// probe failed and no decision should be made from the sample.
func (g *Gate) sample(ctx context.Context) (Sample, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastOK && g.ttl > 0 && time.Since(g.sampledAt) < g.ttl {
		return g.last, true
	}

	s, err := g.probe.Sample(ctx, g.diskPath)
	if err != nil {
		g.logger.Warn("resource probe failed, admitting anyway",
			slog.String("error", err.Error()),
		)
		g.lastOK = false
		return Sample{}, false
	}

	g.last = s
	g.lastOK = true
	g.sampledAt = time.Now()
	return s, true
}

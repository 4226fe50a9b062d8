package downloader

import "time"

// Config holds tuning parameters for the download engine.
type Config struct {
	// Concurrency is the maximum number of downloads executed in parallel.
	// It also bounds the active registry size.
	Concurrency int

	// MaxRetries is the default retry budget applied to jobs that do not
	// set their own.
	MaxRetries int

	// CPUThreshold is the CPU usage percentage above which the resource
	// gate denies new admissions.
	CPUThreshold float64

	// MemoryThreshold is the memory usage percentage above which the
	// resource gate denies new admissions.
	MemoryThreshold float64

	// DiskThreshold is the disk usage percentage (of DownloadDir's volume)
	// above which the resource gate denies new admissions. Only checked
	// when DownloadDir is set.
	DiskThreshold float64

	// DownloadDir is the default destination directory. When set, the
	// resource gate samples its volume for the disk threshold.
	DownloadDir string

	// IdleInterval is how long the dispatch loop sleeps when the active
	// registry is at capacity.
	IdleInterval time.Duration

	// GateInterval is how long the dispatch loop sleeps after the
	// resource gate denies admission.
	GateInterval time.Duration

	// PopTimeout bounds each blocking pop on the pending queue so the
	// dispatch loop can observe shutdown promptly.
	PopTimeout time.Duration

	// SampleTTL is how long a resource probe sample is reused before the
	// probe is queried again. Zero samples on every gate check.
	SampleTTL time.Duration

	// ShutdownTimeout is the maximum time Stop waits for the dispatch
	// loop and in-flight downloads to drain.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     3,
		MaxRetries:      3,
		CPUThreshold:    80.0,
		MemoryThreshold: 80.0,
		DiskThreshold:   90.0,
		IdleInterval:    500 * time.Millisecond,
		GateInterval:    2 * time.Second,
		PopTimeout:      1 * time.Second,
		SampleTTL:       1 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

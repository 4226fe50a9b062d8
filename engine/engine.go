// Package engine wires the downloader subsystems together: the pending
// queue, the resource gate, the observer registry, the middleware chain,
// and the worker pool. It owns all download state transitions and exposes
// the submit/cancel/retry/query surface.
//
// This package sits above all subsystem packages and below the
// application layer; the root package holds only shared types (Config,
// sentinel errors) so that subsystems can import it without cycles.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	downloader "github.com/pranabesh-official/camelot-downloader"
	"github.com/pranabesh-official/camelot-downloader/backoff"
	"github.com/pranabesh-official/camelot-downloader/ext"
	"github.com/pranabesh-official/camelot-downloader/job"
	mw "github.com/pranabesh-official/camelot-downloader/middleware"
	"github.com/pranabesh-official/camelot-downloader/observability"
	"github.com/pranabesh-official/camelot-downloader/queue"
	"github.com/pranabesh-official/camelot-downloader/resource"
	"github.com/pranabesh-official/camelot-downloader/worker"
)

// Engine is the download queue manager. Create one with New, feed it
// with Submit, and observe it through the ext.Registry.
type Engine struct {
	cfg           downloader.Config
	logger        *slog.Logger
	fetcher       job.Fetcher
	observers     *ext.Registry
	gate          *resource.Gate
	probe         resource.Probe
	thresholds    resource.Thresholds
	thresholdsSet bool
	bo            backoff.Strategy
	hosts         *queue.HostLimiter
	executor      *worker.Executor
	mws           []mw.Middleware

	pending *queue.Pending

	// mu guards the five registries, the sequence counter, and the
	// host bookkeeping. One lock for the whole state keeps every
	// transition atomic with respect to queries.
	mu           sync.Mutex
	queued       map[string]*job.Download
	active       map[string]*job.Download
	completed    map[string]*job.Download
	failed       map[string]*job.Download
	cancelled    map[string]*job.Download
	hostOf       map[string]hostLease
	nextSequence uint64

	concurrency atomic.Int64

	runMu    sync.Mutex
	running  bool
	stopCh   chan struct{}
	loopDone chan struct{}

	poolMu sync.Mutex
	pool   *worker.Pool

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	pendingObservers []ext.Observer
}

// hostLease records the host slot held by one admitted attempt. The
// sequence ties the lease to that attempt so a stale outcome from a
// superseded attempt cannot release a newer attempt's slot.
type hostLease struct {
	host string
	seq  uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the whole configuration. Field-level options
// applied after this override individual values.
func WithConfig(cfg downloader.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithConcurrency sets the number of simultaneously running downloads.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.cfg.Concurrency = n }
}

// WithMaxRetries sets the default retry budget applied to downloads that
// do not carry their own.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.cfg.MaxRetries = n }
}

// WithDownloadDir sets the default destination directory. It is also the
// volume checked against the disk threshold.
func WithDownloadDir(dir string) Option {
	return func(e *Engine) { e.cfg.DownloadDir = dir }
}

// WithProbe replaces the resource probe. Defaults to the gopsutil-backed
// system probe.
func WithProbe(p resource.Probe) Option {
	return func(e *Engine) { e.probe = p }
}

// WithThresholds sets the resource admission thresholds, overriding the
// CPU/memory/disk threshold fields of the configuration.
func WithThresholds(t resource.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
		e.thresholdsSet = true
	}
}

// WithBackoff sets the retry backoff strategy. If not set,
// backoff.DefaultStrategy() (immediate requeue) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) { e.bo = b }
}

// WithHostLimits configures per-source-host rate limiting and
// concurrency. Hosts not listed have no limits.
func WithHostLimits(configs ...queue.HostConfig) Option {
	return func(e *Engine) { e.hosts = queue.NewHostLimiter(configs...) }
}

// WithObserver registers a lifecycle observer with the engine.
func WithObserver(o ext.Observer) Option {
	return func(e *Engine) { e.pendingObservers = append(e.pendingObservers, o) }
}

// WithMiddleware appends middleware to the engine's execution chain,
// after the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, both the
// metrics middleware and the observability extension use this provider
// instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New creates an Engine around the given Fetcher. The engine is idle
// until Start is called; Submit and Retry start it lazily.
func New(fetcher job.Fetcher, opts ...Option) (*Engine, error) {
	if fetcher == nil {
		return nil, downloader.ErrNoFetcher
	}

	e := &Engine{
		cfg:       downloader.DefaultConfig(),
		logger:    slog.Default(),
		fetcher:   fetcher,
		pending:   queue.NewPending(),
		queued:    make(map[string]*job.Download),
		active:    make(map[string]*job.Download),
		completed: make(map[string]*job.Download),
		failed:    make(map[string]*job.Download),
		cancelled: make(map[string]*job.Download),
		hostOf:    make(map[string]hostLease),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cfg.Concurrency < 1 {
		e.cfg.Concurrency = 1
	}
	e.concurrency.Store(int64(e.cfg.Concurrency))

	if e.bo == nil {
		e.bo = backoff.DefaultStrategy()
	}
	if e.probe == nil {
		e.probe = resource.NewSystemProbe()
	}
	if !e.thresholdsSet {
		e.thresholds = resource.Thresholds{
			CPU:    e.cfg.CPUThreshold,
			Memory: e.cfg.MemoryThreshold,
			Disk:   e.cfg.DiskThreshold,
		}
	}
	e.gate = resource.NewGate(e.probe, e.thresholds, e.cfg.DownloadDir, e.cfg.SampleTTL, e.logger)

	e.observers = ext.NewRegistry(e.logger)

	// Register the observability metrics extension first so system-wide
	// counters see every event.
	var obsExt *observability.MetricsExtension
	if e.meterProvider != nil {
		meter := e.meterProvider.Meter("github.com/pranabesh-official/camelot-downloader/observability")
		obsExt = observability.NewMetricsExtensionWithMeter(meter)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	e.observers.Register(obsExt)

	for _, o := range e.pendingObservers {
		e.observers.Register(o)
	}
	e.pendingObservers = nil

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if e.tracerProvider != nil {
		tracer := e.tracerProvider.Tracer("github.com/pranabesh-official/camelot-downloader")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if e.meterProvider != nil {
		meter := e.meterProvider.Meter("github.com/pranabesh-official/camelot-downloader")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
		mw.Timeout(e.logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(e.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, e.mws...)

	e.executor = worker.NewExecutor(fetcher, e.onProgress, e.onOutcome, e.logger, allMws...)

	return e, nil
}

// Observers returns the observer registry. Register additional observers
// before starting the engine.
func (e *Engine) Observers() *ext.Registry { return e.observers }

// Concurrency returns the current worker cap.
func (e *Engine) Concurrency() int { return int(e.concurrency.Load()) }

// HostLimiter returns the per-host limiter, or nil if no host limits
// were configured.
func (e *Engine) HostLimiter() *queue.HostLimiter { return e.hosts }

func (e *Engine) currentPool() *worker.Pool {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()
	return e.pool
}

func (e *Engine) activeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

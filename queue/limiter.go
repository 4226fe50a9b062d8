package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// HostConfig defines per-source-host behaviour such as rate limiting and
// concurrency. Hosts not configured have no limits.
type HostConfig struct {
	// Host is the source hostname (must match the URL host of submitted
	// downloads).
	Host string

	// MaxConcurrent limits how many downloads from this host may run
	// simultaneously. Zero means no host-specific limit (the engine's
	// concurrency cap still applies).
	MaxConcurrent int

	// RateLimit is the maximum sustained admissions per second from this
	// host. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// hostState tracks runtime state for a single host.
type hostState struct {
	config  HostConfig
	limiter *rate.Limiter
	active  int
}

// HostLimiter controls per-host rate limiting and concurrency. The dispatch
// loop calls Acquire before admitting a popped download and Release after
// its execution finishes. It is safe for concurrent use.
type HostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*hostState
}

// NewHostLimiter creates a HostLimiter with the given host configurations.
func NewHostLimiter(configs ...HostConfig) *HostLimiter {
	l := &HostLimiter{
		hosts: make(map[string]*hostState, len(configs)),
	}
	for _, cfg := range configs {
		l.hosts[cfg.Host] = newHostState(cfg)
	}
	return l
}

func newHostState(cfg HostConfig) *hostState {
	hs := &hostState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		hs.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return hs
}

// Acquire checks rate limits and concurrency for the given host. If the
// download is allowed to proceed it increments the active counter and
// returns true. The caller MUST call Release when the download completes.
// Unconfigured hosts are always allowed.
func (l *HostLimiter) Acquire(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	hs := l.hosts[host]
	if hs == nil {
		return true
	}
	if hs.limiter != nil && !hs.limiter.Allow() {
		return false
	}
	if hs.config.MaxConcurrent > 0 && hs.active >= hs.config.MaxConcurrent {
		return false
	}
	hs.active++
	return true
}

// Release decrements the active count for the host.
func (l *HostLimiter) Release(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if hs := l.hosts[host]; hs != nil && hs.active > 0 {
		hs.active--
	}
}

// SetHostConfig dynamically updates (or creates) a host configuration,
// preserving the current active count.
func (l *HostLimiter) SetHostConfig(cfg HostConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.hosts[cfg.Host]
	hs := newHostState(cfg)
	if existing != nil {
		hs.active = existing.active
	}
	l.hosts[cfg.Host] = hs
}

// ActiveCount returns the current number of active downloads for a host.
func (l *HostLimiter) ActiveCount(host string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hs := l.hosts[host]; hs != nil {
		return hs.active
	}
	return 0
}

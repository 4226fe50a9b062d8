package resource_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pranabesh-official/camelot-downloader/resource"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fixedProbe(s resource.Sample) resource.Probe {
	return resource.ProbeFunc(func(_ context.Context, _ string) (resource.Sample, error) {
		return s, nil
	})
}

func TestAdmit_UnderThresholds(t *testing.T) {
	g := resource.NewGate(
		fixedProbe(resource.Sample{CPU: 10, Memory: 20}),
		resource.DefaultThresholds(), "", 0, discardLogger(),
	)

	if !g.Admit(context.Background()) {
		t.Error("Admit = false with all metrics under thresholds")
	}
}

func TestAdmit_DeniesPerMetric(t *testing.T) {
	tests := []struct {
		name   string
		sample resource.Sample
	}{
		{"cpu above threshold", resource.Sample{CPU: 95, Memory: 10}},
		{"memory above threshold", resource.Sample{CPU: 10, Memory: 85}},
		{"disk above threshold", resource.Sample{CPU: 10, Memory: 10, Disk: 95, DiskSampled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := resource.NewGate(fixedProbe(tt.sample),
				resource.DefaultThresholds(), "/downloads", 0, discardLogger())
			if g.Admit(context.Background()) {
				t.Errorf("Admit = true for %+v, want false", tt.sample)
			}
		})
	}
}

func TestAdmit_IgnoresUnsampledDisk(t *testing.T) {
	// Disk value present but not flagged as sampled: no destination path
	// was configured, so the disk threshold must not apply.
	g := resource.NewGate(
		fixedProbe(resource.Sample{CPU: 10, Memory: 10, Disk: 99}),
		resource.DefaultThresholds(), "", 0, discardLogger(),
	)

	if !g.Admit(context.Background()) {
		t.Error("Admit = false on unsampled disk reading")
	}
}

func TestAdmit_FailsOpenOnProbeError(t *testing.T) {
	probe := resource.ProbeFunc(func(_ context.Context, _ string) (resource.Sample, error) {
		return resource.Sample{}, errors.New("probe unavailable")
	})
	g := resource.NewGate(probe, resource.DefaultThresholds(), "", 0, discardLogger())

	if !g.Admit(context.Background()) {
		t.Error("Admit = false on probe error, want fail-open true")
	}
}

func TestAdmit_CachesSamplesWithinTTL(t *testing.T) {
	var calls atomic.Int64
	probe := resource.ProbeFunc(func(_ context.Context, _ string) (resource.Sample, error) {
		calls.Add(1)
		return resource.Sample{CPU: 10, Memory: 10}, nil
	})
	g := resource.NewGate(probe, resource.DefaultThresholds(), "", time.Minute, discardLogger())

	for range 10 {
		g.Admit(context.Background())
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("probe called %d times within TTL, want 1", got)
	}
}

func TestAdmit_ZeroTTLSamplesEveryTime(t *testing.T) {
	var calls atomic.Int64
	probe := resource.ProbeFunc(func(_ context.Context, _ string) (resource.Sample, error) {
		calls.Add(1)
		return resource.Sample{}, nil
	})
	g := resource.NewGate(probe, resource.DefaultThresholds(), "", 0, discardLogger())

	for range 5 {
		g.Admit(context.Background())
	}

	if got := calls.Load(); got != 5 {
		t.Errorf("probe called %d times with zero TTL, want 5", got)
	}
}

func TestAdmit_ErrorIsNotCached(t *testing.T) {
	var calls atomic.Int64
	probe := resource.ProbeFunc(func(_ context.Context, _ string) (resource.Sample, error) {
		if calls.Add(1) == 1 {
			return resource.Sample{}, errors.New("transient")
		}
		return resource.Sample{CPU: 95}, nil
	})
	g := resource.NewGate(probe, resource.DefaultThresholds(), "", time.Minute, discardLogger())

	if !g.Admit(context.Background()) {
		t.Fatal("first Admit should fail open")
	}
	// The failed sample must not satisfy the TTL cache; the second call
	// re-probes and sees the hot CPU.
	if g.Admit(context.Background()) {
		t.Error("second Admit = true, want false from fresh sample")
	}
}

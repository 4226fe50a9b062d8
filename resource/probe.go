// Package resource guards admission against system resource pressure. A
// Probe samples CPU, memory, and disk usage; the Gate compares samples to
// configured thresholds and yields an admit/deny decision for the dispatch
// loop. A broken probe never starves the pipeline: the gate fails open.
package resource

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sample is a point-in-time reading of system resource usage, all values
// percentages in [0, 100]. Disk is only meaningful when DiskSampled is set
// (a destination path was given and its volume could be read).
type Sample struct {
	CPU         float64
	Memory      float64
	Disk        float64
	DiskSampled bool
}

// Probe is the external resource-sampling capability. diskPath names the
// volume to sample for disk usage; empty skips the disk reading.
type Probe interface {
	Sample(ctx context.Context, diskPath string) (Sample, error)
}

// ProbeFunc adapts a plain function to the Probe interface.
type ProbeFunc func(ctx context.Context, diskPath string) (Sample, error)

// Sample implements Probe.
func (f ProbeFunc) Sample(ctx context.Context, diskPath string) (Sample, error) {
	return f(ctx, diskPath)
}

// SystemProbe samples the local machine via gopsutil.
type SystemProbe struct{}

// NewSystemProbe returns a Probe backed by gopsutil.
func NewSystemProbe() *SystemProbe { return &SystemProbe{} }

// Sample reads CPU, memory, and (when diskPath is non-empty) disk usage.
// The CPU reading is non-blocking: it reports usage since the previous
// call, so the first sample of a process may read zero. The gate's sample
// cache keeps the call rate low enough for the delta to be meaningful.
func (p *SystemProbe) Sample(ctx context.Context, diskPath string) (Sample, error) {
	var s Sample

	cpuPct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, err
	}
	if len(cpuPct) > 0 {
		s.CPU = cpuPct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}
	s.Memory = vm.UsedPercent

	if diskPath != "" {
		usage, err := disk.UsageWithContext(ctx, diskPath)
		if err != nil {
			return Sample{}, err
		}
		s.Disk = usage.UsedPercent
		s.DiskSampled = true
	}

	return s, nil
}

package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pranabesh-official/camelot-downloader/job"
	"github.com/pranabesh-official/camelot-downloader/observability"
)

func newTestExtension(t *testing.T) (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsExtension_CountsLifecycleEvents(t *testing.T) {
	ext, reader := newTestExtension(t)
	ctx := context.Background()
	d := job.New("https://example.com/track", "Track", "Artist")

	for range 3 {
		if err := ext.OnDownloadEnqueued(ctx, d); err != nil {
			t.Fatalf("enqueued hook: %v", err)
		}
	}
	_ = ext.OnDownloadStarted(ctx, d)
	_ = ext.OnDownloadCompleted(ctx, d, 2*time.Second)
	_ = ext.OnDownloadFailed(ctx, d, errors.New("boom"))
	_ = ext.OnDownloadRetrying(ctx, d, 1)
	_ = ext.OnDownloadRetrying(ctx, d, 2)
	_ = ext.OnDownloadCancelled(ctx, d)

	tests := []struct {
		name string
		want int64
	}{
		{"downloader.enqueued", 3},
		{"downloader.started", 1},
		{"downloader.completed", 1},
		{"downloader.failed", 1},
		{"downloader.retried", 2},
		{"downloader.cancelled", 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, reader, tt.name); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestMetricsExtension_RecordsCompletionDuration(t *testing.T) {
	ext, reader := newTestExtension(t)
	d := job.New("https://example.com/track", "Track", "Artist")

	_ = ext.OnDownloadCompleted(context.Background(), d, 1500*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "downloader.duration" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("expected Histogram[float64], got %T", m.Data)
			}
			if len(hist.DataPoints) != 1 {
				t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
			}
			if got := hist.DataPoints[0].Sum; got != 1.5 {
				t.Errorf("duration sum = %v, want 1.5", got)
			}
			return
		}
	}
	t.Fatal("downloader.duration metric not found")
}

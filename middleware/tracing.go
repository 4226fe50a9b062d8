package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// tracerName is the instrumentation scope name for downloader tracing.
const tracerName = "github.com/pranabesh-official/camelot-downloader"

// Tracing returns middleware that wraps each download attempt in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: downloader.id, downloader.url,
// downloader.priority, downloader.retry_count. On error, the span status
// is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, d *job.Download, next Handler) error {
		ctx, span := tracer.Start(ctx, "downloader.fetch",
			trace.WithAttributes(
				attribute.String("downloader.id", d.ID.String()),
				attribute.String("downloader.url", d.URL),
				attribute.String("downloader.priority", d.Priority.String()),
				attribute.Int("downloader.retry_count", d.RetryCount),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}

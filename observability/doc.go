// Package observability provides an OpenTelemetry-based metrics observer
// for the download engine. The MetricsExtension implements lifecycle
// hooks to record system-wide counters for enqueue, start, completion,
// failure, retry, and cancellation events, plus a duration histogram for
// completed downloads.
//
// For per-attempt tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability

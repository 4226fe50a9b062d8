// Package queue provides the pending-download store — a blocking priority
// queue ordered by (priority desc, sequence asc) — and an optional
// per-source-host admission limiter.
package queue

// Package job defines the download record — the unit of work tracked
// end-to-end by the engine — along with its priority and status enums,
// creation options, and the Fetcher capability contract that performs the
// actual download.
package job

// Package downloader provides a bounded-concurrency, priority-ordered
// download queue engine. It schedules long-running, failure-prone download
// jobs under a concurrency cap, throttles admission on system resource
// pressure, tracks each job through its lifecycle, retries failures with a
// bounded budget, and fans progress/completion/error events out to
// registered observers.
//
// The engine is a library, not a service. Construct one with a Fetcher (the
// capability that actually moves bytes) and submit jobs as ordinary Go
// values:
//
//	eng, err := engine.New(fetcher,
//	    engine.WithConcurrency(3),
//	    engine.WithLogger(logger),
//	)
//	if err != nil { ... }
//	id, err := eng.Submit(ctx, job.New("https://...", "Title", "Artist"))
//
// All engine state is in-memory; nothing survives a process restart. The
// download mechanics (network I/O, audio extraction, file layout) live
// behind the job.Fetcher interface, and system resource sampling behind
// resource.Probe, so both can be faked in tests.
package downloader

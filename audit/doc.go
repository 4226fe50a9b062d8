// Package audit bridges download lifecycle events to an audit trail
// backend. Register the Observer with the engine and every enqueue,
// start, completion, failure, retry, and cancellation becomes a
// structured audit event pushed through an injected Recorder.
//
// The Recorder interface is defined locally so this package carries no
// backend dependency — callers adapt their audit system with a
// RecorderFunc at wiring time.
package audit

package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pranabesh-official/camelot-downloader/ext"
	"github.com/pranabesh-official/camelot-downloader/job"
)

// allHooksObserver implements every lifecycle hook for testing.
type allHooksObserver struct {
	calls []string
}

func (o *allHooksObserver) Name() string { return "all-hooks" }

func (o *allHooksObserver) OnDownloadEnqueued(_ context.Context, _ *job.Download) error {
	o.calls = append(o.calls, "OnDownloadEnqueued")
	return nil
}

func (o *allHooksObserver) OnDownloadStarted(_ context.Context, _ *job.Download) error {
	o.calls = append(o.calls, "OnDownloadStarted")
	return nil
}

func (o *allHooksObserver) OnDownloadProgress(_ context.Context, _ *job.Download) error {
	o.calls = append(o.calls, "OnDownloadProgress")
	return nil
}

func (o *allHooksObserver) OnDownloadCompleted(_ context.Context, _ *job.Download, _ time.Duration) error {
	o.calls = append(o.calls, "OnDownloadCompleted")
	return nil
}

func (o *allHooksObserver) OnDownloadFailed(_ context.Context, _ *job.Download, _ error) error {
	o.calls = append(o.calls, "OnDownloadFailed")
	return nil
}

func (o *allHooksObserver) OnDownloadRetrying(_ context.Context, _ *job.Download, _ int) error {
	o.calls = append(o.calls, "OnDownloadRetrying")
	return nil
}

func (o *allHooksObserver) OnDownloadCancelled(_ context.Context, _ *job.Download) error {
	o.calls = append(o.calls, "OnDownloadCancelled")
	return nil
}

func (o *allHooksObserver) OnShutdown(_ context.Context) error {
	o.calls = append(o.calls, "OnShutdown")
	return nil
}

// progressOnlyObserver only implements the progress hook.
type progressOnlyObserver struct {
	calls int
}

func (o *progressOnlyObserver) Name() string { return "progress-only" }

func (o *progressOnlyObserver) OnDownloadProgress(_ context.Context, _ *job.Download) error {
	o.calls++
	return nil
}

// failingObserver returns errors from every hook it implements.
type failingObserver struct{}

func (o *failingObserver) Name() string { return "failing" }

func (o *failingObserver) OnDownloadProgress(_ context.Context, _ *job.Download) error {
	return errors.New("boom")
}

// panickingObserver panics inside its hook.
type panickingObserver struct{}

func (o *panickingObserver) Name() string { return "panicking" }

func (o *panickingObserver) OnDownloadProgress(_ context.Context, _ *job.Download) error {
	panic("observer bug")
}

// orderedObserver records emissions into a shared slice to verify
// registration order.
type orderedObserver struct {
	name string
	log  *[]string
}

func (o *orderedObserver) Name() string { return o.name }

func (o *orderedObserver) OnDownloadCompleted(_ context.Context, _ *job.Download, _ time.Duration) error {
	*o.log = append(*o.log, o.name)
	return nil
}

func newRegistry() *ext.Registry {
	return ext.NewRegistry(slog.New(slog.DiscardHandler))
}

func testDownload() *job.Download {
	return job.New("https://example.com", "Song", "Artist")
}

func TestRegistry_EmitsToImplementedHooks(t *testing.T) {
	r := newRegistry()
	all := &allHooksObserver{}
	r.Register(all)

	ctx := context.Background()
	d := testDownload()

	r.EmitEnqueued(ctx, d)
	r.EmitStarted(ctx, d)
	r.EmitProgress(ctx, d)
	r.EmitCompleted(ctx, d, time.Second)
	r.EmitFailed(ctx, d, errors.New("x"))
	r.EmitRetrying(ctx, d, 1)
	r.EmitCancelled(ctx, d)
	r.EmitShutdown(ctx)

	want := []string{
		"OnDownloadEnqueued",
		"OnDownloadStarted",
		"OnDownloadProgress",
		"OnDownloadCompleted",
		"OnDownloadFailed",
		"OnDownloadRetrying",
		"OnDownloadCancelled",
		"OnShutdown",
	}
	if len(all.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", all.calls, want)
	}
	for i := range want {
		if all.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, all.calls[i], want[i])
		}
	}
}

func TestRegistry_SkipsUnimplementedHooks(t *testing.T) {
	r := newRegistry()
	po := &progressOnlyObserver{}
	r.Register(po)

	ctx := context.Background()
	d := testDownload()

	// None of these are implemented; they must be no-ops.
	r.EmitEnqueued(ctx, d)
	r.EmitCompleted(ctx, d, time.Second)
	r.EmitShutdown(ctx)

	r.EmitProgress(ctx, d)
	if po.calls != 1 {
		t.Errorf("progress calls = %d, want 1", po.calls)
	}
}

func TestRegistry_FailingObserverDoesNotBlockOthers(t *testing.T) {
	r := newRegistry()
	r.Register(&failingObserver{})
	after := &progressOnlyObserver{}
	r.Register(after)

	r.EmitProgress(context.Background(), testDownload())

	if after.calls != 1 {
		t.Error("observer after a failing one was not invoked")
	}
}

func TestRegistry_PanickingObserverIsIsolated(t *testing.T) {
	r := newRegistry()
	r.Register(&panickingObserver{})
	after := &progressOnlyObserver{}
	r.Register(after)

	// Must not panic the caller.
	r.EmitProgress(context.Background(), testDownload())

	if after.calls != 1 {
		t.Error("observer after a panicking one was not invoked")
	}
}

func TestRegistry_InvokesInRegistrationOrder(t *testing.T) {
	r := newRegistry()
	var order []string
	r.Register(&orderedObserver{name: "first", log: &order})
	r.Register(&orderedObserver{name: "second", log: &order})
	r.Register(&orderedObserver{name: "third", log: &order})

	r.EmitCompleted(context.Background(), testDownload(), time.Second)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

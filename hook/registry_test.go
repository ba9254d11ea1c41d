package hook_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobSubmitted(_ context.Context, _ string, _ int) error {
	e.calls = append(e.calls, "OnJobSubmitted")
	return nil
}

func (e *allHooksExt) OnJobCompleted(_ context.Context, _ string, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

func (e *allHooksExt) OnJobAbandoned(_ context.Context, _ musicai.FailureKind, _ error) error {
	e.calls = append(e.calls, "OnJobAbandoned")
	return nil
}

func (e *allHooksExt) OnArtifactRejected(_ context.Context, _ string, _ float64) error {
	e.calls = append(e.calls, "OnArtifactRejected")
	return nil
}

func (e *allHooksExt) OnAccountRotated(_ context.Context, _, _ int, _ string) error {
	e.calls = append(e.calls, "OnAccountRotated")
	return nil
}

func (e *allHooksExt) OnQuotaExhausted(_ context.Context) error {
	e.calls = append(e.calls, "OnQuotaExhausted")
	return nil
}

func (e *allHooksExt) OnErrorEntered(_ context.Context, _ musicai.FailureKind, _ string) error {
	e.calls = append(e.calls, "OnErrorEntered")
	return nil
}

func (e *allHooksExt) OnRecovered(_ context.Context, _ state.JobStep) error {
	e.calls = append(e.calls, "OnRecovered")
	return nil
}

func (e *allHooksExt) OnArtifactsDeleted(_ context.Context, _, _ int) error {
	e.calls = append(e.calls, "OnArtifactsDeleted")
	return nil
}

func (e *allHooksExt) OnHealthReport(_ context.Context, _ bool, _ []string) error {
	e.calls = append(e.calls, "OnHealthReport")
	return nil
}

func (e *allHooksExt) OnCycleFinished(_ context.Context, _ state.RunStatus, _ time.Duration) error {
	e.calls = append(e.calls, "OnCycleFinished")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// nameOnlyExt implements no hooks at all.
type nameOnlyExt struct{}

func (nameOnlyExt) Name() string { return "name-only" }

// failingExt returns an error from every hook it implements.
type failingExt struct {
	calls int
}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnJobSubmitted(_ context.Context, _ string, _ int) error {
	e.calls++
	return errors.New("hook exploded")
}

func TestRegistry_EmitsToImplementedHooks(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	ext := &allHooksExt{}
	r.Register(ext)
	r.Register(nameOnlyExt{})

	ctx := context.Background()
	r.EmitJobSubmitted(ctx, "calm jazz", 0)
	r.EmitJobCompleted(ctx, "calm jazz", time.Second)
	r.EmitJobAbandoned(ctx, musicai.KindPoll, errors.New("poll failed"))
	r.EmitArtifactRejected(ctx, "fp-1", 0.95)
	r.EmitAccountRotated(ctx, 0, 1, "scheduled")
	r.EmitQuotaExhausted(ctx)
	r.EmitErrorEntered(ctx, musicai.KindUnexpected, "boom")
	r.EmitRecovered(ctx, state.StepPolling)
	r.EmitArtifactsDeleted(ctx, 3, 500)
	r.EmitHealthReport(ctx, true, nil)
	r.EmitCycleFinished(ctx, state.StatusRunning, time.Second)
	r.EmitShutdown(ctx)

	want := []string{
		"OnJobSubmitted", "OnJobCompleted", "OnJobAbandoned",
		"OnArtifactRejected", "OnAccountRotated", "OnQuotaExhausted",
		"OnErrorEntered", "OnRecovered", "OnArtifactsDeleted",
		"OnHealthReport", "OnCycleFinished", "OnShutdown",
	}
	if len(ext.calls) != len(want) {
		t.Fatalf("got %d hook calls, want %d: %v", len(ext.calls), len(want), ext.calls)
	}
	for i, name := range want {
		if ext.calls[i] != name {
			t.Errorf("calls[%d] = %q, want %q", i, ext.calls[i], name)
		}
	}
}

func TestRegistry_HookErrorsAreSwallowed(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	failing := &failingExt{}
	following := &allHooksExt{}
	r.Register(failing)
	r.Register(following)

	// Must not panic and must still reach the second extension.
	r.EmitJobSubmitted(context.Background(), "prompt", 0)

	if failing.calls != 1 {
		t.Errorf("failing extension called %d times, want 1", failing.calls)
	}
	if len(following.calls) != 1 || following.calls[0] != "OnJobSubmitted" {
		t.Errorf("following extension calls = %v, want [OnJobSubmitted]", following.calls)
	}
}

func TestRegistry_ExtensionsReturnsRegistrationOrder(t *testing.T) {
	r := hook.NewRegistry(nil)
	a, b := &allHooksExt{}, nameOnlyExt{}
	r.Register(a)
	r.Register(b)

	exts := r.Extensions()
	if len(exts) != 2 || exts[0].Name() != "all-hooks" || exts[1].Name() != "name-only" {
		t.Errorf("Extensions() order wrong: %v", exts)
	}
}

package journal_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/journal"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures journal events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*journal.Event
}

func (m *mockRecorder) Record(_ context.Context, evt *journal.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *journal.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Event shape ──────────────────────────────────────

func TestJobSubmittedEvent(t *testing.T) {
	rec := &mockRecorder{}
	ext := journal.New(rec)

	if err := ext.OnJobSubmitted(context.Background(), "upbeat jazz", 2); err != nil {
		t.Fatalf("OnJobSubmitted() error: %v", err)
	}

	evt := rec.findByAction(journal.ActionJobSubmitted)
	if evt == nil {
		t.Fatal("no job.submitted event recorded")
	}
	if evt.Category != journal.CategoryJob {
		t.Errorf("Category = %q, want %q", evt.Category, journal.CategoryJob)
	}
	if evt.Severity != journal.SeverityInfo {
		t.Errorf("Severity = %q, want info", evt.Severity)
	}
	if evt.Metadata["prompt"] != "upbeat jazz" {
		t.Errorf("prompt metadata = %v, want %q", evt.Metadata["prompt"], "upbeat jazz")
	}
	if evt.Metadata["account"] != 2 {
		t.Errorf("account metadata = %v, want 2", evt.Metadata["account"])
	}
}

func TestAbandonedEventCarriesReason(t *testing.T) {
	rec := &mockRecorder{}
	ext := journal.New(rec)

	cause := errors.New("run finished with status error")
	if err := ext.OnJobAbandoned(context.Background(), musicai.KindJobTerminal, cause); err != nil {
		t.Fatal(err)
	}

	evt := rec.findByAction(journal.ActionJobAbandoned)
	if evt == nil {
		t.Fatal("no job.abandoned event recorded")
	}
	if evt.Outcome != journal.OutcomeFailure {
		t.Errorf("Outcome = %q, want failure", evt.Outcome)
	}
	if evt.Severity != journal.SeverityCritical {
		t.Errorf("Severity = %q, want critical", evt.Severity)
	}
	if evt.Reason != cause.Error() {
		t.Errorf("Reason = %q, want %q", evt.Reason, cause.Error())
	}
}

func TestHealthReportSeverityTracksHealth(t *testing.T) {
	rec := &mockRecorder{}
	ext := journal.New(rec)
	ctx := context.Background()

	if err := ext.OnHealthReport(ctx, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnHealthReport(ctx, false, []string{"disk usage 93%"}); err != nil {
		t.Fatal(err)
	}

	if got := rec.events[0].Severity; got != journal.SeverityInfo {
		t.Errorf("healthy report severity = %q, want info", got)
	}
	if got := rec.events[1].Severity; got != journal.SeverityWarning {
		t.Errorf("unhealthy report severity = %q, want warning", got)
	}
}

func TestEventTimestampUsesClock(t *testing.T) {
	rec := &mockRecorder{}
	now := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	ext := journal.New(rec, journal.WithClock(func() time.Time { return now }))

	if err := ext.OnShutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := rec.events[0].At; !got.Equal(now) {
		t.Errorf("At = %v, want %v", got, now)
	}
}

// ── Action filtering ─────────────────────────────────

func TestWithActionsFiltersEverythingElse(t *testing.T) {
	rec := &mockRecorder{}
	ext := journal.New(rec, journal.WithActions(
		journal.ActionErrorEntered,
		journal.ActionQuotaExhausted,
	))
	ctx := context.Background()

	if err := ext.OnJobSubmitted(ctx, "prompt", 0); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnCycleFinished(ctx, state.StatusRunning, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnErrorEntered(ctx, musicai.KindPoll, "poll failed"); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnQuotaExhausted(ctx); err != nil {
		t.Fatal(err)
	}

	if rec.count() != 2 {
		t.Fatalf("recorded %d events, want 2 (only enabled actions)", rec.count())
	}
	if rec.findByAction(journal.ActionJobSubmitted) != nil {
		t.Error("disabled job.submitted action was recorded")
	}
}

func TestAllActionsCoversEveryHook(t *testing.T) {
	rec := &mockRecorder{}
	ext := journal.New(rec)
	ctx := context.Background()

	calls := []func() error{
		func() error { return ext.OnJobSubmitted(ctx, "p", 0) },
		func() error { return ext.OnJobCompleted(ctx, "p", time.Second) },
		func() error { return ext.OnJobAbandoned(ctx, musicai.KindPoll, errors.New("x")) },
		func() error { return ext.OnArtifactRejected(ctx, "fp", 0.99) },
		func() error { return ext.OnAccountRotated(ctx, 0, 1, "test") },
		func() error { return ext.OnQuotaExhausted(ctx) },
		func() error { return ext.OnErrorEntered(ctx, musicai.KindUpload, "x") },
		func() error { return ext.OnRecovered(ctx, state.StepPolling) },
		func() error { return ext.OnArtifactsDeleted(ctx, 3, 10) },
		func() error { return ext.OnHealthReport(ctx, true, nil) },
		func() error { return ext.OnCycleFinished(ctx, state.StatusRunning, time.Second) },
		func() error { return ext.OnShutdown(ctx) },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("hook %d error: %v", i, err)
		}
	}

	want := journal.AllActions()
	if rec.count() != len(want) {
		t.Fatalf("recorded %d events, want %d", rec.count(), len(want))
	}
	for i, action := range want {
		if rec.events[i].Action != action {
			t.Errorf("event %d action = %q, want %q", i, rec.events[i].Action, action)
		}
	}
}

// ── FileRecorder ─────────────────────────────────────

func TestFileRecorderAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")
	rec, err := journal.NewFileRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	ext := journal.New(rec)
	ctx := context.Background()
	if err := ext.OnJobSubmitted(ctx, "lofi hip hop", 1); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnQuotaExhausted(ctx); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []journal.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var evt journal.Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", len(lines)+1, err)
		}
		lines = append(lines, evt)
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}

	if len(lines) != 2 {
		t.Fatalf("journal has %d lines, want 2", len(lines))
	}
	if lines[0].Action != journal.ActionJobSubmitted {
		t.Errorf("first action = %q, want job.submitted", lines[0].Action)
	}
	if lines[1].Action != journal.ActionQuotaExhausted {
		t.Errorf("second action = %q, want quota.exhausted", lines[1].Action)
	}
}

package state_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

func newFileStore(t *testing.T, opts ...state.FileOption) (*state.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	return state.NewFileStore(path, 4, opts...), path
}

func sampleState() *state.State {
	st := state.Default(4)
	st.RunStatus = state.StatusRunning
	st.JobStep = state.StepPolling
	st.ActiveAccount = 2
	st.AccountUsage[2].ConsumedHours = 12.5
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	st.AccountUsage[2].PeriodStartedAt = &now
	st.RecentFingerprints = []string{"fp-one", "fp-two"}
	st.TotalCompleted = 17
	st.CurrentPrompt = "ambient synth with piano"
	st.CurrentSeed = 424242
	st.TriggeredAt = &now
	return st
}

func TestFileStore_SaveLoadRoundtrip(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()

	saved := sampleState()
	if err := s.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got := s.Load(ctx)
	if got.RunStatus != saved.RunStatus {
		t.Errorf("RunStatus = %v, want %v", got.RunStatus, saved.RunStatus)
	}
	if got.JobStep != saved.JobStep {
		t.Errorf("JobStep = %v, want %v", got.JobStep, saved.JobStep)
	}
	if got.ActiveAccount != saved.ActiveAccount {
		t.Errorf("ActiveAccount = %d, want %d", got.ActiveAccount, saved.ActiveAccount)
	}
	if got.AccountUsage[2].ConsumedHours != 12.5 {
		t.Errorf("ConsumedHours = %v, want 12.5", got.AccountUsage[2].ConsumedHours)
	}
	if len(got.RecentFingerprints) != 2 || got.RecentFingerprints[0] != "fp-one" {
		t.Errorf("RecentFingerprints = %v, want [fp-one fp-two]", got.RecentFingerprints)
	}
	if got.TotalCompleted != 17 {
		t.Errorf("TotalCompleted = %d, want 17", got.TotalCompleted)
	}
	if got.CurrentPrompt != saved.CurrentPrompt {
		t.Errorf("CurrentPrompt = %q, want %q", got.CurrentPrompt, saved.CurrentPrompt)
	}
	if got.TriggeredAt == nil || !got.TriggeredAt.Equal(*saved.TriggeredAt) {
		t.Errorf("TriggeredAt = %v, want %v", got.TriggeredAt, saved.TriggeredAt)
	}
	if got.IntegrityTag == "" {
		t.Error("loaded state has empty IntegrityTag")
	}
}

func TestFileStore_AbsentFileReturnsDefault(t *testing.T) {
	s, _ := newFileStore(t)

	got := s.Load(context.Background())
	if got.RunStatus != state.StatusStopped {
		t.Errorf("RunStatus = %v, want %v", got.RunStatus, state.StatusStopped)
	}
	if got.JobStep != state.StepIdle {
		t.Errorf("JobStep = %v, want %v", got.JobStep, state.StepIdle)
	}
	if len(got.AccountUsage) != 4 {
		t.Errorf("len(AccountUsage) = %d, want 4", len(got.AccountUsage))
	}
}

func TestFileStore_EmptyFileReturnsDefault(t *testing.T) {
	s, path := newFileStore(t)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load(context.Background())
	if got.RunStatus != state.StatusStopped || got.TotalCompleted != 0 {
		t.Errorf("expected default state, got status=%v completed=%d", got.RunStatus, got.TotalCompleted)
	}
}

func TestFileStore_UnparsableFileReturnsDefault(t *testing.T) {
	s, path := newFileStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load(context.Background())
	if got.RunStatus != state.StatusStopped {
		t.Errorf("RunStatus = %v, want default %v", got.RunStatus, state.StatusStopped)
	}
}

func TestFileStore_CorruptedChecksumReturnsDefault(t *testing.T) {
	s, path := newFileStore(t)
	ctx := context.Background()

	saved := sampleState()
	if err := s.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if saved.IntegrityTag == "" {
		t.Fatal("Save did not stamp an integrity tag")
	}

	// Flip one byte of the persisted checksum.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	flipped := []byte(saved.IntegrityTag)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	raw = bytes.Replace(raw, []byte(saved.IntegrityTag), flipped, 1)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load(ctx)
	if got.RunStatus != state.StatusStopped || got.TotalCompleted != 0 {
		t.Errorf("expected default state after checksum corruption, got status=%v completed=%d",
			got.RunStatus, got.TotalCompleted)
	}
}

func TestFileStore_MissingFieldsBackfilled(t *testing.T) {
	s, path := newFileStore(t)

	// A record from an older schema: no integrity tag (verification is
	// skipped) and no fingerprint or usage fields.
	older := []byte(`{"run_status": "running", "job_step": "idle", "total_completed": 3}`)
	if err := os.WriteFile(path, older, 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load(context.Background())
	if got.RunStatus != state.StatusRunning {
		t.Errorf("RunStatus = %v, want running", got.RunStatus)
	}
	if got.TotalCompleted != 3 {
		t.Errorf("TotalCompleted = %d, want 3", got.TotalCompleted)
	}
	if len(got.AccountUsage) != 4 {
		t.Errorf("len(AccountUsage) = %d, want backfilled 4", len(got.AccountUsage))
	}
	if got.RecentFingerprints == nil {
		t.Error("RecentFingerprints = nil, want backfilled empty slice")
	}
}

func TestFileStore_SaveLeavesNoTempFile(t *testing.T) {
	s, path := newFileStore(t)

	if err := s.Save(context.Background(), sampleState()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file still present after Save: %v", err)
	}
}

func TestFileStore_MsgpackRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")
	s := state.NewFileStore(path, 2, state.WithCodec(&state.MsgpackCodec{}))
	ctx := context.Background()

	saved := state.Default(2)
	saved.RunStatus = state.StatusRunning
	saved.TotalCompleted = 9
	saved.SetError(musicai.KindPoll, "poll timed out")
	if err := s.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got := s.Load(ctx)
	if got.RunStatus != state.StatusRunning {
		t.Errorf("RunStatus = %v, want running", got.RunStatus)
	}
	if got.TotalCompleted != 9 {
		t.Errorf("TotalCompleted = %d, want 9", got.TotalCompleted)
	}
	if got.LastErrorKind != musicai.KindPoll {
		t.Errorf("LastErrorKind = %v, want %v", got.LastErrorKind, musicai.KindPoll)
	}
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	s := state.NewMemoryStore(2)
	ctx := context.Background()

	st := state.Default(2)
	st.TotalCompleted = 1
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Mutating the original must not leak into the store.
	st.TotalCompleted = 99
	if got := s.Load(ctx); got.TotalCompleted != 1 {
		t.Errorf("TotalCompleted = %d, want 1", got.TotalCompleted)
	}

	// Mutating a loaded copy must not leak either.
	loaded := s.Load(ctx)
	loaded.AccountUsage[0].ConsumedHours = 5
	if got := s.Load(ctx); got.AccountUsage[0].ConsumedHours != 0 {
		t.Errorf("ConsumedHours = %v, want 0", got.AccountUsage[0].ConsumedHours)
	}
}

package hook

import (
	"context"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobSubmitted is called after a run is successfully triggered on the
// compute platform.
type JobSubmitted interface {
	OnJobSubmitted(ctx context.Context, prompt string, account int) error
}

// JobCompleted is called after a track is archived and counted.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, prompt string, elapsed time.Duration) error
}

// JobAbandoned is called when a run is given up on, either because the
// platform reported a terminal failure or retries ran out.
type JobAbandoned interface {
	OnJobAbandoned(ctx context.Context, kind musicai.FailureKind, err error) error
}

// ArtifactRejected is called when a finished track is discarded by the
// similarity check before upload.
type ArtifactRejected interface {
	OnArtifactRejected(ctx context.Context, fingerprint string, similarity float64) error
}

// ──────────────────────────────────────────────────
// Account and quota hooks
// ──────────────────────────────────────────────────

// AccountRotated is called after the active account changes.
type AccountRotated interface {
	OnAccountRotated(ctx context.Context, from, to int, reason string) error
}

// QuotaExhausted is called when no account has budget left and the
// orchestrator parks itself.
type QuotaExhausted interface {
	OnQuotaExhausted(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Recovery and maintenance hooks
// ──────────────────────────────────────────────────

// ErrorEntered is called when the run status transitions to error.
type ErrorEntered interface {
	OnErrorEntered(ctx context.Context, kind musicai.FailureKind, message string) error
}

// Recovered is called when an automated intervention moves the
// orchestrator out of the error status.
type Recovered interface {
	OnRecovered(ctx context.Context, resumedAt state.JobStep) error
}

// ArtifactsDeleted is called after a retention pass removes archived
// artifacts.
type ArtifactsDeleted interface {
	OnArtifactsDeleted(ctx context.Context, deleted, kept int) error
}

// HealthReport is called after each periodic health check.
type HealthReport interface {
	OnHealthReport(ctx context.Context, healthy bool, findings []string) error
}

// CycleFinished is called at the end of every orchestration cycle,
// whether it did work or was skipped by the run status.
type CycleFinished interface {
	OnCycleFinished(ctx context.Context, status state.RunStatus, elapsed time.Duration) error
}

// Shutdown is called once when the orchestrator stops.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}

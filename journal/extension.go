package journal

import (
	"context"
	"log/slog"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// Compile-time interface checks.
var (
	_ hook.Extension        = (*Extension)(nil)
	_ hook.JobSubmitted     = (*Extension)(nil)
	_ hook.JobCompleted     = (*Extension)(nil)
	_ hook.JobAbandoned     = (*Extension)(nil)
	_ hook.ArtifactRejected = (*Extension)(nil)
	_ hook.AccountRotated   = (*Extension)(nil)
	_ hook.QuotaExhausted   = (*Extension)(nil)
	_ hook.ErrorEntered     = (*Extension)(nil)
	_ hook.Recovered        = (*Extension)(nil)
	_ hook.ArtifactsDeleted = (*Extension)(nil)
	_ hook.HealthReport     = (*Extension)(nil)
	_ hook.CycleFinished    = (*Extension)(nil)
	_ hook.Shutdown         = (*Extension)(nil)
)

// Recorder is the interface journal backends must implement. The
// bundled FileRecorder appends JSON lines; callers can inject anything
// else at wiring time.
type Recorder interface {
	// Record persists a fully-formed journal event.
	Record(ctx context.Context, event *Event) error
}

// Event is one journal entry.
type Event struct {
	At       time.Time      `json:"at"`
	Action   string         `json:"action"`
	Category string         `json:"category"`
	Severity string         `json:"severity"`
	Outcome  string         `json:"outcome"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges engine lifecycle events to a journal backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	clock    func() time.Time
	logger   *slog.Logger
}

// New creates an Extension that emits journal events through the
// provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Extension.
func (e *Extension) Name() string { return "journal" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobSubmitted implements hook.JobSubmitted.
func (e *Extension) OnJobSubmitted(ctx context.Context, prompt string, account int) error {
	return e.record(ctx, ActionJobSubmitted, CategoryJob, SeverityInfo, OutcomeSuccess, nil,
		"prompt", prompt,
		"account", account,
	)
}

// OnJobCompleted implements hook.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, prompt string, elapsed time.Duration) error {
	return e.record(ctx, ActionJobCompleted, CategoryJob, SeverityInfo, OutcomeSuccess, nil,
		"prompt", prompt,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobAbandoned implements hook.JobAbandoned.
func (e *Extension) OnJobAbandoned(ctx context.Context, kind musicai.FailureKind, err error) error {
	return e.record(ctx, ActionJobAbandoned, CategoryJob, SeverityCritical, OutcomeFailure, err,
		"kind", string(kind),
	)
}

// OnArtifactRejected implements hook.ArtifactRejected.
func (e *Extension) OnArtifactRejected(ctx context.Context, fingerprint string, similarity float64) error {
	return e.record(ctx, ActionArtifactRejected, CategoryJob, SeverityWarning, OutcomeFailure, nil,
		"fingerprint", fingerprint,
		"similarity", similarity,
	)
}

// ── Account and quota hooks ─────────────────────────

// OnAccountRotated implements hook.AccountRotated.
func (e *Extension) OnAccountRotated(ctx context.Context, from, to int, reason string) error {
	return e.record(ctx, ActionAccountRotated, CategoryAccount, SeverityInfo, OutcomeSuccess, nil,
		"from", from,
		"to", to,
		"reason", reason,
	)
}

// OnQuotaExhausted implements hook.QuotaExhausted.
func (e *Extension) OnQuotaExhausted(ctx context.Context) error {
	return e.record(ctx, ActionQuotaExhausted, CategoryAccount, SeverityCritical, OutcomeFailure, nil)
}

// ── Recovery and maintenance hooks ──────────────────

// OnErrorEntered implements hook.ErrorEntered.
func (e *Extension) OnErrorEntered(ctx context.Context, kind musicai.FailureKind, message string) error {
	return e.record(ctx, ActionErrorEntered, CategoryEngine, SeverityCritical, OutcomeFailure, nil,
		"kind", string(kind),
		"message", message,
	)
}

// OnRecovered implements hook.Recovered.
func (e *Extension) OnRecovered(ctx context.Context, resumedAt state.JobStep) error {
	return e.record(ctx, ActionRecovered, CategoryEngine, SeverityWarning, OutcomeSuccess, nil,
		"resumed_at", string(resumedAt),
	)
}

// OnArtifactsDeleted implements hook.ArtifactsDeleted.
func (e *Extension) OnArtifactsDeleted(ctx context.Context, deleted, kept int) error {
	return e.record(ctx, ActionArtifactsDeleted, CategoryMaintenance, SeverityInfo, OutcomeSuccess, nil,
		"deleted", deleted,
		"kept", kept,
	)
}

// OnHealthReport implements hook.HealthReport.
func (e *Extension) OnHealthReport(ctx context.Context, healthy bool, findings []string) error {
	sev, outcome := SeverityInfo, OutcomeSuccess
	if !healthy {
		sev, outcome = SeverityWarning, OutcomeFailure
	}
	return e.record(ctx, ActionHealthReport, CategoryMaintenance, sev, outcome, nil,
		"healthy", healthy,
		"findings", findings,
	)
}

// ── Engine hooks ────────────────────────────────────

// OnCycleFinished implements hook.CycleFinished.
func (e *Extension) OnCycleFinished(ctx context.Context, status state.RunStatus, elapsed time.Duration) error {
	return e.record(ctx, ActionCycleFinished, CategoryEngine, SeverityInfo, OutcomeSuccess, nil,
		"status", string(status),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnShutdown implements hook.Shutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, ActionShutdown, CategoryEngine, SeverityInfo, OutcomeSuccess, nil)
}

// record builds an Event from alternating key/value metadata pairs and
// hands it to the recorder. Disabled actions are dropped before any
// allocation.
func (e *Extension) record(ctx context.Context, action, category, severity, outcome string, cause error, kv ...any) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	var meta map[string]any
	if len(kv) > 0 {
		meta = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			meta[key] = kv[i+1]
		}
	}

	evt := &Event{
		At:       e.clock().UTC(),
		Action:   action,
		Category: category,
		Severity: severity,
		Outcome:  outcome,
		Metadata: meta,
	}
	if cause != nil {
		evt.Reason = cause.Error()
	}
	return e.recorder.Record(ctx, evt)
}

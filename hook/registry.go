package hook

import (
	"context"
	"log/slog"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobSubmittedEntry struct {
	name string
	hook JobSubmitted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobAbandonedEntry struct {
	name string
	hook JobAbandoned
}

type artifactRejectedEntry struct {
	name string
	hook ArtifactRejected
}

type accountRotatedEntry struct {
	name string
	hook AccountRotated
}

type quotaExhaustedEntry struct {
	name string
	hook QuotaExhausted
}

type errorEnteredEntry struct {
	name string
	hook ErrorEntered
}

type recoveredEntry struct {
	name string
	hook Recovered
}

type artifactsDeletedEntry struct {
	name string
	hook ArtifactsDeleted
}

type healthReportEntry struct {
	name string
	hook HealthReport
}

type cycleFinishedEntry struct {
	name string
	hook CycleFinished
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	jobSubmitted     []jobSubmittedEntry
	jobCompleted     []jobCompletedEntry
	jobAbandoned     []jobAbandonedEntry
	artifactRejected []artifactRejectedEntry
	accountRotated   []accountRotatedEntry
	quotaExhausted   []quotaExhaustedEntry
	errorEntered     []errorEnteredEntry
	recovered        []recoveredEntry
	artifactsDeleted []artifactsDeletedEntry
	healthReport     []healthReportEntry
	cycleFinished    []cycleFinishedEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobSubmitted); ok {
		r.jobSubmitted = append(r.jobSubmitted, jobSubmittedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobAbandoned); ok {
		r.jobAbandoned = append(r.jobAbandoned, jobAbandonedEntry{name, h})
	}
	if h, ok := e.(ArtifactRejected); ok {
		r.artifactRejected = append(r.artifactRejected, artifactRejectedEntry{name, h})
	}
	if h, ok := e.(AccountRotated); ok {
		r.accountRotated = append(r.accountRotated, accountRotatedEntry{name, h})
	}
	if h, ok := e.(QuotaExhausted); ok {
		r.quotaExhausted = append(r.quotaExhausted, quotaExhaustedEntry{name, h})
	}
	if h, ok := e.(ErrorEntered); ok {
		r.errorEntered = append(r.errorEntered, errorEnteredEntry{name, h})
	}
	if h, ok := e.(Recovered); ok {
		r.recovered = append(r.recovered, recoveredEntry{name, h})
	}
	if h, ok := e.(ArtifactsDeleted); ok {
		r.artifactsDeleted = append(r.artifactsDeleted, artifactsDeletedEntry{name, h})
	}
	if h, ok := e.(HealthReport); ok {
		r.healthReport = append(r.healthReport, healthReportEntry{name, h})
	}
	if h, ok := e.(CycleFinished); ok {
		r.cycleFinished = append(r.cycleFinished, cycleFinishedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitJobSubmitted notifies all extensions that implement JobSubmitted.
func (r *Registry) EmitJobSubmitted(ctx context.Context, prompt string, account int) {
	for _, e := range r.jobSubmitted {
		if err := e.hook.OnJobSubmitted(ctx, prompt, account); err != nil {
			r.logHookError("OnJobSubmitted", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, prompt string, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, prompt, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobAbandoned notifies all extensions that implement JobAbandoned.
func (r *Registry) EmitJobAbandoned(ctx context.Context, kind musicai.FailureKind, jobErr error) {
	for _, e := range r.jobAbandoned {
		if err := e.hook.OnJobAbandoned(ctx, kind, jobErr); err != nil {
			r.logHookError("OnJobAbandoned", e.name, err)
		}
	}
}

// EmitArtifactRejected notifies all extensions that implement ArtifactRejected.
func (r *Registry) EmitArtifactRejected(ctx context.Context, fingerprint string, similarity float64) {
	for _, e := range r.artifactRejected {
		if err := e.hook.OnArtifactRejected(ctx, fingerprint, similarity); err != nil {
			r.logHookError("OnArtifactRejected", e.name, err)
		}
	}
}

// EmitAccountRotated notifies all extensions that implement AccountRotated.
func (r *Registry) EmitAccountRotated(ctx context.Context, from, to int, reason string) {
	for _, e := range r.accountRotated {
		if err := e.hook.OnAccountRotated(ctx, from, to, reason); err != nil {
			r.logHookError("OnAccountRotated", e.name, err)
		}
	}
}

// EmitQuotaExhausted notifies all extensions that implement QuotaExhausted.
func (r *Registry) EmitQuotaExhausted(ctx context.Context) {
	for _, e := range r.quotaExhausted {
		if err := e.hook.OnQuotaExhausted(ctx); err != nil {
			r.logHookError("OnQuotaExhausted", e.name, err)
		}
	}
}

// EmitErrorEntered notifies all extensions that implement ErrorEntered.
func (r *Registry) EmitErrorEntered(ctx context.Context, kind musicai.FailureKind, message string) {
	for _, e := range r.errorEntered {
		if err := e.hook.OnErrorEntered(ctx, kind, message); err != nil {
			r.logHookError("OnErrorEntered", e.name, err)
		}
	}
}

// EmitRecovered notifies all extensions that implement Recovered.
func (r *Registry) EmitRecovered(ctx context.Context, resumedAt state.JobStep) {
	for _, e := range r.recovered {
		if err := e.hook.OnRecovered(ctx, resumedAt); err != nil {
			r.logHookError("OnRecovered", e.name, err)
		}
	}
}

// EmitArtifactsDeleted notifies all extensions that implement ArtifactsDeleted.
func (r *Registry) EmitArtifactsDeleted(ctx context.Context, deleted, kept int) {
	for _, e := range r.artifactsDeleted {
		if err := e.hook.OnArtifactsDeleted(ctx, deleted, kept); err != nil {
			r.logHookError("OnArtifactsDeleted", e.name, err)
		}
	}
}

// EmitHealthReport notifies all extensions that implement HealthReport.
func (r *Registry) EmitHealthReport(ctx context.Context, healthy bool, findings []string) {
	for _, e := range r.healthReport {
		if err := e.hook.OnHealthReport(ctx, healthy, findings); err != nil {
			r.logHookError("OnHealthReport", e.name, err)
		}
	}
}

// EmitCycleFinished notifies all extensions that implement CycleFinished.
func (r *Registry) EmitCycleFinished(ctx context.Context, status state.RunStatus, elapsed time.Duration) {
	for _, e := range r.cycleFinished {
		if err := e.hook.OnCycleFinished(ctx, status, elapsed); err != nil {
			r.logHookError("OnCycleFinished", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the cycle.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}

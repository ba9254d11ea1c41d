package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// Intervention attempts one automated recovery after the engine has sat
// in the error status past the configured timeout. The recovery target
// depends on how the job failed; a failure kind with no known recovery
// stays in error and asks for manual action.
type Intervention struct {
	timeout  time.Duration
	notifier platform.Notifier
	hooks    *hook.Registry
	logger   *slog.Logger
	clock    func() time.Time
}

// Apply advances the intervention logic by one cycle. It mutates st and
// reports whether anything changed; the caller persists.
func (iv *Intervention) Apply(ctx context.Context, st *state.State) bool {
	now := iv.clock()

	if st.InterventionPendingSince == nil {
		st.InterventionPendingSince = &now
		iv.logger.Info("intervention: error observed, waiting for operator or timeout",
			slog.Duration("timeout", iv.timeout))
		return true
	}

	elapsed := now.Sub(*st.InterventionPendingSince)
	if elapsed < iv.timeout {
		return false
	}

	step, ok := iv.recoveryStep(st)
	if !ok {
		// One shot only: clear the stamp so this branch does not fire
		// every cycle, stay in error, summon a human.
		st.InterventionPendingSince = nil
		iv.logger.Warn("intervention: no automated recovery for failure kind",
			slog.String("kind", string(st.LastErrorKind)))
		iv.notify(ctx, platform.SeverityCritical, fmt.Sprintf(
			"stuck in error for %s with no automated recovery (kind %s, last error: %s); manual action required",
			elapsed.Round(time.Second), st.LastErrorKind, st.LastError))
		return true
	}

	iv.logger.Info("intervention: attempting automated recovery",
		slog.String("kind", string(st.LastErrorKind)),
		slog.String("resume_at", string(step)))

	if step == state.StepIdle {
		st.ClearJob()
	}
	st.JobStep = step
	st.RunStatus = state.StatusRunning
	st.ClearError()
	st.InterventionPendingSince = nil

	iv.notify(ctx, platform.SeverityInfo,
		fmt.Sprintf("automated recovery: resuming at step %s", step))
	iv.hooks.EmitRecovered(ctx, step)
	return true
}

// recoveryStep maps the recorded failure kind to the step to resume at.
func (iv *Intervention) recoveryStep(st *state.State) (state.JobStep, bool) {
	switch st.LastErrorKind {
	case musicai.KindPoll, musicai.KindDownload:
		return state.StepPolling, true
	case musicai.KindUpload, musicai.KindProcessing:
		if artifactsExist(st) {
			return state.StepDownloaded, true
		}
		return state.StepIdle, true
	case musicai.KindSubmit, musicai.KindSetup:
		return state.StepIdle, true
	default:
		return "", false
	}
}

func (iv *Intervention) notify(ctx context.Context, sev platform.Severity, msg string) {
	if iv.notifier == nil {
		return
	}
	if err := iv.notifier.Send(ctx, sev, msg); err != nil {
		iv.logger.Warn("intervention: notification failed", slog.String("error", err.Error()))
	}
}

// artifactsExist reports whether the downloaded files are still on
// disk, so a resumed upload has something to upload.
func artifactsExist(st *state.State) bool {
	if st.AudioPath == "" || st.MetadataPath == "" {
		return false
	}
	for _, p := range []string{st.AudioPath, st.MetadataPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

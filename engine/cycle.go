package engine

import (
	"context"
	"fmt"
	"log/slog"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// Cycle runs one orchestration pass: load state, apply period resets,
// honor the run-status gates, fire due periodic tasks, advance the job
// machine one step, and apply intervention logic. A panic anywhere in
// the pass is converted to the error status rather than crashing the
// process.
func (e *Engine) Cycle(ctx context.Context) {
	start := e.clock()
	st := e.store.Load(ctx)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine: cycle panicked", slog.Any("panic", r))
			// Reload rather than trust the half-mutated state.
			st := e.store.Load(ctx)
			st.RunStatus = state.StatusError
			st.JobStep = state.StepIdle
			st.SetError(musicai.KindUnexpected, fmt.Sprintf("cycle panic: %v", r))
			now := e.clock()
			st.InterventionPendingSince = &now
			e.save(ctx, st)
			e.notify(ctx, platform.SeverityCritical, fmt.Sprintf("cycle panic: %v", r))
			e.hooks.EmitErrorEntered(ctx, musicai.KindUnexpected, st.LastError)
		}
		e.hooks.EmitCycleFinished(ctx, st.RunStatus, e.clock().Sub(start))
	}()

	if e.pool.ApplyPeriodReset(ctx, st, e.clock()) {
		e.save(ctx, st)
	}

	switch st.RunStatus {
	case state.StatusStopping:
		st.RunStatus = state.StatusStopped
		e.save(ctx, st)
		e.logger.Info("engine: stop request honored")
		return

	case state.StatusStopped, state.StatusExhausted:
		e.logger.Debug("engine: cycle skipped", slog.String("status", string(st.RunStatus)))
		return

	case state.StatusError:
		if e.intervention.Apply(ctx, st) {
			e.save(ctx, st)
		}
		return

	case state.StatusRunning:
		// Fall through to the working part of the cycle.

	default:
		e.logger.Error("engine: unknown run status, stopping",
			slog.String("status", string(st.RunStatus)))
		st.RunStatus = state.StatusStopped
		e.save(ctx, st)
		return
	}

	e.runPeriodicTasks(ctx, st)

	if err := e.machine.Step(ctx, st); err != nil {
		// Only context cancellation escapes the machine.
		e.logger.Info("engine: cycle interrupted", slog.String("error", err.Error()))
	}
}

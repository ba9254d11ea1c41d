package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/health"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/retention"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// scheduleParser accepts both standard cron expressions and the
// @every/@hourly descriptors used in the default config.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// parseSchedule compiles one cron expression.
func parseSchedule(expr string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("engine: parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// due reports whether a task whose last run was at last should fire
// now. A task that has never run fires immediately.
func due(sched cron.Schedule, last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return !sched.Next(*last).After(now)
}

// runPeriodicTasks fires whichever side tasks are due this cycle. Each
// task stamps its own last-run time on success so a failed pass is
// retried next cycle.
func (e *Engine) runPeriodicTasks(ctx context.Context, st *state.State) {
	now := e.clock()

	if e.backupSched != nil && e.objects != nil && due(e.backupSched, st.LastBackupAt, now) {
		if err := e.backupState(ctx, now); err != nil {
			e.logger.Warn("engine: state backup failed", slog.String("error", err.Error()))
		} else {
			st.LastBackupAt = &now
			e.save(ctx, st)
		}
	}

	if e.cleanupSched != nil && e.objects != nil && due(e.cleanupSched, st.LastCleanupAt, now) {
		e.runCleanup(ctx, now)
		st.LastCleanupAt = &now
		e.save(ctx, st)
	}

	if e.healthSched != nil && due(e.healthSched, st.LastHealthCheckAt, now) {
		e.runHealthCheck(ctx)
		st.LastHealthCheckAt = &now
		e.save(ctx, st)
	}
}

// backupState uploads the current state file under a timestamped name.
func (e *Engine) backupState(ctx context.Context, now time.Time) error {
	name := fmt.Sprintf("state_%s.json", now.UTC().Format("20060102_150405"))
	id, err := e.objects.Upload(ctx, e.cfg.StatePath, e.cfg.ArchiveFolder, name)
	if err != nil {
		return err
	}
	e.logger.Info("engine: state backed up",
		slog.String("name", name),
		slog.String("id", id))
	return nil
}

// runCleanup applies the retention policy to the archive folder.
func (e *Engine) runCleanup(ctx context.Context, now time.Time) {
	objects, err := e.objects.List(ctx, e.cfg.ArchiveFolder)
	if err != nil {
		e.logger.Warn("engine: retention listing failed", slog.String("error", err.Error()))
		return
	}

	pol := retention.Policy{
		MaxAge:   e.cfg.RetentionMaxAge,
		MaxCount: e.cfg.RetentionMaxCount,
		Logger:   e.logger,
	}
	plan := pol.Evaluate(objects, now)
	if len(plan.Delete) == 0 {
		e.logger.Info("engine: retention pass found nothing to delete",
			slog.Int("kept", plan.Kept))
		return
	}

	deleted := retention.Apply(ctx, e.objects, plan, e.logger)
	e.logger.Info("engine: retention pass finished",
		slog.Int("deleted", deleted),
		slog.Int("kept", plan.Kept),
		slog.Int("skipped", plan.Skipped))
	e.hooks.EmitArtifactsDeleted(ctx, deleted, plan.Kept)
}

// runHealthCheck executes the health pass and reports findings.
func (e *Engine) runHealthCheck(ctx context.Context) {
	checker := &health.Checker{
		WorkPath:    e.cfg.WorkDir,
		Compute:     e.compute,
		ObjectStore: e.objects,
		Folder:      e.cfg.ArchiveFolder,
		Logger:      e.logger,
	}
	report := checker.Run(ctx)
	e.hooks.EmitHealthReport(ctx, report.Healthy, report.Findings)
	if !report.Healthy {
		msg := "health check findings:"
		for _, f := range report.Findings {
			msg += "\n- " + f
		}
		e.notify(ctx, platform.SeverityWarning, msg)
	}
}

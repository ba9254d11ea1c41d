// Package retention prunes archived artifacts so remote storage stays
// within an age and count budget.
//
// Planning and execution are split: Plan is a pure function over a
// listing snapshot, Apply performs the deletions. A deletion that fails
// is logged and skipped so one stuck artifact never blocks the rest of
// the pass.
package retention

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
)

// Policy bounds the archive by artifact age and by total count.
type Policy struct {
	// MaxAge removes artifacts older than this. Zero disables the age pass.
	MaxAge time.Duration

	// MaxCount caps how many artifacts survive the age pass. Zero
	// disables the count pass.
	MaxCount int

	Logger *slog.Logger
}

// Plan is the result of evaluating a Policy against a listing snapshot.
type Plan struct {
	// Delete holds the doomed artifacts, age-pass victims first, then
	// count-pass victims oldest first.
	Delete []platform.Object

	// Kept is how many artifacts survive both passes.
	Kept int

	// Skipped counts artifacts excluded from planning because their
	// creation time could not be parsed.
	Skipped int
}

// Evaluate builds a deletion plan from a listing snapshot. Artifacts
// with an unknown creation time are never scheduled for deletion; they
// are counted in Skipped and reported so the anomaly is visible.
func (p Policy) Evaluate(objects []platform.Object, now time.Time) Plan {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var plan Plan
	var survivors []platform.Object

	// Age pass.
	cutoff := now.Add(-p.MaxAge)
	for _, obj := range objects {
		if obj.CreatedAt.IsZero() {
			plan.Skipped++
			logger.Warn("retention: artifact has no parsable creation time, skipping",
				slog.String("id", obj.ID),
				slog.String("name", obj.Name))
			continue
		}
		if p.MaxAge > 0 && obj.CreatedAt.Before(cutoff) {
			plan.Delete = append(plan.Delete, obj)
			continue
		}
		survivors = append(survivors, obj)
	}

	// Count pass over the survivors, oldest first. Stable sort keeps the
	// listing order for artifacts with identical timestamps.
	if p.MaxCount > 0 && len(survivors) > p.MaxCount {
		sort.SliceStable(survivors, func(i, j int) bool {
			return survivors[i].CreatedAt.Before(survivors[j].CreatedAt)
		})
		excess := len(survivors) - p.MaxCount
		plan.Delete = append(plan.Delete, survivors[:excess]...)
		survivors = survivors[excess:]
	}

	plan.Kept = len(survivors)
	return plan
}

// Apply deletes every artifact in the plan through the object store.
// Failures are logged per artifact and do not abort the pass; the
// returned count is how many deletions succeeded.
func Apply(ctx context.Context, store platform.ObjectStore, plan Plan, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	deleted := 0
	for _, obj := range plan.Delete {
		if err := store.Delete(ctx, obj.ID); err != nil {
			logger.Warn("retention: delete failed",
				slog.String("id", obj.ID),
				slog.String("name", obj.Name),
				slog.String("error", err.Error()))
			continue
		}
		deleted++
		logger.Info("retention: deleted artifact",
			slog.String("id", obj.ID),
			slog.String("name", obj.Name),
			slog.Time("created_at", obj.CreatedAt))
	}
	return deleted
}

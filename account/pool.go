// Package account tracks per-account quota consumption across the pool
// of interchangeable compute accounts and decides which account runs
// the next job. The pool itself is stateless between cycles: all
// durable facts live on the orchestration state record it is handed.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// resetMinAge guards against double-resetting when the boundary weekday
// is checked on several cycles in a row: an account only resets again
// once its period stamp is older than this.
const resetMinAge = 6 * 24 * time.Hour

// Pool applies the quota-aware rotation policy over N accounts.
type Pool struct {
	accounts     int
	quotaHours   float64
	buffer       float64
	jobCost      float64
	rotateEvery  int
	resetWeekday time.Weekday

	notifier platform.Notifier
	hooks    *hook.Registry
	logger   *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithNotifier sets the operator notifier for rotation and reset events.
func WithNotifier(n platform.Notifier) Option {
	return func(p *Pool) { p.notifier = n }
}

// WithHooks sets the extension registry notified on account rotations.
func WithHooks(hooks *hook.Registry) Option {
	return func(p *Pool) { p.hooks = hooks }
}

// WithLogger sets the logger for the pool.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// NewPool creates a Pool from the orchestrator configuration.
func NewPool(cfg musicai.Config, opts ...Option) *Pool {
	p := &Pool{
		accounts:     cfg.Accounts,
		quotaHours:   cfg.WeeklyQuotaHours,
		buffer:       cfg.QuotaBuffer,
		jobCost:      cfg.EstimatedRunHours,
		rotateEvery:  cfg.RotateEveryCompleted,
		resetWeekday: cfg.ResetWeekday,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cap is the effective per-account quota: the configured quota scaled
// by the safety buffer.
func (p *Pool) Cap() float64 {
	return p.quotaHours * p.buffer
}

// SelectEligible finds the first account, starting at the active one
// and walking the rotation order, whose projected usage stays within
// the cap. It examines each account at most once. The selected account
// becomes active on the state. When no account in a full rotation
// qualifies it returns musicai.ErrQuotaExhausted, terminal for the
// current period, not a retryable failure.
func (p *Pool) SelectEligible(ctx context.Context, st *state.State) (int, error) {
	capHours := p.Cap()
	for checked := 0; checked < p.accounts; checked++ {
		idx := (st.ActiveAccount + checked) % p.accounts
		consumed := st.AccountUsage[idx].ConsumedHours
		projected := consumed + p.jobCost
		if projected <= capHours {
			if idx != st.ActiveAccount {
				from := st.ActiveAccount
				p.logger.Info("quota check rotated to eligible account",
					slog.Int("from", from),
					slog.Int("to", idx),
				)
				st.ActiveAccount = idx
				st.StepRetryCount = 0
				if p.hooks != nil {
					p.hooks.EmitAccountRotated(ctx, from, idx, "quota eligibility")
				}
			}
			p.logger.Info("account passed quota check",
				slog.Int("account", idx),
				slog.Float64("consumed_hours", consumed),
				slog.Float64("projected_hours", projected),
				slog.Float64("cap_hours", capHours),
			)
			return idx, nil
		}
		p.logger.Warn("account over quota cap",
			slog.Int("account", idx),
			slog.Float64("consumed_hours", consumed),
			slog.Float64("cap_hours", capHours),
		)
	}
	return 0, musicai.ErrQuotaExhausted
}

// RecordUsage adds hours to an account's consumption for this period.
func (p *Pool) RecordUsage(st *state.State, index int, hours float64) {
	if index < 0 || index >= len(st.AccountUsage) {
		p.logger.Error("usage record skipped, index out of range",
			slog.Int("account", index),
			slog.Int("pool_size", len(st.AccountUsage)),
		)
		return
	}
	st.AccountUsage[index].ConsumedHours += hours
	p.logger.Info("account usage recorded",
		slog.Int("account", index),
		slog.Float64("added_hours", hours),
		slog.Float64("consumed_hours", st.AccountUsage[index].ConsumedHours),
	)
}

// Rotate advances the active account and resets the step retry counter.
// It is called for quota exhaustion, for transient trigger/poll/download
// failures, and on the completed-job schedule.
func (p *Pool) Rotate(ctx context.Context, st *state.State, reason string) {
	if p.accounts <= 1 {
		p.logger.Warn("rotation requested with a single account", slog.String("reason", reason))
		return
	}
	from := st.ActiveAccount
	st.ActiveAccount = (from + 1) % p.accounts
	st.StepRetryCount = 0

	p.logger.Warn("rotating account",
		slog.Int("from", from),
		slog.Int("to", st.ActiveAccount),
		slog.String("reason", reason),
	)
	p.notify(ctx, platform.SeverityWarning,
		fmt.Sprintf("Rotating account from %d to %d. Reason: %s", from, st.ActiveAccount, reason))
	if p.hooks != nil {
		p.hooks.EmitAccountRotated(ctx, from, st.ActiveAccount, reason)
	}
}

// DueScheduledRotation reports whether the completed-job count has hit
// the scheduled rotation boundary, which spreads wear evenly instead of
// hammering one account.
func (p *Pool) DueScheduledRotation(totalCompleted int) bool {
	if p.rotateEvery <= 0 || totalCompleted <= 0 {
		return false
	}
	return totalCompleted%(p.rotateEvery*p.accounts) == 0
}

// ApplyPeriodReset resets consumption for every account whose period
// stamp is unset or older than the period, once the boundary weekday
// arrives. It returns true when any account was reset.
//
// A reset that happens while the run is stopped_exhausted moves the
// status to stopped, not running: resuming an autonomous spend loop
// requires an explicit external start.
func (p *Pool) ApplyPeriodReset(ctx context.Context, st *state.State, now time.Time) bool {
	if now.UTC().Weekday() != p.resetWeekday {
		return false
	}

	changed := false
	for i := range st.AccountUsage {
		u := &st.AccountUsage[i]
		if u.PeriodStartedAt != nil && now.Sub(*u.PeriodStartedAt) <= resetMinAge {
			continue
		}
		u.ConsumedHours = 0
		stamp := now.UTC()
		u.PeriodStartedAt = &stamp
		changed = true
		p.logger.Info("account usage reset for new period", slog.Int("account", i))
	}

	if changed && st.RunStatus == state.StatusExhausted {
		st.RunStatus = state.StatusStopped
		p.logger.Warn("quota period reset while exhausted, awaiting explicit start")
		p.notify(ctx, platform.SeverityInfo,
			"Quota period reset. Status set to 'stopped'; an explicit start is required to resume.")
	}
	return changed
}

func (p *Pool) notify(ctx context.Context, sev platform.Severity, msg string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(ctx, sev, msg); err != nil {
		p.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

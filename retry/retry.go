// Package retry is the uniform boundary-crossing primitive. Every call
// into an external collaborator (compute trigger, status poll,
// download, upload, notification) is wrapped in Do, giving one place to
// reason about external flakiness. Failures never escape as panics;
// they come back as the operation's final tagged error.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
)

// Op is a fallible operation against an external boundary.
type Op func(ctx context.Context) error

// Policy bounds the retry loop for one operation.
type Policy struct {
	// Name identifies the operation in logs.
	Name string

	// MaxRetries is how many times a failed operation is re-attempted.
	// Zero means a single attempt with no retry.
	MaxRetries int

	// Strategy computes the sleep between attempts. Nil means no delay.
	Strategy Strategy

	// Kinds is the allow-list of retryable failure kinds. Empty means
	// any failure is retryable.
	Kinds []musicai.FailureKind

	// Logger receives per-attempt failure detail. Nil uses slog.Default.
	Logger *slog.Logger
}

// retryable reports whether a failure kind is in the allow-list.
func (p Policy) retryable(kind musicai.FailureKind) bool {
	if len(p.Kinds) == 0 {
		return true
	}
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Do invokes op, retrying per the policy. It returns nil on the first
// success, the final error once attempts or the allow-list are
// exhausted, or the context's error if cancelled while sleeping.
func Do(ctx context.Context, p Policy, op Op) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry",
					slog.String("operation", p.Name),
					slog.Int("attempt", attempt+1),
				)
			}
			return nil
		}

		kind := musicai.KindOf(lastErr)
		logger.Warn("operation failed",
			slog.String("operation", p.Name),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", p.MaxRetries),
			slog.String("kind", string(kind)),
			slog.String("error", lastErr.Error()),
		)

		if !p.retryable(kind) {
			logger.Warn("failure kind not retryable, giving up",
				slog.String("operation", p.Name),
				slog.String("kind", string(kind)),
			)
			return lastErr
		}
		if attempt >= p.MaxRetries {
			break
		}

		var delay time.Duration
		if p.Strategy != nil {
			delay = p.Strategy.Delay(attempt + 1)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %w",
		musicai.ErrRetriesExhausted, p.Name, p.MaxRetries+1, lastErr)
}

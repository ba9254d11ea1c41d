package journal

import (
	"log/slog"
	"time"
)

// Option configures an Extension.
type Option func(*Extension)

// WithActions restricts the extension to emit only the listed actions.
// By default all actions are enabled. Unknown actions are silently
// ignored.
//
// Example:
//
//	journal.New(rec,
//	    journal.WithActions(
//	        journal.ActionJobAbandoned,
//	        journal.ActionErrorEntered,
//	        journal.ActionQuotaExhausted,
//	    ),
//	)
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Extension) { e.clock = clock }
}

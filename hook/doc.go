// Package hook defines the extension system for the orchestrator.
// Extensions are notified of lifecycle events (cycle finished, job
// submitted, artifact rejected, account rotated, etc.) and can react to
// them for logging, metrics or alerting.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package hook

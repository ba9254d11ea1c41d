// Package state defines the orchestrator's single durable record and
// the stores that persist it. The record is the sole source of truth
// for resuming after a crash: it is read and rewritten on every cycle,
// integrity-tagged on save, and verified on load.
package state

import (
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
)

// RunStatus controls whether orchestration cycles execute.
type RunStatus string

const (
	// StatusRunning means cycles advance the job state machine.
	StatusRunning RunStatus = "running"
	// StatusStopping means the current cycle finishes and then the
	// status transitions to stopped.
	StatusStopping RunStatus = "stopping"
	// StatusStopped means cycles are skipped until an external start.
	StatusStopped RunStatus = "stopped"
	// StatusExhausted means every account hit its quota cap. Cycles are
	// skipped until the quota period resets and an operator restarts.
	StatusExhausted RunStatus = "stopped_exhausted"
	// StatusError means the last cycle failed; the intervention manager
	// decides whether an automated recovery is attempted.
	StatusError RunStatus = "error"
)

// JobStep is the current position in the job lifecycle.
type JobStep string

const (
	// StepIdle means no job is in flight.
	StepIdle JobStep = "idle"
	// StepTriggered means a job was submitted but not yet polled.
	StepTriggered JobStep = "triggered"
	// StepPolling means the job was seen queued or running at least once.
	StepPolling JobStep = "polling"
	// StepDownloaded means artifacts are on local disk awaiting
	// dedup gating and upload.
	StepDownloaded JobStep = "downloaded"
)

// AccountUsage tracks one account's quota consumption for the current
// period. The slice of these in State is index-stable: entry i always
// describes account i.
type AccountUsage struct {
	Index           int        `json:"index" msgpack:"index"`
	ConsumedHours   float64    `json:"consumed_hours" msgpack:"consumed_hours"`
	PeriodStartedAt *time.Time `json:"period_started_at,omitempty" msgpack:"period_started_at,omitempty"`
}

// State is the singleton orchestration record. Exactly one job is in
// flight at a time; ActiveAccount always indexes AccountUsage; the
// fingerprint window never exceeds its configured bound.
type State struct {
	RunStatus     RunStatus      `json:"run_status" msgpack:"run_status"`
	JobStep       JobStep        `json:"job_step" msgpack:"job_step"`
	ActiveAccount int            `json:"active_account_index" msgpack:"active_account_index"`
	AccountUsage  []AccountUsage `json:"account_usage" msgpack:"account_usage"`

	RecentFingerprints []string `json:"recent_fingerprints" msgpack:"recent_fingerprints"`
	TotalCompleted     int      `json:"total_completed" msgpack:"total_completed"`

	// In-flight job details, valid between triggered and downloaded.
	CurrentPrompt string     `json:"current_prompt,omitempty" msgpack:"current_prompt,omitempty"`
	CurrentSeed   int64      `json:"current_seed,omitempty" msgpack:"current_seed,omitempty"`
	TriggeredAt   *time.Time `json:"triggered_at,omitempty" msgpack:"triggered_at,omitempty"`
	AudioPath     string     `json:"audio_path,omitempty" msgpack:"audio_path,omitempty"`
	MetadataPath  string     `json:"metadata_path,omitempty" msgpack:"metadata_path,omitempty"`

	StepRetryCount int `json:"step_retry_count" msgpack:"step_retry_count"`

	LastError     string              `json:"last_error,omitempty" msgpack:"last_error,omitempty"`
	LastErrorKind musicai.FailureKind `json:"last_error_kind,omitempty" msgpack:"last_error_kind,omitempty"`

	InterventionPendingSince *time.Time `json:"intervention_pending_since,omitempty" msgpack:"intervention_pending_since,omitempty"`

	LastBackupAt      *time.Time `json:"last_backup_at,omitempty" msgpack:"last_backup_at,omitempty"`
	LastCleanupAt     *time.Time `json:"last_cleanup_at,omitempty" msgpack:"last_cleanup_at,omitempty"`
	LastHealthCheckAt *time.Time `json:"last_health_check_at,omitempty" msgpack:"last_health_check_at,omitempty"`

	// IntegrityTag is a SHA-256 over the canonical encoding of every
	// other field. Recomputed on save, verified on load; a mismatch is
	// treated as an absent record.
	IntegrityTag string `json:"integrity_tag,omitempty" msgpack:"integrity_tag,omitempty"`
}

// Default returns the zero-value state for a pool of n accounts.
// It is what Load falls back to when the record is absent or rejected.
func Default(n int) *State {
	usage := make([]AccountUsage, n)
	for i := range usage {
		usage[i] = AccountUsage{Index: i}
	}
	return &State{
		RunStatus:          StatusStopped,
		JobStep:            StepIdle,
		AccountUsage:       usage,
		RecentFingerprints: []string{},
	}
}

// SetError records a tagged failure on the state.
func (s *State) SetError(kind musicai.FailureKind, msg string) {
	s.LastError = msg
	s.LastErrorKind = kind
}

// ClearError wipes the failure record after a successful step.
func (s *State) ClearError() {
	s.LastError = ""
	s.LastErrorKind = ""
}

// ClearJob resets the in-flight job fields after finalization or abandonment.
func (s *State) ClearJob() {
	s.CurrentPrompt = ""
	s.CurrentSeed = 0
	s.TriggeredAt = nil
	s.AudioPath = ""
	s.MetadataPath = ""
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.AccountUsage = make([]AccountUsage, len(s.AccountUsage))
	copy(c.AccountUsage, s.AccountUsage)
	c.RecentFingerprints = append([]string(nil), s.RecentFingerprints...)
	copyTime := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		v := *t
		return &v
	}
	c.TriggeredAt = copyTime(s.TriggeredAt)
	c.InterventionPendingSince = copyTime(s.InterventionPendingSince)
	c.LastBackupAt = copyTime(s.LastBackupAt)
	c.LastCleanupAt = copyTime(s.LastCleanupAt)
	c.LastHealthCheckAt = copyTime(s.LastHealthCheckAt)
	for i := range c.AccountUsage {
		c.AccountUsage[i].PeriodStartedAt = copyTime(s.AccountUsage[i].PeriodStartedAt)
	}
	return &c
}

package musicai

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the orchestrator.
type Config struct {
	// Accounts is the number of compute accounts in the rotation pool.
	Accounts int `yaml:"accounts"`

	// WeeklyQuotaHours is each account's GPU quota per period.
	WeeklyQuotaHours float64 `yaml:"weekly_quota_hours"`

	// QuotaBuffer is the safety fraction applied to the quota; the
	// effective cap is WeeklyQuotaHours * QuotaBuffer.
	QuotaBuffer float64 `yaml:"quota_buffer"`

	// EstimatedRunHours is the projected GPU cost of a single job,
	// used for eligibility checks and usage accounting.
	EstimatedRunHours float64 `yaml:"estimated_run_hours"`

	// ResetWeekday is the weekday (UTC) on which account usage resets.
	ResetWeekday time.Weekday `yaml:"reset_weekday"`

	// RotateEveryCompleted rotates the active account after this many
	// completed jobs per account, spreading wear across the pool.
	RotateEveryCompleted int `yaml:"rotate_every_completed"`

	// FingerprintWindow is the number of recent content fingerprints
	// kept for the uniqueness check.
	FingerprintWindow int `yaml:"fingerprint_window"`

	// SimilarityThreshold rejects a new artifact whose maximum
	// similarity against the window reaches this value.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// AcceptUnknownFingerprint admits artifacts whose fingerprint is
	// missing or error-flagged. Off by default: an unevaluable artifact
	// is discarded rather than risked as a duplicate.
	AcceptUnknownFingerprint bool `yaml:"accept_unknown_fingerprint"`

	// RetentionMaxAge deletes remote artifacts older than this.
	RetentionMaxAge time.Duration `yaml:"retention_max_age"`

	// RetentionMaxCount caps how many remote artifacts survive the age
	// pass before oldest-first trimming.
	RetentionMaxCount int `yaml:"retention_max_count"`

	// CycleInterval is the pause between orchestration cycles.
	CycleInterval time.Duration `yaml:"cycle_interval"`

	// InterventionTimeout is how long the engine waits in the error
	// status before attempting one automated recovery.
	InterventionTimeout time.Duration `yaml:"intervention_timeout"`

	// RetryAttempts and RetryDelay bound the retry executor for
	// external calls.
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`

	// BackupSchedule, CleanupSchedule and HealthSchedule are cron
	// expressions (5-field or @every descriptors) gating the periodic
	// side tasks.
	BackupSchedule  string `yaml:"backup_schedule"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
	HealthSchedule  string `yaml:"health_schedule"`

	// StatePath is the canonical state file location.
	StatePath string `yaml:"state_path"`

	// StateCodec selects the state serialization format: "json"
	// (default) or "msgpack".
	StateCodec string `yaml:"state_codec"`

	// WorkDir is where downloaded artifacts land before upload.
	WorkDir string `yaml:"work_dir"`

	// ArchiveFolder is the object-store folder receiving artifacts and
	// state backups.
	ArchiveFolder string `yaml:"archive_folder"`

	// NotebookSlug identifies the compute kernel to trigger.
	NotebookSlug string `yaml:"notebook_slug"`

	// StyleProfilePath persists the prompt generator's style profile.
	StyleProfilePath string `yaml:"style_profile_path"`

	// StyleResetCount resets the style profile after this many
	// completed jobs.
	StyleResetCount int `yaml:"style_reset_count"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Accounts:             4,
		WeeklyQuotaHours:     30,
		QuotaBuffer:          0.9,
		EstimatedRunHours:    0.5,
		ResetWeekday:         time.Monday,
		RotateEveryCompleted: 25,
		FingerprintWindow:    50,
		SimilarityThreshold:  0.90,
		RetentionMaxAge:      30 * 24 * time.Hour,
		RetentionMaxCount:    500,
		CycleInterval:        5 * time.Minute,
		InterventionTimeout:  30 * time.Minute,
		RetryAttempts:        2,
		RetryDelay:           10 * time.Second,
		BackupSchedule:       "@every 1h",
		CleanupSchedule:      "@every 24h",
		HealthSchedule:       "@every 30m",
		StatePath:            "state.json",
		StateCodec:           "json",
		WorkDir:              ".",
		ArchiveFolder:        "generated",
		NotebookSlug:         "musicyyai/notebook63936fc364",
		StyleProfilePath:     "style_profile.json",
		StyleResetCount:      100,
	}
}

// Load reads a Config from a YAML file, layered over DefaultConfig.
func Load(file string) (Config, error) {
	c := DefaultConfig()
	b, err := os.ReadFile(file)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// MustLoad reads a Config from a YAML file and panics on failure.
func MustLoad(file string) Config {
	c, err := Load(file)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks invariants the orchestrator depends on.
func (c Config) Validate() error {
	if c.Accounts < 1 {
		return ErrNoAccounts
	}
	if c.QuotaBuffer <= 0 || c.QuotaBuffer > 1 {
		return fmt.Errorf("musicai: quota_buffer must be in (0, 1], got %v", c.QuotaBuffer)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("musicai: similarity_threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.FingerprintWindow < 1 {
		return fmt.Errorf("musicai: fingerprint_window must be >= 1, got %d", c.FingerprintWindow)
	}
	if c.CycleInterval <= 0 {
		return fmt.Errorf("musicai: cycle_interval must be positive, got %v", c.CycleInterval)
	}
	return nil
}

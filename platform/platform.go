// Package platform defines the typed capability interfaces the
// orchestration core consumes, one per external collaborator. Concrete
// adapters live in subpackages (kaggle, gdrive, telegram, spotify);
// malformed responses fail inside an adapter with a tagged error, never
// deep inside orchestration logic.
package platform

import (
	"context"
	"time"
)

// RunStatus is the compute platform's view of a submitted job.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunComplete  RunStatus = "complete"
	RunError     RunStatus = "error"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status ends the job on the platform side.
func (s RunStatus) Terminal() bool {
	return s == RunComplete || s == RunError || s == RunCancelled
}

// Parameters is one job's generation input. The orchestration core
// treats the content as opaque; only the adapters and the parameter
// generator interpret it.
type Parameters struct {
	Prompt         string  `json:"prompt"`
	Seed           int64   `json:"seed"`
	InferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
}

// Artifacts are the local paths produced by a completed run.
type Artifacts struct {
	// AudioPath is the generated track. Required.
	AudioPath string
	// MetadataPath is the analysis JSON describing the track. Required.
	MetadataPath string
	// ImagePath is the optional spectrogram image.
	ImagePath string
}

// Empty reports whether the fetch produced no usable output.
func (a Artifacts) Empty() bool {
	return a.AudioPath == "" || a.MetadataPath == ""
}

// Compute is the GPU platform the orchestrator drives. All methods are
// synchronous and may block; callers wrap them in retry.Do.
type Compute interface {
	// UseAccount installs the credentials for the given account index.
	// Subsequent calls act as that account.
	UseAccount(ctx context.Context, index int) error

	// Submit triggers one run of the configured kernel.
	Submit(ctx context.Context, params Parameters) error

	// Poll reports the status of the latest run.
	Poll(ctx context.Context) (RunStatus, error)

	// FetchOutputs downloads the latest completed run's outputs into
	// destDir and returns their local paths.
	FetchOutputs(ctx context.Context, destDir string) (Artifacts, error)

	// CheckAuth verifies the active credentials still work. Used by the
	// periodic health check.
	CheckAuth(ctx context.Context) error
}

// Object is one remote artifact in a listing. CreatedAt is zero when
// the platform's timestamp could not be parsed; such objects are
// excluded from retention decisions and logged as anomalies.
type Object struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ObjectStore is the remote archive for artifacts and state backups.
type ObjectStore interface {
	// List returns the objects in a folder.
	List(ctx context.Context, folder string) ([]Object, error)

	// Upload stores a local file under the given folder and name,
	// returning the new object's ID.
	Upload(ctx context.Context, localPath, folder, name string) (string, error)

	// Delete removes one object by ID.
	Delete(ctx context.Context, id string) error
}

// Severity ranks operator notifications.
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Notifier delivers operator-facing messages. Sends are best-effort:
// the orchestrator logs delivery failures and moves on.
type Notifier interface {
	Send(ctx context.Context, severity Severity, message string) error
}

// TrendSource supplies trending keywords that bias prompt generation.
type TrendSource interface {
	TrendingKeywords(ctx context.Context, limit int) ([]string, error)
}

// ParameterGenerator produces the next job's generation input.
type ParameterGenerator interface {
	Generate(ctx context.Context, totalCompleted int) (Parameters, error)
}

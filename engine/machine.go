package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/account"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/dedup"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/retry"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// trackAnalysis is the metadata the compute notebook writes alongside
// the audio. Malformed documents are caught here, not deeper in the
// machine.
type trackAnalysis struct {
	Fingerprint      string  `json:"fingerprint"`
	FingerprintError string  `json:"fingerprint_error"`
	EstimatedBPM     float64 `json:"estimated_bpm"`
	EstimatedKey     string  `json:"estimated_key"`
	Duration         float64 `json:"duration"`
	ProcessingError  string  `json:"processing_error"`
}

// styleRecorder receives feedback about archived tracks. Implemented by
// promptgen.Generator; optional.
type styleRecorder interface {
	RecordSuccess(prompt string, bpm int, key string)
}

// Machine advances a single job through idle, triggered, polling and
// downloaded. Every transition is persisted immediately so a crash
// resumes at the last committed step; step actions are safe to repeat.
type Machine struct {
	store    state.Store
	pool     *account.Pool
	compute  platform.Compute
	objects  platform.ObjectStore
	notifier platform.Notifier
	params   platform.ParameterGenerator
	dedup    *dedup.Index
	hooks    *hook.Registry
	recorder styleRecorder

	jobCost       float64
	workDir       string
	archiveFolder string
	retryAttempts int
	retryStrategy retry.Strategy

	logger *slog.Logger
	clock  func() time.Time
}

// Step executes one state machine step against st, persisting after
// every transition. It never returns an error for job-level failures;
// those are recorded on the state. The returned error covers only
// context cancellation.
func (m *Machine) Step(ctx context.Context, st *state.State) error {
	switch st.JobStep {
	case state.StepIdle:
		return m.stepIdle(ctx, st)
	case state.StepTriggered, state.StepPolling:
		return m.stepPoll(ctx, st)
	case state.StepDownloaded:
		return m.stepDownloaded(ctx, st)
	default:
		m.logger.Error("machine: unknown job step, resetting to idle",
			slog.String("step", string(st.JobStep)))
		st.JobStep = state.StepIdle
		st.ClearJob()
		m.save(ctx, st)
		return nil
	}
}

// stepIdle selects an account, generates parameters and submits a run.
func (m *Machine) stepIdle(ctx context.Context, st *state.State) error {
	idx, err := m.pool.SelectEligible(ctx, st)
	if err != nil {
		// Every account is out of budget for this period. Park the
		// engine; a period reset plus an explicit start resumes it.
		st.RunStatus = state.StatusExhausted
		st.SetError(musicai.KindQuotaExhausted, "all accounts exhausted weekly quota")
		m.save(ctx, st)
		m.notify(ctx, platform.SeverityCritical,
			"all accounts exhausted their quota; generation parked until the next period reset and an explicit start")
		m.hooks.EmitQuotaExhausted(ctx)
		return nil
	}
	m.save(ctx, st) // SelectEligible may have moved the active account

	if err := m.retrying(ctx, "use account", func(ctx context.Context) error {
		return m.compute.UseAccount(ctx, idx)
	}); err != nil {
		m.failSubmit(ctx, st, err)
		return ctx.Err()
	}

	params, err := m.params.Generate(ctx, st.TotalCompleted)
	if err != nil {
		m.failSubmit(ctx, st, musicai.NewOpError("generate", musicai.KindSetup, err))
		return ctx.Err()
	}

	if err := m.retrying(ctx, "submit run", func(ctx context.Context) error {
		return m.compute.Submit(ctx, params)
	}); err != nil {
		m.failSubmit(ctx, st, err)
		return ctx.Err()
	}

	now := m.clock()
	st.JobStep = state.StepTriggered
	st.CurrentPrompt = params.Prompt
	st.CurrentSeed = params.Seed
	st.TriggeredAt = &now
	st.StepRetryCount = 0
	st.ClearError()
	m.save(ctx, st)

	m.logger.Info("machine: run submitted",
		slog.String("prompt", params.Prompt),
		slog.Int("account", idx))
	m.hooks.EmitJobSubmitted(ctx, params.Prompt, idx)
	return nil
}

// failSubmit records a submission-phase failure: rotate away from the
// possibly bad account, stay idle, enter the error status.
func (m *Machine) failSubmit(ctx context.Context, st *state.State, err error) {
	kind := musicai.KindOf(err)
	m.logger.Error("machine: submission failed",
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))

	m.pool.Rotate(ctx, st, "submission failure")
	m.enterError(ctx, st, kind, err.Error())
}

// stepPoll checks the platform's view of the in-flight run.
func (m *Machine) stepPoll(ctx context.Context, st *state.State) error {
	if st.JobStep == state.StepTriggered {
		st.JobStep = state.StepPolling
		m.save(ctx, st)
	}

	var status platform.RunStatus
	err := m.retrying(ctx, "poll run", func(ctx context.Context) error {
		var pollErr error
		status, pollErr = m.compute.Poll(ctx)
		return pollErr
	})
	if err != nil {
		kind := musicai.KindOf(err)
		m.logger.Error("machine: poll failed", slog.String("error", err.Error()))
		m.pool.Rotate(ctx, st, "poll failure")
		m.enterError(ctx, st, kind, err.Error())
		return ctx.Err()
	}

	switch status {
	case platform.RunComplete:
		return m.finishRun(ctx, st)
	case platform.RunQueued, platform.RunRunning:
		m.logger.Info("machine: run still in progress", slog.String("status", string(status)))
		return nil
	case platform.RunError, platform.RunCancelled:
		// The run itself failed on the platform. Abandon it; this is
		// not retryable.
		err := fmt.Errorf("run finished with status %s", status)
		m.logger.Warn("machine: run abandoned", slog.String("status", string(status)))
		m.notify(ctx, platform.SeverityWarning,
			fmt.Sprintf("run abandoned, platform reported %s", status))
		m.hooks.EmitJobAbandoned(ctx, musicai.KindJobTerminal, err)
		st.SetError(musicai.KindJobTerminal, err.Error())
		st.ClearJob()
		st.JobStep = state.StepIdle
		m.save(ctx, st)
		return nil
	default:
		m.logger.Warn("machine: unrecognized run status", slog.String("status", string(status)))
		return nil
	}
}

// finishRun records quota usage and downloads the outputs.
func (m *Machine) finishRun(ctx context.Context, st *state.State) error {
	m.pool.RecordUsage(st, st.ActiveAccount, m.jobCost)
	m.save(ctx, st)

	var arts platform.Artifacts
	err := m.retrying(ctx, "download outputs", func(ctx context.Context) error {
		var fetchErr error
		arts, fetchErr = m.compute.FetchOutputs(ctx, m.workDir)
		return fetchErr
	})
	if err != nil {
		m.logger.Error("machine: download failed", slog.String("error", err.Error()))
		m.pool.Rotate(ctx, st, "download failure")
		m.enterError(ctx, st, musicai.KindOf(err), err.Error())
		return ctx.Err()
	}

	st.AudioPath = arts.AudioPath
	st.MetadataPath = arts.MetadataPath
	st.JobStep = state.StepDownloaded
	m.save(ctx, st)
	m.logger.Info("machine: outputs downloaded", slog.String("audio", arts.AudioPath))
	return nil
}

// stepDownloaded gates the artifact through dedup and archives it.
func (m *Machine) stepDownloaded(ctx context.Context, st *state.State) error {
	analysis, err := m.decodeAnalysis(st.MetadataPath)
	if err != nil {
		// Without metadata there is no fingerprint and no analysis;
		// treat like a track that failed processing and discard.
		m.logger.Error("machine: unreadable analysis metadata", slog.String("error", err.Error()))
		st.SetError(musicai.KindProcessing, fmt.Sprintf("unreadable analysis metadata: %v", err))
		m.discard(ctx, st)
		return nil
	}

	if analysis.FingerprintError != "" {
		m.logger.Warn("machine: fingerprint computation failed upstream",
			slog.String("error", analysis.FingerprintError))
		st.SetError(musicai.KindProcessing, "fingerprint error: "+analysis.FingerprintError)
		m.discard(ctx, st)
		return nil
	}

	if !m.dedup.Acceptable(analysis.Fingerprint, st.RecentFingerprints) {
		sim := maxSimilarity(analysis.Fingerprint, st.RecentFingerprints)
		m.logger.Warn("machine: artifact rejected as too similar",
			slog.Float64("similarity", sim))
		m.hooks.EmitArtifactRejected(ctx, analysis.Fingerprint, sim)
		st.SetError(musicai.KindProcessing, "discarded: track too similar to recent output")
		m.discard(ctx, st)
		return nil
	}

	name := m.archiveName(st, analysis)
	audioPath := st.AudioPath
	err = m.retrying(ctx, "upload artifact", func(ctx context.Context) error {
		_, upErr := m.objects.Upload(ctx, audioPath, m.archiveFolder, name)
		return upErr
	})
	if err != nil {
		// Keep the downloaded step so an intervention can resume the
		// upload while the local files still exist.
		m.logger.Error("machine: upload failed", slog.String("error", err.Error()))
		m.enterError(ctx, st, musicai.KindOf(err), err.Error())
		return ctx.Err()
	}

	if analysis.Fingerprint != "" {
		st.RecentFingerprints = m.dedup.Admit(st.RecentFingerprints, analysis.Fingerprint)
	}
	st.TotalCompleted++
	if m.recorder != nil {
		m.recorder.RecordSuccess(st.CurrentPrompt, int(analysis.EstimatedBPM+0.5), analysis.EstimatedKey)
	}

	var elapsed time.Duration
	if st.TriggeredAt != nil {
		elapsed = m.clock().Sub(*st.TriggeredAt)
	}
	prompt := st.CurrentPrompt
	m.notify(ctx, platform.SeverityInfo, "track archived: "+name)
	m.hooks.EmitJobCompleted(ctx, prompt, elapsed)

	if m.pool.DueScheduledRotation(st.TotalCompleted) {
		m.pool.Rotate(ctx, st, "scheduled rotation")
	}

	m.cleanupLocal(st)
	st.ClearJob()
	st.ClearError()
	st.JobStep = state.StepIdle
	m.save(ctx, st)

	m.logger.Info("machine: job finalized",
		slog.Int("total_completed", st.TotalCompleted),
		slog.String("archived_as", name))
	return nil
}

// discard drops the local artifacts without uploading and returns the
// machine to idle. TotalCompleted is not advanced.
func (m *Machine) discard(ctx context.Context, st *state.State) {
	m.cleanupLocal(st)
	st.ClearJob()
	st.JobStep = state.StepIdle
	m.save(ctx, st)
}

// enterError moves the run into the error status and stamps the
// intervention clock.
func (m *Machine) enterError(ctx context.Context, st *state.State, kind musicai.FailureKind, msg string) {
	now := m.clock()
	st.RunStatus = state.StatusError
	st.SetError(kind, msg)
	st.InterventionPendingSince = &now
	m.save(ctx, st)
	m.notify(ctx, platform.SeverityError,
		fmt.Sprintf("entered error status (%s): %s", kind, msg))
	m.hooks.EmitErrorEntered(ctx, kind, msg)
}

func (m *Machine) decodeAnalysis(path string) (*trackAnalysis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a trackAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// archiveName derives the remote filename from the prompt and analysis.
func (m *Machine) archiveName(st *state.State, a *trackAnalysis) string {
	theme := "unknown"
	if st.CurrentPrompt != "" {
		theme = st.CurrentPrompt
		if i := strings.IndexByte(theme, ','); i >= 0 {
			theme = theme[:i]
		}
		theme = sanitize(theme)
		if len(theme) > 30 {
			theme = theme[:30]
		}
	}
	ts := m.clock().UTC().Format("20060102_150405")
	bpm := "UNK"
	if a.EstimatedBPM > 0 {
		bpm = fmt.Sprintf("%.0f", a.EstimatedBPM)
	}
	key := "UNK"
	if a.EstimatedKey != "" {
		key = strings.ReplaceAll(a.EstimatedKey, "#", "s")
	}
	return fmt.Sprintf("track_%s_%s_bpm%s_key%s.mp3", ts, theme, bpm, key)
}

func (m *Machine) cleanupLocal(st *state.State) {
	for _, p := range []string{st.AudioPath, st.MetadataPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("machine: cleanup failed",
				slog.String("path", p),
				slog.String("error", err.Error()))
		}
	}
}

// retrying wraps one boundary call in the machine's retry policy.
func (m *Machine) retrying(ctx context.Context, name string, op retry.Op) error {
	return retry.Do(ctx, retry.Policy{
		Name:       name,
		MaxRetries: m.retryAttempts,
		Strategy:   m.retryStrategy,
		Logger:     m.logger,
	}, op)
}

func (m *Machine) save(ctx context.Context, st *state.State) {
	if err := m.store.Save(ctx, st); err != nil {
		m.logger.Error("machine: state save failed", slog.String("error", err.Error()))
	}
}

func (m *Machine) notify(ctx context.Context, sev platform.Severity, msg string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, sev, msg); err != nil {
		m.logger.Warn("machine: notification failed", slog.String("error", err.Error()))
	}
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func maxSimilarity(fp string, window []string) float64 {
	best := 0.0
	for _, w := range window {
		if s := dedup.Similarity(fp, w); s > best {
			best = s
		}
	}
	return best
}

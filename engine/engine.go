package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/account"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/dedup"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/promptgen"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/retry"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// Engine is the orchestration core. Build one with New, wire the
// platform collaborators through options, then call Run.
type Engine struct {
	cfg musicai.Config

	store    state.Store
	pool     *account.Pool
	compute  platform.Compute
	objects  platform.ObjectStore
	notifier platform.Notifier
	params   platform.ParameterGenerator
	trends   platform.TrendSource
	recorder styleRecorder

	machine      *Machine
	intervention *Intervention
	hooks        *hook.Registry

	backupSched  cron.Schedule
	cleanupSched cron.Schedule
	healthSched  cron.Schedule

	logger *slog.Logger
	clock  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore replaces the default file-backed state store.
func WithStore(s state.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithCompute sets the GPU platform adapter.
func WithCompute(c platform.Compute) Option {
	return func(e *Engine) { e.compute = c }
}

// WithObjectStore sets the artifact archive.
func WithObjectStore(s platform.ObjectStore) Option {
	return func(e *Engine) { e.objects = s }
}

// WithNotifier sets the operator notification channel.
func WithNotifier(n platform.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithParameterGenerator replaces the default prompt generator.
func WithParameterGenerator(g platform.ParameterGenerator) Option {
	return func(e *Engine) { e.params = g }
}

// WithTrendSource feeds trending keywords into the default prompt
// generator. Ignored when WithParameterGenerator is also given.
func WithTrendSource(src platform.TrendSource) Option {
	return func(e *Engine) { e.trends = src }
}

// WithExtension registers a lifecycle extension.
func WithExtension(ext hook.Extension) Option {
	return func(e *Engine) { e.hooks.Register(ext) }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New builds an Engine from the config and options. The compute
// platform and object store are required; everything else has a
// default.
func New(cfg musicai.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
		clock:  time.Now,
	}
	e.hooks = hook.NewRegistry(e.logger)
	for _, opt := range opts {
		opt(e)
	}

	if e.compute == nil {
		return nil, musicai.ErrNoCompute
	}
	if e.objects == nil {
		return nil, musicai.ErrNoObjectStore
	}

	if e.store == nil {
		codec, err := state.GetCodec(cfg.StateCodec)
		if err != nil {
			return nil, err
		}
		e.store = state.NewFileStore(cfg.StatePath, cfg.Accounts,
			state.WithCodec(codec), state.WithLogger(e.logger))
	}

	e.pool = account.NewPool(cfg,
		account.WithNotifier(e.notifier),
		account.WithHooks(e.hooks),
		account.WithLogger(e.logger))

	if e.params == nil {
		gen := promptgen.New(cfg.StyleProfilePath,
			promptgen.WithTrendSource(e.trends),
			promptgen.WithStyleReset(cfg.StyleResetCount),
			promptgen.WithLogger(e.logger))
		e.params = gen
		e.recorder = gen
	}

	idx := dedup.NewIndex(cfg.FingerprintWindow, cfg.SimilarityThreshold)
	idx.AcceptUnknown = cfg.AcceptUnknownFingerprint
	idx.Logger = e.logger

	e.machine = &Machine{
		store:         e.store,
		pool:          e.pool,
		compute:       e.compute,
		objects:       e.objects,
		notifier:      e.notifier,
		params:        e.params,
		dedup:         idx,
		hooks:         e.hooks,
		recorder:      e.recorder,
		jobCost:       cfg.EstimatedRunHours,
		workDir:       cfg.WorkDir,
		archiveFolder: cfg.ArchiveFolder,
		retryAttempts: cfg.RetryAttempts,
		retryStrategy: retry.NewConstant(cfg.RetryDelay),
		logger:        e.logger,
		clock:         e.clock,
	}

	e.intervention = &Intervention{
		timeout:  cfg.InterventionTimeout,
		notifier: e.notifier,
		hooks:    e.hooks,
		logger:   e.logger,
		clock:    e.clock,
	}

	var err error
	if e.backupSched, err = parseSchedule(cfg.BackupSchedule); err != nil {
		return nil, err
	}
	if e.cleanupSched, err = parseSchedule(cfg.CleanupSchedule); err != nil {
		return nil, err
	}
	if e.healthSched, err = parseSchedule(cfg.HealthSchedule); err != nil {
		return nil, err
	}

	return e, nil
}

// Run executes cycles on the configured interval until ctx is
// cancelled. Shutdown is cooperative: a cycle in flight finishes and
// persists before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine: starting",
		slog.Duration("cycle_interval", e.cfg.CycleInterval),
		slog.Int("accounts", e.cfg.Accounts))

	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	// First cycle runs immediately rather than one interval in.
	e.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine: shutting down")
			e.hooks.EmitShutdown(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			e.Cycle(ctx)
		}
	}
}

// StartRun sets the run status to running. This is the explicit start
// the engine requires initially and after quota exhaustion.
func (e *Engine) StartRun(ctx context.Context) error {
	st := e.store.Load(ctx)
	st.RunStatus = state.StatusRunning
	st.ClearError()
	if err := e.store.Save(ctx, st); err != nil {
		return err
	}
	e.logger.Info("engine: run status set to running")
	return nil
}

// StopRun requests a cooperative stop: the current step finishes, then
// the next cycle flips the status to stopped.
func (e *Engine) StopRun(ctx context.Context) error {
	st := e.store.Load(ctx)
	if st.RunStatus == state.StatusRunning {
		st.RunStatus = state.StatusStopping
		if err := e.store.Save(ctx, st); err != nil {
			return err
		}
	}
	e.logger.Info("engine: stop requested")
	return nil
}

func (e *Engine) save(ctx context.Context, st *state.State) {
	if err := e.store.Save(ctx, st); err != nil {
		e.logger.Error("engine: state save failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) notify(ctx context.Context, sev platform.Severity, msg string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, sev, msg); err != nil {
		e.logger.Warn("engine: notification failed", slog.String("error", err.Error()))
	}
}

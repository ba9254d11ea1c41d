package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/hook"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

// meterName is the instrumentation scope name for orchestrator metrics.
const meterName = "github.com/musicyyai/MusicAI-Generator-by-Yajurva"

// Compile-time interface checks.
var (
	_ hook.Extension        = (*MetricsExtension)(nil)
	_ hook.JobSubmitted     = (*MetricsExtension)(nil)
	_ hook.JobCompleted     = (*MetricsExtension)(nil)
	_ hook.JobAbandoned     = (*MetricsExtension)(nil)
	_ hook.ArtifactRejected = (*MetricsExtension)(nil)
	_ hook.AccountRotated   = (*MetricsExtension)(nil)
	_ hook.QuotaExhausted   = (*MetricsExtension)(nil)
	_ hook.ErrorEntered     = (*MetricsExtension)(nil)
	_ hook.Recovered        = (*MetricsExtension)(nil)
	_ hook.ArtifactsDeleted = (*MetricsExtension)(nil)
	_ hook.CycleFinished    = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle metrics using OpenTelemetry
// instruments. Register it on the engine's hook registry to track
// submission rates, completion counts, rejection and abandonment rates,
// rotations, quota exhaustions and cycle durations. With no global
// MeterProvider configured the instruments are noops.
type MetricsExtension struct {
	jobsSubmitted    metric.Int64Counter
	jobsCompleted    metric.Int64Counter
	jobsAbandoned    metric.Int64Counter
	rejected         metric.Int64Counter
	rotations        metric.Int64Counter
	quotaExhaustions metric.Int64Counter
	errorsEntered    metric.Int64Counter
	recoveries       metric.Int64Counter
	artifactsDeleted metric.Int64Counter
	cycleDuration    metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension recording to
// the provided meter. This variant allows injecting a specific
// MeterProvider for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// Instrument creation errors leave noop instruments behind, so the
	// extension degrades gracefully.
	m := &MetricsExtension{}
	m.jobsSubmitted, _ = meter.Int64Counter("musicai.jobs.submitted",
		metric.WithDescription("Total runs triggered on the compute platform"),
		metric.WithUnit("{job}"))
	m.jobsCompleted, _ = meter.Int64Counter("musicai.jobs.completed",
		metric.WithDescription("Total tracks archived"),
		metric.WithUnit("{job}"))
	m.jobsAbandoned, _ = meter.Int64Counter("musicai.jobs.abandoned",
		metric.WithDescription("Total runs given up on"),
		metric.WithUnit("{job}"))
	m.rejected, _ = meter.Int64Counter("musicai.artifacts.rejected",
		metric.WithDescription("Tracks discarded by the similarity check"),
		metric.WithUnit("{artifact}"))
	m.rotations, _ = meter.Int64Counter("musicai.account.rotations",
		metric.WithDescription("Active account changes"),
		metric.WithUnit("{rotation}"))
	m.quotaExhaustions, _ = meter.Int64Counter("musicai.quota.exhaustions",
		metric.WithDescription("Times every account ran out of budget"),
		metric.WithUnit("{event}"))
	m.errorsEntered, _ = meter.Int64Counter("musicai.errors.entered",
		metric.WithDescription("Transitions into the error status"),
		metric.WithUnit("{event}"))
	m.recoveries, _ = meter.Int64Counter("musicai.errors.recovered",
		metric.WithDescription("Automated recoveries out of the error status"),
		metric.WithUnit("{event}"))
	m.artifactsDeleted, _ = meter.Int64Counter("musicai.artifacts.deleted",
		metric.WithDescription("Archived artifacts removed by retention"),
		metric.WithUnit("{artifact}"))
	m.cycleDuration, _ = meter.Float64Histogram("musicai.cycle.duration",
		metric.WithDescription("Duration of one orchestration cycle in seconds"),
		metric.WithUnit("s"))
	return m
}

// Name implements hook.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobSubmitted implements hook.JobSubmitted.
func (m *MetricsExtension) OnJobSubmitted(ctx context.Context, _ string, account int) error {
	m.jobsSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.Int("account", account)))
	return nil
}

// OnJobCompleted implements hook.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, _ string, _ time.Duration) error {
	m.jobsCompleted.Add(ctx, 1)
	return nil
}

// OnJobAbandoned implements hook.JobAbandoned.
func (m *MetricsExtension) OnJobAbandoned(ctx context.Context, kind musicai.FailureKind, _ error) error {
	m.jobsAbandoned.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	return nil
}

// OnArtifactRejected implements hook.ArtifactRejected.
func (m *MetricsExtension) OnArtifactRejected(ctx context.Context, _ string, _ float64) error {
	m.rejected.Add(ctx, 1)
	return nil
}

// OnAccountRotated implements hook.AccountRotated.
func (m *MetricsExtension) OnAccountRotated(ctx context.Context, _, _ int, reason string) error {
	m.rotations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return nil
}

// OnQuotaExhausted implements hook.QuotaExhausted.
func (m *MetricsExtension) OnQuotaExhausted(ctx context.Context) error {
	m.quotaExhaustions.Add(ctx, 1)
	return nil
}

// OnErrorEntered implements hook.ErrorEntered.
func (m *MetricsExtension) OnErrorEntered(ctx context.Context, kind musicai.FailureKind, _ string) error {
	m.errorsEntered.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	return nil
}

// OnRecovered implements hook.Recovered.
func (m *MetricsExtension) OnRecovered(ctx context.Context, resumedAt state.JobStep) error {
	m.recoveries.Add(ctx, 1, metric.WithAttributes(attribute.String("resumed_at", string(resumedAt))))
	return nil
}

// OnArtifactsDeleted implements hook.ArtifactsDeleted.
func (m *MetricsExtension) OnArtifactsDeleted(ctx context.Context, deleted, _ int) error {
	m.artifactsDeleted.Add(ctx, int64(deleted))
	return nil
}

// OnCycleFinished implements hook.CycleFinished.
func (m *MetricsExtension) OnCycleFinished(ctx context.Context, status state.RunStatus, elapsed time.Duration) error {
	m.cycleDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("status", string(status))))
	return nil
}

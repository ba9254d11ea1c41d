// Package observability provides an OpenTelemetry-based metrics
// extension for the orchestrator. The MetricsExtension implements
// lifecycle hooks to record counters for job submission, completion,
// abandonment, artifact rejection, account rotation, quota exhaustion
// and error recovery, plus a cycle duration histogram.
package observability

package journal

// Journal event actions. Each constant corresponds to one lifecycle
// hook and becomes the Action field of the recorded event.
const (
	ActionJobSubmitted     = "job.submitted"
	ActionJobCompleted     = "job.completed"
	ActionJobAbandoned     = "job.abandoned"
	ActionArtifactRejected = "artifact.rejected"
	ActionAccountRotated   = "account.rotated"
	ActionQuotaExhausted   = "quota.exhausted"
	ActionErrorEntered     = "error.entered"
	ActionRecovered        = "error.recovered"
	ActionArtifactsDeleted = "retention.deleted"
	ActionHealthReport     = "health.report"
	ActionCycleFinished    = "cycle.finished"
	ActionShutdown         = "engine.shutdown"
)

// Journal event categories group related actions.
const (
	CategoryJob         = "musicai.job"
	CategoryAccount     = "musicai.account"
	CategoryMaintenance = "musicai.maintenance"
	CategoryEngine      = "musicai.engine"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobSubmitted,
		ActionJobCompleted,
		ActionJobAbandoned,
		ActionArtifactRejected,
		ActionAccountRotated,
		ActionQuotaExhausted,
		ActionErrorEntered,
		ActionRecovered,
		ActionArtifactsDeleted,
		ActionHealthReport,
		ActionCycleFinished,
		ActionShutdown,
	}
}

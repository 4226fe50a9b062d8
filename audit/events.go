package audit

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionEnqueued  = "download.enqueued"
	ActionStarted   = "download.started"
	ActionCompleted = "download.completed"
	ActionFailed    = "download.failed"
	ActionRetrying  = "download.retrying"
	ActionCancelled = "download.cancelled"
)

// CategoryDownload groups all download actions.
const CategoryDownload = "downloader.download"

// ResourceDownload is the Resource field used in audit events.
const ResourceDownload = "download"

// AllActions returns every action this observer can emit.
func AllActions() []string {
	return []string{
		ActionEnqueued,
		ActionStarted,
		ActionCompleted,
		ActionFailed,
		ActionRetrying,
		ActionCancelled,
	}
}

package runtime

import (
	"github.com/contentforge/taskengine/internal/domain/tasks"
)

// Reporter is the capability-scoped handle the runner hands each handler
// execution (§4.1, §9 "Callback-based progress/artifact reporting"): the
// handler's only way to move the task forward or leave a durable trail of
// its side effects. It deliberately carries no database handle so the
// runner's "the runner does not verify this" contract around the artifact
// log stays honest — handlers cannot route around it.
type Reporter interface {
	// Progress publishes an advisory, monotonically updated progress
	// reading. Failures to persist a progress tick are not fatal to the
	// task (§7: store errors from bookkeeping are logged and swallowed).
	Progress(current, total int, message string)

	// Artifact appends one entry to the task's artifact log, in the
	// order called. previousData is nil for a "created" action and must
	// be sufficient to reverse "updated"/"deleted" actions.
	Artifact(entityType, entityID string, action tasks.Action, previousData map[string]any) error
}

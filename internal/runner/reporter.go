package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/notify"
	"github.com/contentforge/taskengine/internal/platform/logger"
	"github.com/contentforge/taskengine/internal/runtime"
	"github.com/contentforge/taskengine/internal/store"
)

// taskReporter is the runtime.Reporter the runner hands to a handler for
// the duration of one execution. It writes through to the store and
// fans progress out to the notifier; it never exposes the store itself
// to the handler (§9 "Callback-based progress/artifact reporting").
type taskReporter struct {
	ctx    context.Context
	store  store.TaskStore
	notify notify.TaskNotifier
	log    *logger.Logger
	taskID uuid.UUID
	taskType string
}

var _ runtime.Reporter = (*taskReporter)(nil)

func (r *taskReporter) Progress(current, total int, message string) {
	var msgPtr *string
	if message != "" {
		msgPtr = &message
	}
	if err := r.store.UpdateTaskProgress(r.ctx, r.taskID, current, total, msgPtr); err != nil {
		// Store errors from bookkeeping are logged and swallowed (§7).
		r.log.Warn("failed to persist task progress", "task_id", r.taskID, "error", err)
	}
	r.notify.Publish(notify.Event{
		Kind:     notify.EventProgress,
		TaskID:   r.taskID.String(),
		TaskType: r.taskType,
		Status:   tasks.StatusInProgress,
		Progress: current,
		Total:    total,
		Message:  message,
	})
}

func (r *taskReporter) Artifact(entityType, entityID string, action tasks.Action, previousData map[string]any) error {
	entry := &tasks.ArtifactLogEntry{
		ID:         uuid.New(),
		TaskID:     r.taskID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		CreatedAt:  time.Now().UTC(),
	}
	if previousData != nil {
		raw, err := json.Marshal(previousData)
		if err != nil {
			return err
		}
		entry.PreviousData = datatypes.JSON(raw)
	}
	_, err := r.store.CreateArtifactLogEntry(r.ctx, entry)
	return err
}

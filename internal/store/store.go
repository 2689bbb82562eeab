// Package store defines the abstract persistence boundary the core
// consumes (§6.1). The HTTP surface, content-entity CRUD, and migrations
// are external collaborators and are not modeled here; only the
// operations the scheduler/runner and admin surface require are.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/taskengine/internal/domain/tasks"
)

// TaskFilter narrows ListTasks/CountTasks. Zero values mean "no filter".
type TaskFilter struct {
	Status   *tasks.Status
	TaskType *string
}

// TaskStore is the durable operations set the core requires (§6.1).
// Each method is assumed to be internally atomic; no cross-method
// transaction boundary is required by the core.
type TaskStore interface {
	CreateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error)
	GetTaskByID(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]*tasks.Task, error)
	CountTasks(ctx context.Context, filter TaskFilter) (int64, error)
	UpdateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) (bool, error)

	// GetNextPendingTask returns the oldest ready task (pending, and
	// delayed_until null or <= now), or nil if none is ready.
	GetNextPendingTask(ctx context.Context) (*tasks.Task, error)

	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status tasks.Status, errorMessage *string) error
	UpdateTaskProgress(ctx context.Context, id uuid.UUID, current, total int, message *string) error
	UpdateTaskHeartbeat(ctx context.Context, id uuid.UUID) error

	// GetStuckTasks returns in_progress tasks whose heartbeat is older
	// than timeout.
	GetStuckTasks(ctx context.Context, timeout time.Duration) ([]*tasks.Task, error)

	// IncrementRetryCount atomically bumps retry_count, sets status to
	// pending, and sets delayed_until = now + delay.
	IncrementRetryCount(ctx context.Context, id uuid.UUID, delay time.Duration) error

	CreateArtifactLogEntry(ctx context.Context, e *tasks.ArtifactLogEntry) (*tasks.ArtifactLogEntry, error)
	GetArtifactLogByTask(ctx context.Context, taskID uuid.UUID) ([]*tasks.ArtifactLogEntry, error)
	DeleteArtifactLogByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}

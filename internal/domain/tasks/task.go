// Package tasks holds the durable task and artifact-log entities (§3),
// grounded on the teacher's internal/domain/jobs/job_run.go gorm model,
// generalized to the field set and invariants this spec names explicitly
// (delayed_until, progress_total, accepted_at/reverted_at, retry budget).
package tasks

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultMaxRetries = 3

// Task is a durable work item (§3). Nullable wall-clock fields are
// *time.Time so the "null iff ..." invariants can be expressed literally
// rather than through zero-value sentinels.
type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskType    string         `gorm:"column:task_type;not null;index" json:"task_type"`
	Status      Status         `gorm:"column:status;type:text;not null;index" json:"status"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	UserContext string         `gorm:"column:user_context" json:"user_context,omitempty"`

	CreatedAt     time.Time  `gorm:"column:created_at;not null;index" json:"created_at"`
	StartedAt     *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DelayedUntil  *time.Time `gorm:"column:delayed_until;index" json:"delayed_until,omitempty"`

	ProgressCurrent int    `gorm:"column:progress_current;not null;default:0" json:"progress_current"`
	ProgressTotal   int    `gorm:"column:progress_total;not null;default:0" json:"progress_total"`
	ProgressMessage string `gorm:"column:progress_message" json:"progress_message,omitempty"`
	HeartbeatAt     *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`

	ErrorMessage string `gorm:"column:error_message" json:"error_message,omitempty"`
	RetryCount   int    `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries   int    `gorm:"column:max_retries;not null;default:3" json:"max_retries"`

	AcceptedAt *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	RevertedAt *time.Time `gorm:"column:reverted_at" json:"reverted_at,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Task) TableName() string { return "tasks" }

// IsReady reports whether the task is eligible for dequeue right now:
// pending and either never delayed or past its delay threshold.
func (t *Task) IsReady(now time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	if t.DelayedUntil == nil {
		return true
	}
	return !t.DelayedUntil.After(now)
}

package tasks

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ArtifactLogEntry is an immutable record of one side effect a task
// performed against durable domain state (§3). Ordering by CreatedAt
// within a task is the canonical replay order; revert processes in
// reverse (current revert is accounting-only, see internal/revert).
type ArtifactLogEntry struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID       uuid.UUID      `gorm:"type:uuid;column:task_id;not null;index;constraint:OnDelete:CASCADE" json:"task_id"`
	EntityType   string         `gorm:"column:entity_type;not null;index" json:"entity_type"`
	EntityID     string         `gorm:"column:entity_id;not null" json:"entity_id"`
	Action       Action         `gorm:"column:action;type:text;not null" json:"action"`
	PreviousData datatypes.JSON `gorm:"column:previous_data;type:jsonb" json:"previous_data,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (ArtifactLogEntry) TableName() string { return "task_artifact_log" }

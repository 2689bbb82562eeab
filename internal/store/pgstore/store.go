// Package pgstore is the production TaskStore implementation, backed by
// GORM + Postgres. It is grounded on the teacher's
// internal/data/repos/jobs/job_run.go repository: plain *gorm.DB method
// receivers, context.WithContext on every call, map[string]interface{}
// partial updates for the narrow mutations (heartbeat, progress, status).
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/platform/logger"
	"github.com/contentforge/taskengine/internal/store"
)

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) *Store {
	return &Store{db: db, log: baseLog.With("component", "TaskStore")}
}

// Migrate runs AutoMigrate for the task engine's own tables. Migration
// discovery/application for the rest of the system is out of scope
// (§1) and lives in an external collaborator.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&tasks.Task{}, &tasks.ArtifactLogEntry{})
}

func (s *Store) CreateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = tasks.StatusPending
	}
	if t.MaxRetries == 0 {
		t.MaxRetries = tasks.DefaultMaxRetries
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) GetTaskByID(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	var t tasks.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, filter store.TaskFilter, limit, offset int) ([]*tasks.Task, error) {
	q := s.db.WithContext(ctx).Model(&tasks.Task{})
	q = applyFilter(q, filter)
	var out []*tasks.Task
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

func (s *Store) CountTasks(ctx context.Context, filter store.TaskFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&tasks.Task{})
	q = applyFilter(q, filter)
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func applyFilter(q *gorm.DB, filter store.TaskFilter) *gorm.DB {
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.TaskType != nil {
		q = q.Where("task_type = ?", *filter.TaskType)
	}
	return q
}

func (s *Store) UpdateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error) {
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&tasks.ArtifactLogEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&tasks.Task{}).Error
	}) == nil, nil
}

// GetNextPendingTask returns the oldest ready task, tie-broken on
// created_at ascending (§4.3 step 1). The scheduling model is explicitly
// single-worker-per-store (§4.3, §9), so no SELECT ... FOR UPDATE claim
// is required here; the runner performs the pending->in_progress
// transition itself immediately after dequeue.
func (s *Store) GetNextPendingTask(ctx context.Context) (*tasks.Task, error) {
	var t tasks.Task
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).
		Where("status = ?", tasks.StatusPending).
		Where("delayed_until IS NULL OR delayed_until <= ?", now).
		Order("created_at ASC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status tasks.Status, errorMessage *string) error {
	updates := map[string]interface{}{"status": status}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	return s.db.WithContext(ctx).Model(&tasks.Task{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) UpdateTaskProgress(ctx context.Context, id uuid.UUID, current, total int, message *string) error {
	updates := map[string]interface{}{
		"progress_current": current,
		"progress_total":   total,
	}
	if message != nil {
		updates["progress_message"] = *message
	}
	return s.db.WithContext(ctx).Model(&tasks.Task{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) UpdateTaskHeartbeat(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&tasks.Task{}).
		Where("id = ?", id).
		Update("heartbeat_at", time.Now().UTC()).Error
}

func (s *Store) GetStuckTasks(ctx context.Context, timeout time.Duration) ([]*tasks.Task, error) {
	cutoff := time.Now().UTC().Add(-timeout)
	var out []*tasks.Task
	err := s.db.WithContext(ctx).
		Where("status = ?", tasks.StatusInProgress).
		Where("heartbeat_at IS NOT NULL AND heartbeat_at < ?", cutoff).
		Find(&out).Error
	return out, err
}

// IncrementRetryCount is the one operation the spec requires to be a
// single atomic store-side mutation (§6.1): bump retry_count, reopen the
// task for scheduling, and set its delay in one statement.
func (s *Store) IncrementRetryCount(ctx context.Context, id uuid.UUID, delay time.Duration) error {
	delayedUntil := time.Now().UTC().Add(delay)
	return s.db.WithContext(ctx).Model(&tasks.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"status":        tasks.StatusPending,
			"delayed_until": delayedUntil,
			"started_at":    nil,
		}).Error
}

func (s *Store) CreateArtifactLogEntry(ctx context.Context, e *tasks.ArtifactLogEntry) (*tasks.ArtifactLogEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) GetArtifactLogByTask(ctx context.Context, taskID uuid.UUID) ([]*tasks.ArtifactLogEntry, error) {
	var out []*tasks.ArtifactLogEntry
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) DeleteArtifactLogByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&tasks.ArtifactLogEntry{})
	return res.RowsAffected, res.Error
}

var _ store.TaskStore = (*Store)(nil)

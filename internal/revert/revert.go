// Package revert implements the accounting-only task revert operation
// (§4.4), grounded on
// original_source/apps/backend/src/api/routes/tasks.py's revert_task: it
// tallies the artifact log by entity type and stamps reverted_at, but
// performs no entity-level undo itself (§9 Non-goals: "Actually reversing
// domain-entity side effects is out of scope; only the accounting and
// task-state transition are implemented").
package revert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/taskengine/internal/domain/tasks"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrNotCompleted    = errors.New("only completed tasks can be reverted")
	ErrAlreadyAccepted = errors.New("cannot revert an accepted task")
	ErrAlreadyReverted = errors.New("task has already been reverted")
)

// Result mirrors the original's RevertResponse: the task's post-revert
// state plus a naive pluralized tally of what was reverted.
type Result struct {
	TaskID        uuid.UUID
	Status        tasks.Status
	RevertedAt    time.Time
	RevertedCount map[string]int
}

// taskStore is the narrow slice of store.TaskStore that revert accounting
// actually needs. Accepting this instead of the full store.TaskStore
// interface keeps the dependency honest and makes the package trivial to
// test against an in-memory fake.
type taskStore interface {
	GetTaskByID(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
	UpdateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error)
	GetArtifactLogByTask(ctx context.Context, taskID uuid.UUID) ([]*tasks.ArtifactLogEntry, error)
}

// Service performs task reverts against a store.
type Service struct {
	store taskStore
}

func NewService(st taskStore) *Service {
	return &Service{store: st}
}

// Revert validates the task is eligible (completed, not accepted, not
// already reverted), tallies its artifact log by entity type using the
// original's naive "+s" pluralization, and stamps reverted_at.
func (s *Service) Revert(ctx context.Context, taskID uuid.UUID) (*Result, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status != tasks.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if task.AcceptedAt != nil {
		return nil, ErrAlreadyAccepted
	}
	if task.RevertedAt != nil {
		return nil, ErrAlreadyReverted
	}

	entries, err := s.store.GetArtifactLogByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range entries {
		counts[pluralize(e.EntityType)]++
	}

	now := time.Now().UTC()
	task.RevertedAt = &now
	if _, err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}

	return &Result{
		TaskID:        task.ID,
		Status:        task.Status,
		RevertedAt:    now,
		RevertedCount: counts,
	}, nil
}

// Accept validates the task is completed and neither accepted nor
// reverted yet, then stamps accepted_at (§4.4).
func (s *Service) Accept(ctx context.Context, taskID uuid.UUID) (*tasks.Task, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status != tasks.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if task.AcceptedAt != nil {
		return nil, ErrAlreadyAccepted
	}
	if task.RevertedAt != nil {
		return nil, ErrAlreadyReverted
	}

	now := time.Now().UTC()
	task.AcceptedAt = &now
	return s.store.UpdateTask(ctx, task)
}

// pluralize is deliberately the original's naive "+s" rule (§9 "no
// irregular-plural handling"); "policy" becomes "policys", not "policies".
func pluralize(entityType string) string {
	return entityType + "s"
}

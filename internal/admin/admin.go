// Package admin implements the operator-facing task and circuit-breaker
// management operations (§4.5), grounded on
// original_source/apps/backend/src/api/routes/tasks.py's cancel_task and
// retry_task handlers, and on the breaker registry's Status/Reset for the
// circuit inspection surface.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/taskengine/internal/breaker"
	"github.com/contentforge/taskengine/internal/domain/tasks"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrNotCancelable = errors.New("task is not pending or in_progress")
	ErrNotFailed     = errors.New("only failed tasks can be retried")
	ErrUnknownBreaker = errors.New("no such circuit breaker")
)

// taskStore is the narrow slice of store.TaskStore admin operations need:
// lookup, whole-record update, and enqueueing new tasks.
type taskStore interface {
	GetTaskByID(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
	UpdateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error)
	CreateTask(ctx context.Context, t *tasks.Task) (*tasks.Task, error)
}

// Service exposes task lifecycle overrides and circuit-breaker inspection
// to an operator-facing surface (HTTP, CLI, or otherwise).
type Service struct {
	store    taskStore
	breakers *breaker.Registry
}

func NewService(st taskStore, breakers *breaker.Registry) *Service {
	return &Service{store: st, breakers: breakers}
}

// CancelTask moves a pending or in_progress task to cancelled (§4.5).
// Cancelling an in_progress task does not interrupt a handler already
// running; the runner's re-read-before-terminal-write guard (§9) ensures
// the in-flight completion does not silently overwrite this cancellation.
func (s *Service) CancelTask(ctx context.Context, taskID uuid.UUID) (*tasks.Task, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if !tasks.CanTransition(task.Status, tasks.StatusCancelled) {
		return nil, ErrNotCancelable
	}
	task.Status = tasks.StatusCancelled
	return s.store.UpdateTask(ctx, task)
}

// RetryTask resets a failed task back to pending so the runner picks it
// up again on its next poll (§4.5). retry_count and max_retries are left
// untouched: a manually retried task resumes its retry budget where it
// stopped rather than getting a fresh one.
func (s *Service) RetryTask(ctx context.Context, taskID uuid.UUID) (*tasks.Task, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	// Not tasks.CanTransition(task.Status, StatusPending): that edge is
	// shared with the runner's own in_progress->pending CircuitOpen/retry
	// reschedule, but admin retry is only ever legal from failed.
	if task.Status != tasks.StatusFailed {
		return nil, ErrNotFailed
	}

	task.Status = tasks.StatusPending
	task.ErrorMessage = ""
	task.StartedAt = nil
	task.CompletedAt = nil
	task.ProgressCurrent = 0
	task.ProgressTotal = 0
	task.ProgressMessage = ""
	task.DelayedUntil = nil
	return s.store.UpdateTask(ctx, task)
}

// ListBreakers returns a status snapshot of every breaker created so far
// (§4.5, §4.2 Lifecycle: breakers that have never been referenced do not
// appear, since they do not exist yet).
func (s *Service) ListBreakers() []breaker.Status {
	return s.breakers.List()
}

// GetBreaker returns the snapshot of a single named breaker.
func (s *Service) GetBreaker(name string) (breaker.Status, error) {
	b, ok := s.breakers.Lookup(name)
	if !ok {
		return breaker.Status{}, ErrUnknownBreaker
	}
	return b.Status(), nil
}

// ResetBreaker forces a named breaker back to closed (§4.5 "manual
// override for operators"). A name that was never created returns
// ErrUnknownBreaker.
func (s *Service) ResetBreaker(name string) error {
	b, ok := s.breakers.Lookup(name)
	if !ok {
		return ErrUnknownBreaker
	}
	b.Reset()
	return nil
}

// CreateTask enqueues a new task in pending status (§4.5 / §3).
func (s *Service) CreateTask(ctx context.Context, taskType string, payload []byte, userContext string, delayedUntil *time.Time, maxRetries int) (*tasks.Task, error) {
	if maxRetries <= 0 {
		maxRetries = tasks.DefaultMaxRetries
	}
	task := &tasks.Task{
		ID:           uuid.New(),
		TaskType:     taskType,
		Status:       tasks.StatusPending,
		UserContext:  userContext,
		DelayedUntil: delayedUntil,
		MaxRetries:   maxRetries,
		CreatedAt:    time.Now().UTC(),
	}
	if len(payload) > 0 {
		task.Payload = payload
	}
	return s.store.CreateTask(ctx, task)
}

package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/store"
)

// fakeStore is a minimal in-memory store.TaskStore, standing in for
// pgstore in runner tests so the poll loop's sequencing can be exercised
// without a database.
type fakeStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*tasks.Task
	artifacts map[uuid.UUID][]*tasks.ArtifactLogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:     make(map[uuid.UUID]*tasks.Task),
		artifacts: make(map[uuid.UUID][]*tasks.ArtifactLogEntry),
	}
}

func (s *fakeStore) clone(t *tasks.Task) *tasks.Task {
	cp := *t
	return &cp
}

func (s *fakeStore) CreateTask(_ context.Context, t *tasks.Task) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = tasks.StatusPending
	}
	if t.MaxRetries == 0 {
		t.MaxRetries = tasks.DefaultMaxRetries
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tasks[t.ID] = s.clone(t)
	return s.clone(t), nil
}

func (s *fakeStore) GetTaskByID(_ context.Context, id uuid.UUID) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return s.clone(t), nil
}

func (s *fakeStore) ListTasks(_ context.Context, _ store.TaskFilter, _, _ int) ([]*tasks.Task, error) {
	return nil, nil
}

func (s *fakeStore) CountTasks(_ context.Context, _ store.TaskFilter) (int64, error) {
	return 0, nil
}

func (s *fakeStore) UpdateTask(_ context.Context, t *tasks.Task) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = s.clone(t)
	return s.clone(t), nil
}

func (s *fakeStore) DeleteTask(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	delete(s.tasks, id)
	delete(s.artifacts, id)
	return ok, nil
}

func (s *fakeStore) GetNextPendingTask(_ context.Context) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var best *tasks.Task
	for _, t := range s.tasks {
		if !t.IsReady(now) {
			continue
		}
		if best == nil || t.CreatedAt.Before(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	return s.clone(best), nil
}

func (s *fakeStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status tasks.Status, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	t.Status = status
	if errorMessage != nil {
		t.ErrorMessage = *errorMessage
	}
	return nil
}

func (s *fakeStore) UpdateTaskProgress(_ context.Context, id uuid.UUID, current, total int, message *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	t.ProgressCurrent = current
	t.ProgressTotal = total
	if message != nil {
		t.ProgressMessage = *message
	}
	return nil
}

func (s *fakeStore) UpdateTaskHeartbeat(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	t.HeartbeatAt = &now
	return nil
}

func (s *fakeStore) GetStuckTasks(_ context.Context, timeout time.Duration) ([]*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-timeout)
	var out []*tasks.Task
	for _, t := range s.tasks {
		if t.Status != tasks.StatusInProgress {
			continue
		}
		if t.HeartbeatAt != nil && t.HeartbeatAt.Before(cutoff) {
			out = append(out, s.clone(t))
		}
	}
	return out, nil
}

func (s *fakeStore) IncrementRetryCount(_ context.Context, id uuid.UUID, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	t.RetryCount++
	t.Status = tasks.StatusPending
	delayedUntil := time.Now().UTC().Add(delay)
	t.DelayedUntil = &delayedUntil
	t.StartedAt = nil
	return nil
}

func (s *fakeStore) CreateArtifactLogEntry(_ context.Context, e *tasks.ArtifactLogEntry) (*tasks.ArtifactLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.artifacts[e.TaskID] = append(s.artifacts[e.TaskID], e)
	return e, nil
}

func (s *fakeStore) GetArtifactLogByTask(_ context.Context, taskID uuid.UUID) ([]*tasks.ArtifactLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifacts[taskID], nil
}

func (s *fakeStore) DeleteArtifactLogByTask(_ context.Context, taskID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.artifacts[taskID])
	delete(s.artifacts, taskID)
	return int64(n), nil
}

var _ store.TaskStore = (*fakeStore)(nil)

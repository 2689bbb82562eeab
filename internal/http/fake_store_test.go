package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/store"
)

// fakeStore is a minimal in-memory store.TaskStore for exercising the
// HTTP surface without a database.
type fakeStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*tasks.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[uuid.UUID]*tasks.Task{}}
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

func (s *fakeStore) ListTasks(_ context.Context, filter store.TaskFilter, limit, offset int) ([]*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*tasks.Task
	for _, t := range s.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.TaskType != nil && t.TaskType != *filter.TaskType {
			continue
		}
		out = append(out, s.clone(t))
	}
	return out, nil
}

func (s *fakeStore) CountTasks(_ context.Context, filter store.TaskFilter) (int64, error) {
	items, _ := s.ListTasks(context.Background(), filter, 0, 0)
	return int64(len(items)), nil
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
	return ok, nil
}

func (s *fakeStore) GetNextPendingTask(_ context.Context) (*tasks.Task, error) {
	return nil, nil
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
	return nil
}

func (s *fakeStore) UpdateTaskHeartbeat(_ context.Context, id uuid.UUID) error {
	return nil
}

func (s *fakeStore) GetStuckTasks(_ context.Context, timeout time.Duration) ([]*tasks.Task, error) {
	return nil, nil
}

func (s *fakeStore) IncrementRetryCount(_ context.Context, id uuid.UUID, delay time.Duration) error {
	return nil
}

func (s *fakeStore) CreateArtifactLogEntry(_ context.Context, e *tasks.ArtifactLogEntry) (*tasks.ArtifactLogEntry, error) {
	return e, nil
}

func (s *fakeStore) GetArtifactLogByTask(_ context.Context, taskID uuid.UUID) ([]*tasks.ArtifactLogEntry, error) {
	return nil, nil
}

func (s *fakeStore) DeleteArtifactLogByTask(_ context.Context, taskID uuid.UUID) (int64, error) {
	return 0, nil
}

var _ store.TaskStore = (*fakeStore)(nil)

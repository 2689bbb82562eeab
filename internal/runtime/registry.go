// Package runtime defines the handler contract and the process-wide
// handler registry (§4.1), grounded on the teacher's
// internal/jobs/runtime/registry.go: an RWMutex-guarded map, registration
// at process start, fail-fast on misconfiguration.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/contentforge/taskengine/internal/domain/tasks"
)

// Handler is the one operation every task type implements. It is expected
// to call reporter.Progress as it advances and reporter.Artifact for
// every persistent side effect before that side effect is durably
// visible, so revert remains possible even if the worker dies mid-step.
type Handler interface {
	Type() string
	Run(ctx context.Context, task *tasks.Task, reporter Reporter) error
}

// ErrUnknownTaskType is the error the runner records when Get finds no
// handler for a task_type. The runner treats this as a regular failure subject to retry policy
// (useful if the handler was registered late).
type ErrUnknownTaskType struct {
	TaskType string
}

func (e *ErrUnknownTaskType) Error() string {
	return fmt.Sprintf("no handler registered for task type: %s", e.TaskType)
}

// Registry is a concurrency-safe map of task_type -> handler. At most one
// handler may be registered per task_type; registration is expected to
// happen at process startup, after which the registry is read-only.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler, overwriting any previously registered handler
// for the same task_type (§4.1: "re-registering the same key overwrites").
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
	return nil
}

// Get retrieves the handler responsible for task_type.
func (r *Registry) Get(taskType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	return h, ok
}

// Types returns every registered task_type, for diagnostics.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

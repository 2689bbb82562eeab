// Package handlers holds concrete runtime.Handler implementations.
// StubHandler is grounded on
// original_source/apps/backend/src/tasks/handlers/stub_handler.py: it
// simulates work for exercising the runner end to end (progress
// reporting, artifact logging, retry-on-failure) without a real
// downstream dependency.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/runtime"
)

// entityTypeByTaskType mirrors the original's entity_type_map: the kind
// of artifact a given task_type is understood to produce.
var entityTypeByTaskType = map[string]string{
	"generate_clusters":  "cluster",
	"generate_variants":  "variant",
	"regenerate_answers": "answer",
}

type stubPayload struct {
	Count    int     `json:"count"`
	DelayMS  int     `json:"delay_ms"`
	FailRate float64 `json:"fail_rate"`
}

// StubHandler registers for every task_type in entityTypeByTaskType (one
// handler instance per type, each reporting Type() for its own key,
// mirroring the original's multi-decorator registration).
type StubHandler struct {
	taskType string
}

// NewStubHandlers returns one StubHandler per task_type the original
// registers the stub against.
func NewStubHandlers() []runtime.Handler {
	out := make([]runtime.Handler, 0, len(entityTypeByTaskType))
	for taskType := range entityTypeByTaskType {
		out = append(out, &StubHandler{taskType: taskType})
	}
	return out
}

func (h *StubHandler) Type() string { return h.taskType }

func (h *StubHandler) Run(ctx context.Context, task *tasks.Task, reporter runtime.Reporter) error {
	payload := stubPayload{Count: 5, DelayMS: 1000}
	if len(task.Payload) > 0 {
		// Unknown/absent fields keep the defaults above; a malformed
		// payload is not this handler's concern to validate.
		_ = json.Unmarshal(task.Payload, &payload)
	}
	if payload.Count <= 0 {
		payload.Count = 5
	}

	entityType := entityTypeByTaskType[task.TaskType]
	if entityType == "" {
		entityType = "item"
	}

	for i := 0; i < payload.Count; i++ {
		message := fmt.Sprintf("Processing %s %d of %d...", entityType, i+1, payload.Count)
		reporter.Progress(i+1, payload.Count, message)

		if payload.DelayMS > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(payload.DelayMS) * time.Millisecond):
			}
		}

		entityID := fmt.Sprintf("stub-%s-%03d", shortID(task.ID.String()), i)
		if err := reporter.Artifact(entityType, entityID, tasks.ActionCreated, nil); err != nil {
			return err
		}

		if payload.FailRate > 0 && rand.Float64() < payload.FailRate {
			return fmt.Errorf("simulated random failure at item %d/%d", i+1, payload.Count)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Package notify is the side-channel event bus for task lifecycle events
// (progress/failed/completed), adapted from the teacher's
// internal/clients/redis/sse_bus.go SSE forwarder. It is purely advisory:
// publish failures are logged and ignored, exactly like heartbeat errors
// (§7), and nothing in the core depends on a subscriber being present.
package notify

import "github.com/contentforge/taskengine/internal/domain/tasks"

type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventRescheduled EventKind = "rescheduled"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	TaskID   string    `json:"task_id"`
	TaskType string    `json:"task_type"`
	Status   tasks.Status `json:"status"`
	Progress int       `json:"progress,omitempty"`
	Total    int       `json:"total,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// TaskNotifier publishes task lifecycle events to an external bus. All
// methods are best-effort; implementations must not block task execution
// on subscriber availability.
type TaskNotifier interface {
	Publish(e Event)
}

// NoopNotifier is used when no bus is configured.
type NoopNotifier struct{}

func (NoopNotifier) Publish(Event) {}

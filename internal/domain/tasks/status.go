package tasks

// Status is one of the five task lifecycle states (§3).
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further runner transitions apply.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions enumerates the allowed edges of the task status graph
// (§4.3, testable property 1). Admin operations (cancel, retry) are
// included alongside runner transitions since both mutate the same field.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusInProgress: true, // runner: begin execution
		StatusCancelled:  true, // admin: cancel
	},
	StatusInProgress: {
		StatusCompleted: true, // runner: normal completion
		StatusPending:   true, // runner: CircuitOpen reschedule or retry
		StatusFailed:    true, // runner: retries exhausted
		StatusCancelled: true, // admin: cancel while running
	},
	StatusFailed: {
		StatusPending: true, // admin: retry
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal edge in the status
// graph. Used by the admin surface to guard cancellation and by tests
// asserting testable property 1.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

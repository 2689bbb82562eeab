package runner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/contentforge/taskengine/internal/breaker"
	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/notify"
	"github.com/contentforge/taskengine/internal/platform/logger"
	"github.com/contentforge/taskengine/internal/runtime"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.HeartbeatTimeout = 20 * time.Millisecond
	return cfg
}

type scriptedHandler struct {
	taskType string
	run      func(ctx context.Context, task *tasks.Task, reporter runtime.Reporter) error
}

func (h *scriptedHandler) Type() string { return h.taskType }
func (h *scriptedHandler) Run(ctx context.Context, task *tasks.Task, reporter runtime.Reporter) error {
	return h.run(ctx, task, reporter)
}

func newTestRunner(t *testing.T, st *fakeStore, reg *runtime.Registry) *Runner {
	t.Helper()
	return New(testConfig(), st, reg, breaker.NewRegistry(), notify.NoopNotifier{}, testLogger(t))
}

func TestExecuteHappyPathCompletesTask(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	reg := runtime.NewRegistry()
	_ = reg.Register(&scriptedHandler{
		taskType: "generate_clusters",
		run: func(_ context.Context, _ *tasks.Task, reporter runtime.Reporter) error {
			reporter.Progress(1, 1, "done")
			return reporter.Artifact("cluster", "c1", tasks.ActionCreated, nil)
		},
	})
	task, err := st.CreateTask(ctx, &tasks.Task{TaskType: "generate_clusters"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	r := newTestRunner(t, st, reg)
	r.pollOnce(ctx)

	got, _ := st.GetTaskByID(ctx, task.ID)
	if got.Status != tasks.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	entries, _ := st.GetArtifactLogByTask(ctx, task.ID)
	if len(entries) != 1 || entries[0].EntityID != "c1" {
		t.Fatalf("expected one artifact log entry, got %v", entries)
	}
}

func TestExecuteRetriesOnErrorUntilBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	reg := runtime.NewRegistry()
	_ = reg.Register(&scriptedHandler{
		taskType: "generate_variants",
		run: func(_ context.Context, _ *tasks.Task, _ runtime.Reporter) error {
			return fmt.Errorf("handler exploded")
		},
	})
	task, err := st.CreateTask(ctx, &tasks.Task{TaskType: "generate_variants", MaxRetries: 1})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	r := newTestRunner(t, st, reg)

	// First attempt: retries remain, task goes back to pending.
	r.pollOnce(ctx)
	got, _ := st.GetTaskByID(ctx, task.ID)
	if got.Status != tasks.StatusPending {
		t.Fatalf("expected pending after first failure (retry available), got %s", got.Status)
	}
	if got.RetryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", got.RetryCount)
	}

	// Force the delayed_until gate open so the retried attempt is
	// immediately ready, then run the final exhausting attempt.
	got.DelayedUntil = nil
	st.tasks[got.ID] = got
	r.pollOnce(ctx)

	final, _ := st.GetTaskByID(ctx, task.ID)
	if final.Status != tasks.StatusFailed {
		t.Fatalf("expected failed once retries are exhausted, got %s", final.Status)
	}
	if final.RetryCount != final.MaxRetries {
		t.Fatalf("expected retry_count == max_retries (%d) on permanent failure, got %d", final.MaxRetries, final.RetryCount)
	}
	if final.ErrorMessage == "" {
		t.Fatalf("expected error_message to be recorded")
	}
}

func TestExecuteCircuitOpenAlwaysReschedulesRegardlessOfBudget(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	reg := runtime.NewRegistry()
	_ = reg.Register(&scriptedHandler{
		taskType: "regenerate_answers",
		run: func(_ context.Context, _ *tasks.Task, _ runtime.Reporter) error {
			return &breaker.ErrCircuitOpen{Name: "downstream", RetryAfter: 0.001}
		},
	})
	task, err := st.CreateTask(ctx, &tasks.Task{TaskType: "regenerate_answers", MaxRetries: 2, RetryCount: 2})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	r := newTestRunner(t, st, reg)
	r.pollOnce(ctx)

	got, _ := st.GetTaskByID(ctx, task.ID)
	if got.Status != tasks.StatusPending {
		t.Fatalf("expected pending after circuit-open error even with no retry budget, got %s", got.Status)
	}
	if got.RetryCount != 2 {
		t.Fatalf("expected retry_count unchanged by a circuit-open reschedule, got %d", got.RetryCount)
	}
	if got.StartedAt != nil {
		t.Fatalf("expected started_at cleared on reschedule")
	}
}

func TestReapOnceReschedulesStuckTasks(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	reg := runtime.NewRegistry()
	r := newTestRunner(t, st, reg)

	stale := time.Now().UTC().Add(-time.Hour)
	task, err := st.CreateTask(ctx, &tasks.Task{TaskType: "generate_clusters", Status: tasks.StatusInProgress, HeartbeatAt: &stale, MaxRetries: 3})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	r.reapOnce(ctx)

	got, _ := st.GetTaskByID(ctx, task.ID)
	if got.Status != tasks.StatusPending {
		t.Fatalf("expected stuck task rescheduled to pending, got %s", got.Status)
	}
	if got.RetryCount != 1 {
		t.Fatalf("expected retry_count incremented by reaping, got %d", got.RetryCount)
	}
}

func TestSettleSuccessSkipsAlreadyCancelledTask(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	reg := runtime.NewRegistry()
	r := newTestRunner(t, st, reg)

	task, err := st.CreateTask(ctx, &tasks.Task{TaskType: "generate_clusters", Status: tasks.StatusInProgress})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// Simulate an admin cancellation landing while the handler is
	// "still running" from the runner's point of view.
	cancelled, _ := st.GetTaskByID(ctx, task.ID)
	cancelled.Status = tasks.StatusCancelled
	st.tasks[cancelled.ID] = cancelled

	log := testLogger(t)
	r.settleSuccess(ctx, log, task)

	got, _ := st.GetTaskByID(ctx, task.ID)
	if got.Status != tasks.StatusCancelled {
		t.Fatalf("expected cancellation to survive a racing completion write, got %s", got.Status)
	}
}

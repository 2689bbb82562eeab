// Package runner is the task execution engine (§4.3): a single poll loop
// that dequeues one ready task at a time, dispatches it to the handler
// registered for its task_type, and tracks retries, heartbeats, and
// stuck-task reclamation. It is grounded on the teacher's
// internal/jobs/worker/worker.go (ticker loop, heartbeat goroutine with a
// stop channel, panic recovery) and on
// original_source/apps/backend/src/tasks/runner.py for exact sequencing
// and constants.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/contentforge/taskengine/internal/breaker"
	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/notify"
	"github.com/contentforge/taskengine/internal/platform/logger"
	"github.com/contentforge/taskengine/internal/platform/tracing"
	"github.com/contentforge/taskengine/internal/runtime"
	"github.com/contentforge/taskengine/internal/store"
)

// Runner is the single-worker-per-store execution engine (§4.3, §9: "a
// second Runner instance against the same store is out of scope"). It
// holds no business logic of its own; every task-type-specific behavior
// lives in a registered runtime.Handler.
type Runner struct {
	cfg      Config
	store    store.TaskStore
	registry *runtime.Registry
	breakers *breaker.Registry
	notify   notify.TaskNotifier
	log      *logger.Logger

	wg   sync.WaitGroup
	stop chan struct{}
}

func New(cfg Config, st store.TaskStore, reg *runtime.Registry, breakers *breaker.Registry, notifier notify.TaskNotifier, baseLog *logger.Logger) *Runner {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Runner{
		cfg:      cfg,
		store:    st,
		registry: reg,
		breakers: breakers,
		notify:   notifier,
		log:      baseLog.With("component", "Runner"),
		stop:     make(chan struct{}),
	}
}

// Start launches the poll loop and the stuck-task reaper as independent
// goroutines. It returns immediately; call Stop to shut both down.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.pollLoop(ctx)
	go r.reaperLoop(ctx)
}

// Stop signals both loops to exit and waits up to the configured bounds
// for them to do so (§5 "graceful shutdown: stop accepting new tasks,
// let the in-flight task finish or time out").
func (r *Runner) Stop() {
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	timeout := r.cfg.PollStopTimeout
	if r.cfg.ReaperStopTimeout > timeout {
		timeout = r.cfg.ReaperStopTimeout
	}
	select {
	case <-done:
	case <-time.After(timeout):
		r.log.Warn("runner stop timed out waiting for loops to exit")
	}
}

func (r *Runner) pollLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

// pollOnce dequeues at most one ready task and executes it to completion
// (or to its next retry/cancellation outcome) before returning (§4.3 step
// 1: "the oldest ready task, one at a time").
func (r *Runner) pollOnce(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "runner.poll")
	defer span.End()

	task, err := r.store.GetNextPendingTask(ctx)
	if err != nil {
		r.log.Warn("failed to fetch next pending task", "error", err)
		return
	}
	if task == nil {
		return
	}
	r.execute(ctx, task)
}

// execute runs the full lifecycle of one dequeued task: claim (pending ->
// in_progress), heartbeat while running, dispatch to its handler, then
// settle the outcome (§4.3 steps 2-5).
func (r *Runner) execute(ctx context.Context, task *tasks.Task) {
	ctx, span := tracing.StartSpan(ctx, "runner.execute",
		attribute.String("task.id", task.ID.String()),
		attribute.String("task.type", task.TaskType),
	)
	defer span.End()

	log := r.log.With("task_id", task.ID, "task_type", task.TaskType)

	now := time.Now().UTC()
	task.Status = tasks.StatusInProgress
	task.StartedAt = &now
	task.HeartbeatAt = &now
	if _, err := r.store.UpdateTask(ctx, task); err != nil {
		log.Warn("failed to claim task", "error", err)
		return
	}

	stopHB := r.startHeartbeat(ctx, task.ID)
	defer stopHB()

	handler, ok := r.registry.Get(task.TaskType)
	if !ok {
		r.settleError(ctx, log, task, &runtime.ErrUnknownTaskType{TaskType: task.TaskType})
		return
	}

	runErr := r.runHandler(ctx, handler, task, log)
	if runErr == nil {
		r.settleSuccess(ctx, log, task)
		return
	}
	r.settleError(ctx, log, task, runErr)
}

// runHandler invokes the handler's breaker-guarded circuit (§4.2: the
// handler itself acquires/releases any breaker it needs around its own
// external calls) and recovers from panics so one bad handler never takes
// down the poll loop (grounded on the teacher's panic-to-failure pattern).
func (r *Runner) runHandler(ctx context.Context, handler runtime.Handler, task *tasks.Task, log *logger.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("handler panic", "panic", rec)
			err = fmt.Errorf("panic in handler %s: %v", task.TaskType, rec)
		}
	}()

	rep := &taskReporter{
		ctx:      ctx,
		store:    r.store,
		notify:   r.notify,
		log:      r.log,
		taskID:   task.ID,
		taskType: task.TaskType,
	}
	return handler.Run(ctx, task, rep)
}

// settleSuccess marks the task completed, re-reading current state first
// so an admin cancellation that landed while the handler was running is
// never clobbered by a stale completion write (§4.3 testable property 3,
// §9 "the runner re-reads task state before writing a terminal status").
func (r *Runner) settleSuccess(ctx context.Context, log *logger.Logger, task *tasks.Task) {
	current, err := r.store.GetTaskByID(ctx, task.ID)
	if err != nil {
		log.Warn("failed to re-read task before completion", "error", err)
		return
	}
	if current == nil || current.Status.IsTerminal() {
		log.Info("task already in a terminal state, skipping completion write", "status", statusOf(current))
		return
	}

	now := time.Now().UTC()
	current.Status = tasks.StatusCompleted
	current.CompletedAt = &now
	current.ErrorMessage = ""
	if _, err := r.store.UpdateTask(ctx, current); err != nil {
		log.Warn("failed to persist task completion", "error", err)
		return
	}
	r.notify.Publish(notify.Event{
		Kind:     notify.EventCompleted,
		TaskID:   current.ID.String(),
		TaskType: current.TaskType,
		Status:   tasks.StatusCompleted,
	})
}

// settleError applies the retry policy (§4.3 step 5): a *breaker.ErrCircuitOpen
// always reschedules regardless of retry budget (the dependency, not the
// task, is at fault), otherwise the task retries with exponential backoff
// until max_retries is exhausted, at which point it fails permanently.
func (r *Runner) settleError(ctx context.Context, log *logger.Logger, task *tasks.Task, runErr error) {
	current, err := r.store.GetTaskByID(ctx, task.ID)
	if err != nil {
		log.Warn("failed to re-read task before failure handling", "error", err)
		return
	}
	if current == nil || current.Status.IsTerminal() {
		log.Info("task already in a terminal state, skipping failure write")
		return
	}

	if co, isOpen := breaker.IsCircuitOpen(runErr); isOpen {
		log.Warn("circuit open, rescheduling task", "breaker", co.Name, "retry_after", co.RetryAfter)
		delay := time.Duration(co.RetryAfter * float64(time.Second))
		if delay <= 0 {
			delay = 60 * time.Second
		}
		// A whole-record update, not IncrementRetryCount: the dependency,
		// not the task, is at fault, so retry_count must stay untouched
		// (§4.3 step 6, §8 testable property 7).
		delayedUntil := time.Now().UTC().Add(delay)
		current.Status = tasks.StatusPending
		current.DelayedUntil = &delayedUntil
		current.StartedAt = nil
		if _, err := r.store.UpdateTask(ctx, current); err != nil {
			log.Warn("failed to reschedule task after circuit open", "error", err)
			return
		}
		r.notify.Publish(notify.Event{
			Kind: notify.EventRescheduled, TaskID: current.ID.String(), TaskType: current.TaskType,
			Status: tasks.StatusPending, Message: runErr.Error(),
		})
		return
	}

	log.Warn("task handler returned an error", "error", runErr, "retry_count", current.RetryCount, "max_retries", current.MaxRetries)

	if current.RetryCount < current.MaxRetries {
		delay := r.cfg.retryDelay(current.RetryCount + 1)
		if err := r.store.IncrementRetryCount(ctx, current.ID, delay); err != nil {
			log.Warn("failed to reschedule task for retry", "error", err)
			return
		}
		r.notify.Publish(notify.Event{
			Kind: notify.EventRescheduled, TaskID: current.ID.String(), TaskType: current.TaskType,
			Status: tasks.StatusPending, Message: runErr.Error(),
		})
		return
	}

	// Retries exhausted: fail permanently. Unlike the narrower
	// UpdateTaskStatus call, this writes retry_count alongside the
	// terminal status in the same call so the final attempt's increment
	// is never lost (§8 seed scenario 3 requires retry_count ==
	// max_retries once a task has exhausted its budget).
	now := time.Now().UTC()
	current.Status = tasks.StatusFailed
	current.ErrorMessage = runErr.Error()
	current.CompletedAt = &now
	current.RetryCount = current.MaxRetries
	if _, err := r.store.UpdateTask(ctx, current); err != nil {
		log.Warn("failed to persist permanent task failure", "error", err)
		return
	}
	r.notify.Publish(notify.Event{
		Kind: notify.EventFailed, TaskID: current.ID.String(), TaskType: current.TaskType,
		Status: tasks.StatusFailed, Message: runErr.Error(),
	})
}

// startHeartbeat periodically touches heartbeat_at while a handler runs,
// so the reaper does not mistake a healthy long-running task for a stuck
// one. It mirrors the teacher's startHeartbeat: a stop channel the caller
// closes via the returned func.
func (r *Runner) startHeartbeat(ctx context.Context, taskID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(r.cfg.HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if err := r.store.UpdateTaskHeartbeat(ctx, taskID); err != nil {
					// Heartbeat failures are logged and swallowed (§7); a
					// transient DB blip must not abort an otherwise
					// healthy task execution.
					r.log.Warn("failed to persist heartbeat", "task_id", taskID, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

func (r *Runner) reaperLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.reapOnce(ctx)
		}
	}
}

// reapOnce finds in_progress tasks whose heartbeat has gone silent past
// HeartbeatTimeout and treats the silence as a worker crash: the task is
// routed through the same retry policy as a handler error (§4.3 step 6,
// "Stuck-task reaping").
func (r *Runner) reapOnce(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "runner.reap")
	defer span.End()

	stuck, err := r.store.GetStuckTasks(ctx, r.cfg.HeartbeatTimeout)
	if err != nil {
		r.log.Warn("failed to list stuck tasks", "error", err)
		return
	}
	for _, task := range stuck {
		log := r.log.With("task_id", task.ID, "task_type", task.TaskType)
		log.Warn("reaping stuck task", "heartbeat_at", task.HeartbeatAt)
		r.settleError(ctx, log, task, errors.New("Task timed out (no heartbeat)"))
	}
}

func statusOf(t *tasks.Task) tasks.Status {
	if t == nil {
		return ""
	}
	return t.Status
}

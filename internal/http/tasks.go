package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/contentforge/taskengine/internal/admin"
	"github.com/contentforge/taskengine/internal/domain/tasks"
	"github.com/contentforge/taskengine/internal/revert"
	"github.com/contentforge/taskengine/internal/store"
)

// TaskHandler serves the §6.2 task CRUD + lifecycle-override surface.
type TaskHandler struct {
	store  store.TaskStore
	admin  *admin.Service
	revert *revert.Service
}

func NewTaskHandler(st store.TaskStore, adminSvc *admin.Service, revertSvc *revert.Service) *TaskHandler {
	return &TaskHandler{store: st, admin: adminSvc, revert: revertSvc}
}

type createTaskRequest struct {
	TaskType     string          `json:"task_type" binding:"required"`
	Payload      gin.H           `json:"payload"`
	UserContext  string          `json:"user_context"`
	DelayedUntil *time.Time      `json:"delayed_until"`
	MaxRetries   int             `json:"max_retries"`
}

// POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var payloadBytes []byte
	if req.Payload != nil {
		raw, err := ginHToJSON(req.Payload)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_payload", err)
			return
		}
		payloadBytes = raw
	}

	task, err := h.admin.CreateTask(c.Request.Context(), req.TaskType, payloadBytes, req.UserContext, req.DelayedUntil, req.MaxRetries)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GET /tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := store.TaskFilter{}
	if status := c.Query("status"); status != "" {
		s := tasks.Status(status)
		filter.Status = &s
	}
	if taskType := c.Query("task_type"); taskType != "" {
		filter.TaskType = &taskType
	}
	limit := queryInt(c, "limit", 100)
	offset := queryInt(c, "offset", 0)

	items, err := h.store.ListTasks(c.Request.Context(), filter, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	total, err := h.store.CountTasks(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "count_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": items, "total": total})
}

// GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	task, err := h.store.GetTaskByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if task == nil {
		RespondError(c, http.StatusNotFound, "task_not_found", errors.New("task not found"))
		return
	}
	RespondOK(c, task)
}

// POST /tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	task, err := h.admin.CancelTask(c.Request.Context(), id)
	if err != nil {
		respondAdminErr(c, err)
		return
	}
	RespondOK(c, task)
}

// POST /tasks/:id/retry
func (h *TaskHandler) RetryTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	task, err := h.admin.RetryTask(c.Request.Context(), id)
	if err != nil {
		respondAdminErr(c, err)
		return
	}
	RespondOK(c, task)
}

// POST /tasks/:id/accept
func (h *TaskHandler) AcceptTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	task, err := h.revert.Accept(c.Request.Context(), id)
	if err != nil {
		respondRevertErr(c, err)
		return
	}
	RespondOK(c, task)
}

// POST /tasks/:id/revert
func (h *TaskHandler) RevertTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	result, err := h.revert.Revert(c.Request.Context(), id)
	if err != nil {
		respondRevertErr(c, err)
		return
	}
	RespondOK(c, gin.H{
		"id":             result.TaskID,
		"status":         result.Status,
		"reverted_at":    result.RevertedAt,
		"reverted_count": result.RevertedCount,
	})
}

func parseTaskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func respondAdminErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admin.ErrTaskNotFound):
		RespondError(c, http.StatusNotFound, "task_not_found", err)
	case errors.Is(err, admin.ErrNotCancelable), errors.Is(err, admin.ErrNotFailed):
		RespondError(c, http.StatusBadRequest, "invalid_state", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}

func respondRevertErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, revert.ErrTaskNotFound):
		RespondError(c, http.StatusNotFound, "task_not_found", err)
	case errors.Is(err, revert.ErrNotCompleted), errors.Is(err, revert.ErrAlreadyAccepted), errors.Is(err, revert.ErrAlreadyReverted):
		RespondError(c, http.StatusBadRequest, "invalid_state", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

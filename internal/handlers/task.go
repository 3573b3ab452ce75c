package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eproba/eproba-api/internal/dto"
	apierrors "github.com/eproba/eproba-api/internal/errors"
	"github.com/eproba/eproba-api/internal/middleware"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/services"
	"github.com/gin-gonic/gin"
)

// TaskHandler coordinates task transition HTTP handlers. The worksheet
// access middleware has already loaded and authorized the parent
// worksheet when these run.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

type taskContext struct {
	user        *models.User
	worksheetID uint64
	taskID      uint64
}

func (h *TaskHandler) taskContext(c *gin.Context) (*taskContext, bool) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, false
	}
	ws, ok := middleware.GetWorksheet(c)
	if !ok {
		apierrors.NotFound(c, "worksheet not found")
		return nil, false
	}
	taskID, err := strconv.ParseUint(c.Param("taskId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid task ID")
		return nil, false
	}
	return &taskContext{user: user, worksheetID: ws.ID, taskID: taskID}, true
}

// SubmitTask sends a task to an approver for review
func (h *TaskHandler) SubmitTask(c *gin.Context) {
	type SubmitRequest struct {
		ApproverID uint64 `json:"approver_id"`
	}

	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ApproverID == 0 {
		apierrors.MissingField(c, "approver_id")
		return
	}

	task, err := h.taskService.Submit(ctx.user, ctx.worksheetID, ctx.taskID, req.ApproverID)
	h.respond(c, task, err)
}

// UnsubmitTask withdraws a pending task
func (h *TaskHandler) UnsubmitTask(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.Unsubmit(ctx.user, ctx.worksheetID, ctx.taskID)
	h.respond(c, task, err)
}

// AcceptTask approves a pending task
func (h *TaskHandler) AcceptTask(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.Accept(ctx.user, ctx.worksheetID, ctx.taskID)
	h.respond(c, task, err)
}

// RejectTask declines a pending task
func (h *TaskHandler) RejectTask(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.Reject(ctx.user, ctx.worksheetID, ctx.taskID)
	h.respond(c, task, err)
}

// ClearTaskStatus resets a task to todo
func (h *TaskHandler) ClearTaskStatus(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.ClearStatus(ctx.user, ctx.worksheetID, ctx.taskID)
	h.respond(c, task, err)
}

// ForceAcceptTask approves a task regardless of state
func (h *TaskHandler) ForceAcceptTask(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.ForceAccept(ctx.user, ctx.worksheetID, ctx.taskID)
	h.respond(c, task, err)
}

// ForceRejectTask declines a task regardless of state
func (h *TaskHandler) ForceRejectTask(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.ForceReject(ctx.user, ctx.worksheetID, ctx.taskID)
	h.respond(c, task, err)
}

// ListApprovers returns the users eligible to review a task
func (h *TaskHandler) ListApprovers(c *gin.Context) {
	ctx, ok := h.taskContext(c)
	if !ok {
		return
	}

	candidates, err := h.taskService.ApproverCandidates(ctx.worksheetID, ctx.taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	items := make([]dto.UserSummaryDTO, len(candidates))
	for i, candidate := range candidates {
		items[i] = dto.ToUserSummaryDTO(candidate)
	}
	c.JSON(http.StatusOK, gin.H{"approvers": items})
}

func (h *TaskHandler) respond(c *gin.Context, task *models.Task, err error) {
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrApproverRequired):
		apierrors.MissingField(c, "approver_id")
	case errors.Is(err, services.ErrInvalidApprover):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotWorksheetOwner),
		errors.Is(err, services.ErrTaskPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrWorksheetNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskStateConflict):
		apierrors.Conflict(c, err.Error(), nil)
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

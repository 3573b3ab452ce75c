package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eproba/eproba-api/internal/dto"
	apierrors "github.com/eproba/eproba-api/internal/errors"
	"github.com/eproba/eproba-api/internal/middleware"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/services"
	"github.com/gin-gonic/gin"
)

// WorksheetHandler coordinates worksheet HTTP handlers.
type WorksheetHandler struct {
	worksheetService *services.WorksheetService
	aiService        *services.AIService
	engine           *permissions.Engine
}

// NewWorksheetHandler creates a new WorksheetHandler.
func NewWorksheetHandler(worksheetService *services.WorksheetService, aiService *services.AIService, engine *permissions.Engine) *WorksheetHandler {
	return &WorksheetHandler{
		worksheetService: worksheetService,
		aiService:        aiService,
		engine:           engine,
	}
}

// TaskRequest is one task row in a worksheet payload
type TaskRequest struct {
	Title       string `json:"title" binding:"required,max=250"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"omitempty,oneof=general individual"`
	Order       int    `json:"order"`
}

func toTaskInputs(rows []TaskRequest) []services.TaskInput {
	inputs := make([]services.TaskInput, len(rows))
	for i, row := range rows {
		inputs[i] = services.TaskInput{
			Title:       row.Title,
			Description: row.Description,
			Category:    models.TaskCategory(row.Category),
			Order:       row.Order,
		}
	}
	return inputs
}

// ListWorksheets returns worksheets for the requested scope
func (h *WorksheetHandler) ListWorksheets(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	scope := services.WorksheetListScope(c.DefaultQuery("scope", string(services.ScopeMine)))
	sheets, err := h.worksheetService.List(user, scope)
	if err != nil {
		respondWorksheetError(c, err)
		return
	}

	items := make([]dto.WorksheetDTO, len(sheets))
	for i := range sheets {
		items[i] = dto.ToWorksheetDTO(sheets[i], h.worksheetOptions(user, &sheets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"worksheets": items})
}

// CreateWorksheet creates a worksheet, optionally for another user
func (h *WorksheetHandler) CreateWorksheet(c *gin.Context) {
	type CreateRequest struct {
		Name                      string        `json:"name" binding:"required,max=200"`
		Description               string        `json:"description"`
		ForUserID                 *uint64       `json:"for_user_id"`
		SupervisorID              *uint64       `json:"supervisor_id"`
		FinalChallenge            string        `json:"final_challenge"`
		FinalChallengeDescription string        `json:"final_challenge_description"`
		Tasks                     []TaskRequest `json:"tasks" binding:"dive"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws, err := h.worksheetService.Create(user, services.CreateWorksheetInput{
		Name:                      req.Name,
		Description:               req.Description,
		ForUserID:                 req.ForUserID,
		SupervisorID:              req.SupervisorID,
		FinalChallenge:            req.FinalChallenge,
		FinalChallengeDescription: req.FinalChallengeDescription,
		Tasks:                     toTaskInputs(req.Tasks),
	})
	if err != nil {
		respondWorksheetError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorksheetDTO(*ws, h.worksheetOptions(user, ws)))
}

// GetWorksheet returns the worksheet loaded by the access middleware
func (h *WorksheetHandler) GetWorksheet(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)
	ws, ok := middleware.GetWorksheet(c)
	if !ok {
		apierrors.NotFound(c, "worksheet not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToWorksheetDTO(*ws, h.worksheetOptions(user, ws)))
}

// UpdateWorksheet edits attributes and reconciles the task list
func (h *WorksheetHandler) UpdateWorksheet(c *gin.Context) {
	type UpdateRequest struct {
		Name                      *string       `json:"name"`
		Description               *string       `json:"description"`
		SupervisorID              *uint64       `json:"supervisor_id"`
		ClearSupervisor           bool          `json:"clear_supervisor"`
		FinalChallenge            *string       `json:"final_challenge"`
		FinalChallengeDescription *string       `json:"final_challenge_description"`
		Notes                     *string       `json:"notes"`
		Tasks                     []TaskRequest `json:"tasks" binding:"omitempty,dive"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	ws, ok := middleware.GetWorksheet(c)
	if !ok {
		apierrors.NotFound(c, "worksheet not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.worksheetService.Update(user, ws.ID, services.UpdateWorksheetInput{
		Name:                      req.Name,
		Description:               req.Description,
		SupervisorID:              req.SupervisorID,
		ClearSupervisor:           req.ClearSupervisor,
		FinalChallenge:            req.FinalChallenge,
		FinalChallengeDescription: req.FinalChallengeDescription,
		Notes:                     req.Notes,
		Tasks:                     toTaskInputs(req.Tasks),
		ReplaceTasks:              req.Tasks != nil,
	})
	if err != nil {
		respondWorksheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorksheetDTO(*updated, h.worksheetOptions(user, updated)))
}

// DeleteWorksheet soft-deletes a worksheet
func (h *WorksheetHandler) DeleteWorksheet(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	ws, ok := middleware.GetWorksheet(c)
	if !ok {
		apierrors.NotFound(c, "worksheet not found")
		return
	}

	if err := h.worksheetService.SoftDelete(user, ws.ID); err != nil {
		respondWorksheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Worksheet deleted"})
}

// ArchiveWorksheet moves a worksheet into the archive
func (h *WorksheetHandler) ArchiveWorksheet(c *gin.Context) {
	h.setArchived(c, true)
}

// UnarchiveWorksheet restores a worksheet from the archive
func (h *WorksheetHandler) UnarchiveWorksheet(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *WorksheetHandler) setArchived(c *gin.Context, archived bool) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	ws, ok := middleware.GetWorksheet(c)
	if !ok {
		apierrors.NotFound(c, "worksheet not found")
		return
	}

	updated, err := h.worksheetService.SetArchived(user, ws.ID, archived)
	if err != nil {
		respondWorksheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorksheetDTO(*updated, h.worksheetOptions(user, updated)))
}

// GetSharedWorksheet resolves a public share link without
// authentication. Notes and the share token itself stay hidden.
func (h *WorksheetHandler) GetSharedWorksheet(c *gin.Context) {
	token := c.Param("token")
	ws, err := h.worksheetService.GetByShareToken(token)
	if err != nil {
		respondWorksheetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorksheetDTO(*ws, dto.WorksheetOptions{}))
}

// InstantiateFromTemplate creates a worksheet from a template
func (h *WorksheetHandler) InstantiateFromTemplate(c *gin.Context) {
	type InstantiateRequest struct {
		TemplateID      uint64   `json:"template_id" binding:"required"`
		Name            string   `json:"name"`
		ForUserID       *uint64  `json:"for_user_id"`
		SupervisorID    *uint64  `json:"supervisor_id"`
		SelectedTaskIDs []uint64 `json:"selected_task_ids"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req InstantiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws, err := h.worksheetService.InstantiateFromTemplate(user, services.InstantiateInput{
		TemplateID:      req.TemplateID,
		Name:            req.Name,
		ForUserID:       req.ForUserID,
		SupervisorID:    req.SupervisorID,
		SelectedTaskIDs: req.SelectedTaskIDs,
	})
	if err != nil {
		respondWorksheetError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorksheetDTO(*ws, h.worksheetOptions(user, ws)))
}

// GenerateTasks drafts a task list for a goal description
func (h *WorksheetHandler) GenerateTasks(c *gin.Context) {
	type GenerateRequest struct {
		Goal string `json:"goal" binding:"required"`
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.MissingField(c, "goal")
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		apierrors.MissingField(c, "goal")
		return
	}

	drafted, err := h.aiService.DraftWorksheetTasks(c.Request.Context(), req.Goal)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAIServiceNotConfigured):
			apierrors.ServiceUnavailable(c, "Task drafting is not available")
		case errors.Is(err, services.ErrAINoTasksGenerated):
			apierrors.BadRequest(c, err.Error())
		default:
			apierrors.InternalError(c, "Failed to draft tasks")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": drafted})
}

func (h *WorksheetHandler) worksheetOptions(user *models.User, ws *models.Worksheet) dto.WorksheetOptions {
	if user == nil {
		return dto.WorksheetOptions{}
	}
	return dto.WorksheetOptions{
		IncludeNotes:      permissions.CanReadWorksheetNotes(user, ws),
		IncludeShareToken: permissions.IsWorksheetOwner(user, ws) || h.engine.CanManageWorksheet(user, ws),
	}
}

func respondWorksheetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWorksheetNameRequired):
		apierrors.MissingField(c, "name")
	case errors.Is(err, services.ErrUnknownListScope):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDelegationDenied),
		errors.Is(err, services.ErrWorksheetPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrWorksheetNotFound),
		errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrTargetUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskSelectionInvalid):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

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

// TemplateHandler coordinates worksheet template HTTP handlers.
type TemplateHandler struct {
	templateService *services.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
	}
}

// ListTemplates returns the templates visible to the actor
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	templates, err := h.templateService.List(user)
	if err != nil {
		respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": dto.ToTemplateListResponse(templates)})
}

// GetTemplate returns one template with groups and tasks
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	templateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid template ID")
		return
	}

	tpl, err := h.templateService.Get(user, templateID)
	if err != nil {
		respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTemplateDTO(*tpl))
}

// CreateTemplate stores a new template for the actor's team
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	type GroupRequest struct {
		Name        string `json:"name" binding:"required,max=120"`
		Description string `json:"description"`
		MinTasks    *int   `json:"min_tasks"`
		MaxTasks    *int   `json:"max_tasks"`
	}
	type TemplateTaskRequest struct {
		Title         string `json:"title" binding:"required,max=250"`
		Description   string `json:"description"`
		TemplateNotes string `json:"template_notes"`
		Category      string `json:"category" binding:"omitempty,oneof=general individual"`
		Order         int    `json:"order"`
		GroupIndex    *int   `json:"group_index"`
	}
	type CreateRequest struct {
		Name        string                `json:"name" binding:"required,max=200"`
		Description string                `json:"description"`
		Notes       string                `json:"notes"`
		Priority    int                   `json:"priority"`
		TeamOnly    bool                  `json:"team_only"`
		Groups      []GroupRequest        `json:"groups" binding:"dive"`
		Tasks       []TemplateTaskRequest `json:"tasks" binding:"dive"`
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

	input := services.SaveTemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Notes:       req.Notes,
		Priority:    req.Priority,
		TeamOnly:    req.TeamOnly,
	}
	for _, g := range req.Groups {
		input.Groups = append(input.Groups, services.TemplateGroupInput{
			Name:        g.Name,
			Description: g.Description,
			MinTasks:    g.MinTasks,
			MaxTasks:    g.MaxTasks,
		})
	}
	for _, t := range req.Tasks {
		input.Tasks = append(input.Tasks, services.TemplateTaskInput{
			Title:         t.Title,
			Description:   t.Description,
			TemplateNotes: t.TemplateNotes,
			Category:      models.TaskCategory(t.Category),
			Order:         t.Order,
			GroupIndex:    t.GroupIndex,
		})
	}

	tpl, err := h.templateService.Create(user, input)
	if err != nil {
		respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTemplateDTO(*tpl))
}

// UpdateTemplate changes template attributes
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	type UpdateRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Notes       *string `json:"notes"`
		Priority    *int    `json:"priority"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	templateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid template ID")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tpl, err := h.templateService.Update(user, templateID, services.UpdateTemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Notes:       req.Notes,
		Priority:    req.Priority,
	})
	if err != nil {
		respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTemplateDTO(*tpl))
}

// DeleteTemplate removes a template
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	templateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid template ID")
		return
	}

	if err := h.templateService.Delete(user, templateID); err != nil {
		respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}

func respondTemplateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTemplateNameRequired):
		apierrors.MissingField(c, "name")
	case errors.Is(err, services.ErrTemplateGroupInvalid):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTemplatePermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTemplateNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

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

// TeamHandler coordinates team and patrol HTTP handlers.
type TeamHandler struct {
	teamService  *services.TeamService
	statsService *services.StatsService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *services.TeamService, statsService *services.StatsService) *TeamHandler {
	return &TeamHandler{
		teamService:  teamService,
		statsService: statsService,
	}
}

func teamRequest(c *gin.Context) (*models.User, uint64, bool) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, 0, false
	}
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid team ID")
		return nil, 0, false
	}
	return user, teamID, true
}

// GetTeam returns the actor's team with district and patrols
func (h *TeamHandler) GetTeam(c *gin.Context) {
	user, teamID, ok := teamRequest(c)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(user, teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team))
}

// UpdateTeam edits team attributes
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	type UpdateRequest struct {
		Name      *string `json:"name"`
		ShortName *string `json:"short_name"`
	}

	user, teamID, ok := teamRequest(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	team, err := h.teamService.UpdateTeam(user, teamID, services.UpdateTeamInput{
		Name:      req.Name,
		ShortName: req.ShortName,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team))
}

// GetStatistics returns the team statistics payload
func (h *TeamHandler) GetStatistics(c *gin.Context) {
	user, teamID, ok := teamRequest(c)
	if !ok {
		return
	}

	stats, err := h.statsService.TeamStatistics(user, teamID)
	if err != nil {
		if errors.Is(err, services.ErrStatsPermissionDenied) {
			apierrors.Forbidden(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to compute statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListPatrols lists the team's patrols
func (h *TeamHandler) ListPatrols(c *gin.Context) {
	user, teamID, ok := teamRequest(c)
	if !ok {
		return
	}

	patrols, err := h.teamService.ListPatrols(user, teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	items := make([]dto.PatrolDTO, len(patrols))
	for i, patrol := range patrols {
		items[i] = dto.ToPatrolDTO(patrol)
	}
	c.JSON(http.StatusOK, gin.H{"patrols": items})
}

// CreatePatrol adds a patrol to the team
func (h *TeamHandler) CreatePatrol(c *gin.Context) {
	type PatrolRequest struct {
		Name string `json:"name" binding:"required,max=100"`
	}

	user, teamID, ok := teamRequest(c)
	if !ok {
		return
	}

	var req PatrolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.MissingField(c, "name")
		return
	}

	patrol, err := h.teamService.CreatePatrol(user, teamID, req.Name)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPatrolDTO(*patrol))
}

// RenamePatrol changes a patrol's name
func (h *TeamHandler) RenamePatrol(c *gin.Context) {
	type PatrolRequest struct {
		Name string `json:"name" binding:"required,max=100"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	patrolID, err := strconv.ParseUint(c.Param("patrolId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid patrol ID")
		return
	}

	var req PatrolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.MissingField(c, "name")
		return
	}

	patrol, err := h.teamService.RenamePatrol(user, patrolID, req.Name)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPatrolDTO(*patrol))
}

// DeletePatrol removes an empty patrol
func (h *TeamHandler) DeletePatrol(c *gin.Context) {
	type DeleteRequest struct {
		ReassignTo *uint64 `json:"reassign_to"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	patrolID, err := strconv.ParseUint(c.Param("patrolId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid patrol ID")
		return
	}

	var req DeleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	if err := h.teamService.DeletePatrol(user, patrolID, req.ReassignTo); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Patrol deleted"})
}

func respondTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPatrolNameRequired):
		apierrors.MissingField(c, "name")
	case errors.Is(err, services.ErrTeamPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTeamNotFound), errors.Is(err, services.ErrPatrolNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrPatrolNotEmpty):
		apierrors.Conflict(c, err.Error(), nil)
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

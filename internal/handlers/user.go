package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eproba/eproba-api/internal/dto"
	apierrors "github.com/eproba/eproba-api/internal/errors"
	"github.com/eproba/eproba-api/internal/middleware"
	"github.com/eproba/eproba-api/internal/services"
	"github.com/eproba/eproba-api/internal/utils"
	"github.com/gin-gonic/gin"
)

// UserHandler coordinates member management HTTP handlers.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UpdateUser edits a member's profile, function, rank or patrol
func (h *UserHandler) UpdateUser(c *gin.Context) {
	type UpdateRequest struct {
		Nickname           *string `json:"nickname"`
		FirstName          *string `json:"first_name"`
		LastName           *string `json:"last_name"`
		ScoutRank          *string `json:"scout_rank"`
		InstructorRank     *string `json:"instructor_rank"`
		Function           *int    `json:"function" binding:"omitempty,min=0,max=5"`
		PatrolID           *uint64 `json:"patrol_id"`
		EmailNotifications *bool   `json:"email_notifications"`
	}

	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.userService.UpdateUser(user, targetID, services.UpdateUserInput{
		Nickname:           req.Nickname,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		ScoutRank:          req.ScoutRank,
		InstructorRank:     req.InstructorRank,
		Function:           req.Function,
		PatrolID:           req.PatrolID,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*updated))
}

// DeactivateUser retires a member
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid user ID")
		return
	}

	if err := h.userService.DeactivateUser(user, targetID); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deactivated"})
}

// ListTeamMembers lists the active members of a team
func (h *UserHandler) ListTeamMembers(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "invalid team ID")
		return
	}

	params := utils.GetPaginationParams(c)
	members, total, err := h.userService.ListTeamMembers(user, teamID, params)
	if err != nil {
		respondUserError(c, err)
		return
	}

	items := make([]dto.UserDTO, len(members))
	for i, member := range members {
		items[i] = dto.ToUserDTO(member)
	}
	c.JSON(http.StatusOK, gin.H{
		"members":    items,
		"pagination": utils.NewPaginationResponse(params, total),
	})
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFunctionTooHigh):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUserPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

package services

import (
	"errors"
	"fmt"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/eproba/eproba-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrUserPermissionDenied = errors.New("user does not have permission to manage this member")
	ErrFunctionTooHigh      = errors.New("cannot assign a function above your own")
)

// UserService handles member management business logic
type UserService struct {
	userRepo repository.UserRepository
	engine   *permissions.Engine
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, engine *permissions.Engine) *UserService {
	return &UserService{
		userRepo: userRepo,
		engine:   engine,
	}
}

// UpdateUserInput represents input for editing a member's profile
type UpdateUserInput struct {
	Nickname           *string
	FirstName          *string
	LastName           *string
	ScoutRank          *string
	InstructorRank     *string
	Function           *int
	PatrolID           *uint64
	EmailNotifications *bool
}

// UpdateUser edits a member's profile. Users always manage their own
// profile fields; changing function, rank or patrol of another member
// requires management rights, and no one can hand out a function above
// their own.
func (s *UserService) UpdateUser(actor *models.User, targetID uint64, input UpdateUserInput) (*models.User, error) {
	target, err := s.userRepo.FindByID(targetID, "Patrol.Team")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	self := actor.ID == target.ID
	if !self && !s.engine.CanManageUser(actor, target) {
		return nil, ErrUserPermissionDenied
	}

	if input.Nickname != nil {
		target.Nickname = *input.Nickname
	}
	if input.FirstName != nil {
		target.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		target.LastName = *input.LastName
	}
	if input.EmailNotifications != nil {
		target.EmailNotifications = *input.EmailNotifications
	}

	managed := input.Function != nil || input.ScoutRank != nil || input.InstructorRank != nil || input.PatrolID != nil
	if managed {
		if self && input.Function != nil && *input.Function > actor.Function {
			return nil, ErrFunctionTooHigh
		}
		if !self && !s.engine.CanManageUser(actor, target) {
			return nil, ErrUserPermissionDenied
		}
		if input.Function != nil {
			if *input.Function > permissions.MaxAssignableFunction(actor) {
				return nil, ErrFunctionTooHigh
			}
			target.Function = *input.Function
		}
		if input.ScoutRank != nil {
			target.ScoutRank = *input.ScoutRank
		}
		if input.InstructorRank != nil {
			target.InstructorRank = *input.InstructorRank
		}
		if input.PatrolID != nil {
			target.PatrolID = input.PatrolID
		}
	}

	if err := s.userRepo.Update(target); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.userRepo.FindByID(target.ID, "Patrol.Team")
}

// DeactivateUser retires a member: the account loses its function and
// staff flag and every API token is revoked in one transaction.
func (s *UserService) DeactivateUser(actor *models.User, targetID uint64) error {
	target, err := s.userRepo.FindByID(targetID, "Patrol.Team")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if actor.ID != target.ID && !s.engine.CanManageUser(actor, target) {
		return ErrUserPermissionDenied
	}

	if err := s.userRepo.Deactivate(target.ID); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

// ListTeamMembers lists a page of a team's active members, visible to
// anyone in the team
func (s *UserService) ListTeamMembers(actor *models.User, teamID uint64, params utils.PaginationParams) ([]models.User, int64, error) {
	if actor.TeamID() != teamID {
		return nil, 0, ErrUserPermissionDenied
	}
	return s.userRepo.ListTeamMembersPage(teamID, models.FunctionMember, params)
}

package services

import (
	"errors"
	"fmt"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound         = errors.New("team not found")
	ErrPatrolNotFound       = errors.New("patrol not found")
	ErrTeamPermissionDenied = errors.New("user does not have permission to manage this team")
	ErrPatrolNotEmpty       = errors.New("patrol still has active members")
	ErrPatrolNameRequired   = errors.New("patrol name is required")
)

// TeamService handles team and patrol management
type TeamService struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
	engine   *permissions.Engine
}

// NewTeamService creates a new TeamService
func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository, engine *permissions.Engine) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		engine:   engine,
	}
}

// GetTeam returns a team with its district and patrols. Only members of
// the team can see it.
func (s *TeamService) GetTeam(actor *models.User, teamID uint64) (*models.Team, error) {
	if actor.TeamID() != teamID {
		return nil, ErrTeamNotFound
	}
	team, err := s.teamRepo.FindTeam(teamID, "District", "Patrols")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

// UpdateTeamInput represents editable team attributes
type UpdateTeamInput struct {
	Name      *string
	ShortName *string
}

// UpdateTeam edits team attributes. Deputies may manage the team only
// while it has no active team leader.
func (s *TeamService) UpdateTeam(actor *models.User, teamID uint64, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.GetTeam(actor, teamID)
	if err != nil {
		return nil, err
	}

	hasTopLeader, err := s.userRepo.TeamHasOtherTopLeader(teamID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check team leadership: %w", err)
	}
	if !s.engine.CanManageTeam(actor, team, hasTopLeader) {
		return nil, ErrTeamPermissionDenied
	}

	if input.Name != nil {
		team.Name = *input.Name
	}
	if input.ShortName != nil {
		team.ShortName = *input.ShortName
	}

	if err := s.teamRepo.UpdateTeam(team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// ListPatrols lists the team's patrols for its members
func (s *TeamService) ListPatrols(actor *models.User, teamID uint64) ([]models.Patrol, error) {
	if actor.TeamID() != teamID {
		return nil, ErrTeamNotFound
	}
	return s.teamRepo.ListPatrols(teamID)
}

// CreatePatrol adds a patrol to the actor's team
func (s *TeamService) CreatePatrol(actor *models.User, teamID uint64, name string) (*models.Patrol, error) {
	if name == "" {
		return nil, ErrPatrolNameRequired
	}
	patrol := &models.Patrol{
		Name:   name,
		TeamID: &teamID,
	}
	if !s.engine.CanManagePatrol(actor, patrol) {
		return nil, ErrTeamPermissionDenied
	}
	if err := s.teamRepo.CreatePatrol(patrol); err != nil {
		return nil, fmt.Errorf("failed to create patrol: %w", err)
	}
	return patrol, nil
}

// RenamePatrol changes a patrol's name
func (s *TeamService) RenamePatrol(actor *models.User, patrolID uint64, name string) (*models.Patrol, error) {
	if name == "" {
		return nil, ErrPatrolNameRequired
	}
	patrol, err := s.findPatrol(patrolID)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanManagePatrol(actor, patrol) {
		return nil, ErrTeamPermissionDenied
	}

	patrol.Name = name
	if err := s.teamRepo.UpdatePatrol(patrol); err != nil {
		return nil, fmt.Errorf("failed to update patrol: %w", err)
	}
	return patrol, nil
}

// DeletePatrol removes a patrol. Patrols with active members cannot be
// deleted; inactive members are moved to reassignTo when given.
func (s *TeamService) DeletePatrol(actor *models.User, patrolID uint64, reassignTo *uint64) error {
	patrol, err := s.findPatrol(patrolID)
	if err != nil {
		return err
	}
	if !s.engine.CanManagePatrol(actor, patrol) {
		return ErrTeamPermissionDenied
	}

	hasActive, err := s.teamRepo.PatrolHasActiveUsers(patrolID)
	if err != nil {
		return fmt.Errorf("failed to check patrol members: %w", err)
	}
	if hasActive {
		return ErrPatrolNotEmpty
	}

	if reassignTo != nil {
		target, err := s.findPatrol(*reassignTo)
		if err != nil {
			return err
		}
		if target.TeamID == nil || patrol.TeamID == nil || *target.TeamID != *patrol.TeamID {
			return ErrPatrolNotFound
		}
		if err := s.teamRepo.ReassignInactiveUsers(patrolID, *reassignTo); err != nil {
			return fmt.Errorf("failed to reassign inactive members: %w", err)
		}
	}

	if err := s.teamRepo.DeletePatrol(patrolID); err != nil {
		return fmt.Errorf("failed to delete patrol: %w", err)
	}
	return nil
}

func (s *TeamService) findPatrol(patrolID uint64) (*models.Patrol, error) {
	patrol, err := s.teamRepo.FindPatrol(patrolID, "Team")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatrolNotFound
		}
		return nil, fmt.Errorf("failed to find patrol: %w", err)
	}
	return patrol, nil
}

package repository

import (
	"github.com/eproba/eproba-api/internal/models"
	"gorm.io/gorm"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// FindTeam finds a team by ID
func (r *GormTeamRepository) FindTeam(id uint64, preload ...string) (*models.Team, error) {
	var team models.Team
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// UpdateTeam updates a team
func (r *GormTeamRepository) UpdateTeam(team *models.Team) error {
	return r.db.Save(team).Error
}

// ListPatrols lists a team's patrols ordered by name
func (r *GormTeamRepository) ListPatrols(teamID uint64) ([]models.Patrol, error) {
	var patrols []models.Patrol
	err := r.db.Where("team_id = ?", teamID).Order("name").Find(&patrols).Error
	if err != nil {
		return nil, err
	}
	return patrols, nil
}

// FindPatrol finds a patrol by ID
func (r *GormTeamRepository) FindPatrol(id uint64, preload ...string) (*models.Patrol, error) {
	var patrol models.Patrol
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&patrol, id).Error; err != nil {
		return nil, err
	}
	return &patrol, nil
}

// CreatePatrol creates a patrol
func (r *GormTeamRepository) CreatePatrol(patrol *models.Patrol) error {
	return r.db.Create(patrol).Error
}

// UpdatePatrol updates a patrol
func (r *GormTeamRepository) UpdatePatrol(patrol *models.Patrol) error {
	return r.db.Save(patrol).Error
}

// DeletePatrol removes a patrol
func (r *GormTeamRepository) DeletePatrol(id uint64) error {
	return r.db.Delete(&models.Patrol{}, id).Error
}

// PatrolHasActiveUsers reports whether any active user belongs to the
// patrol
func (r *GormTeamRepository) PatrolHasActiveUsers(patrolID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("patrol_id = ? AND is_active = ?", patrolID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReassignInactiveUsers moves the patrol's inactive users to another
// patrol
func (r *GormTeamRepository) ReassignInactiveUsers(patrolID, targetPatrolID uint64) error {
	return r.db.Model(&models.User{}).
		Where("patrol_id = ? AND is_active = ?", patrolID, false).
		Update("patrol_id", targetPatrolID).Error
}

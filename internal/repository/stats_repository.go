package repository

import (
	"github.com/eproba/eproba-api/internal/database"
	"github.com/eproba/eproba-api/internal/models"
	"gorm.io/gorm"
)

// GormStatsRepository is a GORM implementation of StatsRepository
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

// ListActiveMembers lists a team's active users with their patrols
func (r *GormStatsRepository) ListActiveMembers(teamID uint64) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Preload("Patrol").
		Joins("JOIN patrols ON patrols.id = users.patrol_id").
		Where("patrols.team_id = ? AND users.is_active = ?", teamID, true).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListTeamWorksheets lists all non-deleted worksheets of a team's
// members with tasks and owners preloaded
func (r *GormStatsRepository) ListTeamWorksheets(teamID uint64) ([]models.Worksheet, error) {
	var sheets []models.Worksheet
	err := r.db.Scopes(database.Alive).
		Preload("Tasks").
		Preload("User.Patrol").
		Joins("JOIN users ON users.id = worksheets.user_id").
		Joins("JOIN patrols ON patrols.id = users.patrol_id").
		Where("patrols.team_id = ?", teamID).
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}
	return sheets, nil
}

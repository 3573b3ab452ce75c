package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/eproba/eproba-api/internal/database"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrDeactivateUser is returned when any step of the deactivation
	// transaction fails.
	ErrDeactivateUser = errors.New("user repository: deactivate user failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64, preload ...string) (*models.User, error) {
	var user models.User
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Patrol.Team").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// ListTeamMembers lists active users of a team with at least the given
// function level
func (r *GormUserRepository) ListTeamMembers(teamID uint64, minFunction int) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Preload("Patrol").
		Joins("JOIN patrols ON patrols.id = users.patrol_id").
		Where("patrols.team_id = ? AND users.is_active = ? AND users.function >= ?", teamID, true, minFunction).
		Order("users.last_name, users.first_name").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListTeamMembersPage returns one page of a team's active members along
// with the total count
func (r *GormUserRepository) ListTeamMembersPage(teamID uint64, minFunction int, params utils.PaginationParams) ([]models.User, int64, error) {
	base := r.db.Model(&models.User{}).
		Joins("JOIN patrols ON patrols.id = users.patrol_id").
		Where("patrols.team_id = ? AND users.is_active = ? AND users.function >= ?", teamID, true, minFunction).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := base.
		Preload("Patrol").
		Order("users.last_name, users.first_name").
		Scopes(database.Paginate(params)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// TeamHasOtherTopLeader reports whether any active team member other
// than excludeUserID holds a function above deputy level
func (r *GormUserRepository) TeamHasOtherTopLeader(teamID, excludeUserID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Joins("JOIN patrols ON patrols.id = users.patrol_id").
		Where("patrols.team_id = ? AND users.is_active = ? AND users.function > ? AND users.id <> ?",
			teamID, true, models.FunctionDeputyTeam, excludeUserID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Deactivate marks the user inactive, resets function and staff status,
// and removes all access tokens atomically
func (r *GormUserRepository) Deactivate(userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_active": false,
			"is_staff":  false,
			"function":  models.FunctionMember,
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeactivateUser, err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeactivateUser, err)
		}
		return nil
	})
}

// CreateAccessToken stores a new API token
func (r *GormUserRepository) CreateAccessToken(token *models.AccessToken) error {
	return r.db.Create(token).Error
}

// FindByAccessToken resolves a bearer token to its user
func (r *GormUserRepository) FindByAccessToken(token string) (*models.User, error) {
	var at models.AccessToken
	if err := r.db.Where("token = ?", token).First(&at).Error; err != nil {
		return nil, err
	}
	if at.Expired(time.Now()) {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(at.UserID, "Patrol.Team")
}

// RegisterDevice stores a push notification target, replacing a
// previous registration of the same token
func (r *GormUserRepository) RegisterDevice(device *models.Device) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("registration_token = ?", device.RegistrationToken).Delete(&models.Device{}).Error; err != nil {
			return err
		}
		return tx.Create(device).Error
	})
}

// ListDeviceTokens returns push tokens registered by the given users
func (r *GormUserRepository) ListDeviceTokens(userIDs []uint64) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var tokens []string
	err := r.db.Model(&models.Device{}).
		Where("user_id IN ?", userIDs).
		Pluck("registration_token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

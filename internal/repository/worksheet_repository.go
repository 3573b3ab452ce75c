package repository

import (
	"time"

	"github.com/eproba/eproba-api/internal/database"
	"github.com/eproba/eproba-api/internal/models"
	"gorm.io/gorm"
)

// GormWorksheetRepository is a GORM implementation of WorksheetRepository
type GormWorksheetRepository struct {
	db *gorm.DB
}

// NewWorksheetRepository creates a new WorksheetRepository
func NewWorksheetRepository(db *gorm.DB) WorksheetRepository {
	return &GormWorksheetRepository{db: db}
}

// Create creates a worksheet together with its initial tasks
func (r *GormWorksheetRepository) Create(ws *models.Worksheet) error {
	return r.db.Create(ws).Error
}

// FindByID finds a worksheet by ID
func (r *GormWorksheetRepository) FindByID(id uint64, preload ...string) (*models.Worksheet, error) {
	var ws models.Worksheet
	query := r.db.Scopes(database.Alive)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&ws, id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// FindByShareToken finds an active worksheet by its share token
func (r *GormWorksheetRepository) FindByShareToken(token string) (*models.Worksheet, error) {
	var ws models.Worksheet
	err := r.db.Scopes(database.Alive).
		Preload("Tasks", taskOrder).
		Preload("User").
		Where("share_token = ?", token).
		First(&ws).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// Update updates worksheet attributes
func (r *GormWorksheetRepository) Update(ws *models.Worksheet) error {
	return r.db.Save(ws).Error
}

// Touch bumps the worksheet's updated_at
func (r *GormWorksheetRepository) Touch(worksheetID uint64) error {
	return r.db.Model(&models.Worksheet{}).
		Where("id = ?", worksheetID).
		Update("updated_at", time.Now()).Error
}

func taskOrder(db *gorm.DB) *gorm.DB {
	return db.Order("tasks.sort_order, tasks.id")
}

func (r *GormWorksheetRepository) listQuery(archived bool) *gorm.DB {
	// Owner's team must be loaded for the scope checks downstream.
	return r.db.Scopes(database.Alive).
		Preload("Tasks", taskOrder).
		Preload("User.Patrol.Team").
		Preload("Supervisor").
		Where("worksheets.is_archived = ?", archived).
		Order("worksheets.updated_at DESC")
}

// ListByOwner lists a user's worksheets
func (r *GormWorksheetRepository) ListByOwner(userID uint64, archived bool) ([]models.Worksheet, error) {
	var sheets []models.Worksheet
	err := r.listQuery(archived).
		Where("worksheets.user_id = ?", userID).
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}
	return sheets, nil
}

// ListByTeam lists worksheets owned by members of a team
func (r *GormWorksheetRepository) ListByTeam(teamID uint64, archived bool) ([]models.Worksheet, error) {
	var sheets []models.Worksheet
	err := r.listQuery(archived).
		Joins("JOIN users ON users.id = worksheets.user_id").
		Joins("JOIN patrols ON patrols.id = users.patrol_id").
		Where("patrols.team_id = ?", teamID).
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}
	return sheets, nil
}

// ListSupervised lists worksheets the user supervises
func (r *GormWorksheetRepository) ListSupervised(userID uint64, archived bool) ([]models.Worksheet, error) {
	var sheets []models.Worksheet
	err := r.listQuery(archived).
		Where("worksheets.supervisor_id = ?", userID).
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}
	return sheets, nil
}

// ListPendingReview lists worksheets containing a task awaiting the
// given approver
func (r *GormWorksheetRepository) ListPendingReview(approverID uint64) ([]models.Worksheet, error) {
	var sheets []models.Worksheet
	err := r.listQuery(false).
		Joins("JOIN tasks ON tasks.worksheet_id = worksheets.id").
		Where("tasks.status = ? AND tasks.approver_id = ?", models.TaskStatusPending, approverID).
		Distinct("worksheets.*").
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}
	return sheets, nil
}

// SoftDelete marks a worksheet deleted without removing its tasks
func (r *GormWorksheetRepository) SoftDelete(id uint64) error {
	return r.db.Model(&models.Worksheet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": time.Now(),
		}).Error
}

// PurgeExpired permanently removes soft-deleted worksheets not updated
// since the cutoff
func (r *GormWorksheetRepository) PurgeExpired(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("deleted = ? AND updated_at < ?", true, cutoff).
		Delete(&models.Worksheet{})
	return result.RowsAffected, result.Error
}

// FindTask finds a task within a worksheet
func (r *GormWorksheetRepository) FindTask(worksheetID, taskID uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.Where("worksheet_id = ?", worksheetID)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask adds a task to a worksheet
func (r *GormWorksheetRepository) CreateTask(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return touchWorksheet(tx, task.WorksheetID)
	})
}

// UpdateTask updates task attributes
func (r *GormWorksheetRepository) UpdateTask(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		return touchWorksheet(tx, task.WorksheetID)
	})
}

// DeleteTask removes a task
func (r *GormWorksheetRepository) DeleteTask(taskID uint64) error {
	return r.db.Delete(&models.Task{}, taskID).Error
}

// TransitionTask applies a status transition guarded by an optimistic
// state check. Returns false when a concurrent transition already moved
// the task out of the expected states.
func (r *GormWorksheetRepository) TransitionTask(worksheetID, taskID uint64, expect []models.TaskStatus, to models.TaskStatus, approverID *uint64, approvalDate *time.Time) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Task{}).
			Where("id = ? AND worksheet_id = ?", taskID, worksheetID)
		if len(expect) > 0 {
			query = query.Where("status IN ?", expect)
		}
		result := query.Updates(map[string]interface{}{
			"status":        to,
			"approver_id":   approverID,
			"approval_date": approvalDate,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		applied = true
		return touchWorksheet(tx, worksheetID)
	})
	return applied, err
}

func touchWorksheet(tx *gorm.DB, worksheetID uint64) error {
	return tx.Model(&models.Worksheet{}).
		Where("id = ?", worksheetID).
		Update("updated_at", time.Now()).Error
}

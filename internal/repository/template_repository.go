package repository

import (
	"github.com/eproba/eproba-api/internal/models"
	"gorm.io/gorm"
)

// GormTemplateRepository is a GORM implementation of TemplateRepository
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &GormTemplateRepository{db: db}
}

// Create creates a template with its tasks and groups
func (r *GormTemplateRepository) Create(tpl *models.TemplateWorksheet) error {
	return r.db.Create(tpl).Error
}

// FindByID finds a template by ID
func (r *GormTemplateRepository) FindByID(id uint64, preload ...string) (*models.TemplateWorksheet, error) {
	var tpl models.TemplateWorksheet
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&tpl, id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListVisible lists templates belonging to the team plus
// organization-wide ones, by descending priority
func (r *GormTemplateRepository) ListVisible(teamID uint64, org models.Organization) ([]models.TemplateWorksheet, error) {
	var templates []models.TemplateWorksheet
	err := r.db.
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("template_tasks.sort_order, template_tasks.id")
		}).
		Preload("TaskGroups").
		Where("team_id = ? OR (team_id IS NULL AND (organization IS NULL OR organization = ?))", teamID, org).
		Order("priority DESC, name").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Update updates template attributes
func (r *GormTemplateRepository) Update(tpl *models.TemplateWorksheet) error {
	return r.db.Save(tpl).Error
}

// Delete removes a template and its tasks
func (r *GormTemplateRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&models.TemplateTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).Delete(&models.TemplateTaskGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.TemplateWorksheet{}, id).Error
	})
}

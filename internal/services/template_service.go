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
	ErrTemplateNameRequired     = errors.New("template name is required")
	ErrTemplatePermissionDenied = errors.New("user does not have permission to manage this template")
	ErrTemplateGroupInvalid     = errors.New("group task bounds are inconsistent")
)

// TemplateService handles worksheet template management
type TemplateService struct {
	templateRepo repository.TemplateRepository
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo repository.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// TemplateTaskInput represents one task row in a template request
type TemplateTaskInput struct {
	Title         string
	Description   string
	TemplateNotes string
	Category      models.TaskCategory
	Order         int
	GroupIndex    *int
}

// TemplateGroupInput represents one task group in a template request
type TemplateGroupInput struct {
	Name        string
	Description string
	MinTasks    *int
	MaxTasks    *int
}

// SaveTemplateInput represents input for creating or replacing a
// template
type SaveTemplateInput struct {
	Name        string
	Description string
	Notes       string
	Priority    int
	TeamOnly    bool
	Groups      []TemplateGroupInput
	Tasks       []TemplateTaskInput
}

// List returns the templates visible to the actor: their team's plus
// organization-wide ones
func (s *TemplateService) List(actor *models.User) ([]models.TemplateWorksheet, error) {
	if !permissions.CanReadTemplates(actor) {
		return nil, ErrTemplatePermissionDenied
	}
	team := actor.Team()
	if team == nil {
		return []models.TemplateWorksheet{}, nil
	}
	return s.templateRepo.ListVisible(team.ID, team.Organization)
}

// Get returns a single template when visible to the actor
func (s *TemplateService) Get(actor *models.User, templateID uint64) (*models.TemplateWorksheet, error) {
	tpl, err := s.templateRepo.FindByID(templateID, "Tasks", "TaskGroups")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	if !permissions.TemplateVisible(actor, tpl) {
		return nil, ErrTemplateNotFound
	}
	return tpl, nil
}

// Create stores a new template for the actor's team
func (s *TemplateService) Create(actor *models.User, input SaveTemplateInput) (*models.TemplateWorksheet, error) {
	if input.Name == "" {
		return nil, ErrTemplateNameRequired
	}
	team := actor.Team()
	if team == nil || actor.Function < models.FunctionDeputyTeam {
		return nil, ErrTemplatePermissionDenied
	}
	if err := validateGroups(input.Groups); err != nil {
		return nil, err
	}

	tpl := &models.TemplateWorksheet{
		TeamID:        &team.ID,
		Name:          input.Name,
		Description:   input.Description,
		TemplateNotes: input.Notes,
		Priority:      input.Priority,
	}
	if !input.TeamOnly {
		org := team.Organization
		tpl.Organization = &org
	}

	for _, g := range input.Groups {
		tpl.TaskGroups = append(tpl.TaskGroups, models.TemplateTaskGroup{
			Name:        g.Name,
			Description: g.Description,
			MinTasks:    g.MinTasks,
			MaxTasks:    g.MaxTasks,
		})
	}

	if err := s.templateRepo.Create(tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	// Group rows exist only after the first insert, so attach tasks in
	// a second pass.
	for _, t := range input.Tasks {
		task := models.TemplateTask{
			TemplateID:    tpl.ID,
			Title:         t.Title,
			Description:   t.Description,
			TemplateNotes: t.TemplateNotes,
			Category:      t.Category,
			Order:         t.Order,
		}
		if task.Category == "" {
			task.Category = models.TaskCategoryGeneral
		}
		if t.GroupIndex != nil && *t.GroupIndex >= 0 && *t.GroupIndex < len(tpl.TaskGroups) {
			task.GroupID = &tpl.TaskGroups[*t.GroupIndex].ID
		}
		tpl.Tasks = append(tpl.Tasks, task)
	}
	if len(tpl.Tasks) > 0 {
		if err := s.templateRepo.Update(tpl); err != nil {
			return nil, fmt.Errorf("failed to store template tasks: %w", err)
		}
	}

	return s.templateRepo.FindByID(tpl.ID, "Tasks", "TaskGroups")
}

// UpdateTemplateInput represents a partial template update; nil fields
// are left unchanged
type UpdateTemplateInput struct {
	Name        *string
	Description *string
	Notes       *string
	Priority    *int
}

// Update changes template attributes. Tasks and groups are fixed once
// created; replacing them means creating a new template.
func (s *TemplateService) Update(actor *models.User, templateID uint64, input UpdateTemplateInput) (*models.TemplateWorksheet, error) {
	tpl, err := s.Get(actor, templateID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanManageTemplate(actor, tpl) {
		return nil, ErrTemplatePermissionDenied
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTemplateNameRequired
		}
		tpl.Name = *input.Name
	}
	if input.Description != nil {
		tpl.Description = *input.Description
	}
	if input.Notes != nil {
		tpl.TemplateNotes = *input.Notes
	}
	if input.Priority != nil {
		tpl.Priority = *input.Priority
	}

	if err := s.templateRepo.Update(tpl); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return tpl, nil
}

// Delete removes a template the actor manages
func (s *TemplateService) Delete(actor *models.User, templateID uint64) error {
	tpl, err := s.Get(actor, templateID)
	if err != nil {
		return err
	}
	if !permissions.CanManageTemplate(actor, tpl) {
		return ErrTemplatePermissionDenied
	}
	if err := s.templateRepo.Delete(templateID); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func validateGroups(groups []TemplateGroupInput) error {
	for _, g := range groups {
		if g.MinTasks != nil && *g.MinTasks < 0 {
			return ErrTemplateGroupInvalid
		}
		if g.MaxTasks != nil && *g.MaxTasks < 0 {
			return ErrTemplateGroupInvalid
		}
		if g.MinTasks != nil && g.MaxTasks != nil && *g.MinTasks > *g.MaxTasks {
			return ErrTemplateGroupInvalid
		}
	}
	return nil
}

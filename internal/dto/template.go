package dto

import (
	"github.com/eproba/eproba-api/internal/models"
)

// TemplateTaskDTO represents a template task in API responses
type TemplateTaskDTO struct {
	ID            uint64              `json:"id"`
	GroupID       *uint64             `json:"group_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	TemplateNotes string              `json:"template_notes"`
	Category      models.TaskCategory `json:"category"`
	Order         int                 `json:"order"`
}

// TemplateGroupDTO represents a template task group in API responses
type TemplateGroupDTO struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinTasks    *int   `json:"min_tasks"`
	MaxTasks    *int   `json:"max_tasks"`
}

// TemplateDTO represents a worksheet template in API responses
type TemplateDTO struct {
	ID           uint64               `json:"id"`
	TeamID       *uint64              `json:"team_id"`
	Organization *models.Organization `json:"organization"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Priority     int                  `json:"priority"`
	Groups       []TemplateGroupDTO   `json:"groups"`
	Tasks        []TemplateTaskDTO    `json:"tasks"`
}

// ToTemplateDTO converts a TemplateWorksheet model to TemplateDTO
func ToTemplateDTO(tpl models.TemplateWorksheet) TemplateDTO {
	dto := TemplateDTO{
		ID:           tpl.ID,
		TeamID:       tpl.TeamID,
		Organization: tpl.Organization,
		Name:         tpl.Name,
		Description:  tpl.Description,
		Priority:     tpl.Priority,
	}
	dto.Groups = make([]TemplateGroupDTO, len(tpl.TaskGroups))
	for i, group := range tpl.TaskGroups {
		dto.Groups[i] = TemplateGroupDTO{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			MinTasks:    group.MinTasks,
			MaxTasks:    group.MaxTasks,
		}
	}
	dto.Tasks = make([]TemplateTaskDTO, len(tpl.Tasks))
	for i, task := range tpl.Tasks {
		dto.Tasks[i] = TemplateTaskDTO{
			ID:            task.ID,
			GroupID:       task.GroupID,
			Title:         task.Title,
			Description:   task.Description,
			TemplateNotes: task.TemplateNotes,
			Category:      task.Category,
			Order:         task.Order,
		}
	}
	return dto
}

// ToTemplateListResponse converts templates for a list endpoint
func ToTemplateListResponse(templates []models.TemplateWorksheet) []TemplateDTO {
	items := make([]TemplateDTO, len(templates))
	for i, tpl := range templates {
		items[i] = ToTemplateDTO(tpl)
	}
	return items
}

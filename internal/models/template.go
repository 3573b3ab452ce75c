package models

import (
	"time"

	"gorm.io/gorm"
)

// TemplateWorksheet is a reusable blueprint for a worksheet's initial
// task set. It is scoped either to a team (TeamID set) or to a whole
// organization (TeamID nil, Organization set) and never transitions
// through the approval state machine.
type TemplateWorksheet struct {
	ID           uint64        `gorm:"primarykey" json:"id"`
	TeamID       *uint64       `gorm:"index" json:"team_id"`
	Organization *Organization `json:"organization"`
	Name         string        `gorm:"type:varchar(200);not null" json:"name"`
	Description  string        `gorm:"type:text" json:"description"`
	TemplateNotes string       `gorm:"type:text" json:"template_notes"`
	Priority     int           `gorm:"not null;default:0" json:"priority"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Team       *Team               `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Tasks      []TemplateTask      `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
	TaskGroups []TemplateTaskGroup `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"task_groups,omitempty"`
}

// TemplateTaskGroup constrains how many tasks of a group a user must pick
// when instantiating the template.
type TemplateTaskGroup struct {
	ID          uint64  `gorm:"primarykey" json:"id"`
	TemplateID  uint64  `gorm:"not null;index" json:"template_id"`
	Name        string  `gorm:"type:varchar(120);not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	MinTasks    *int    `json:"min_tasks"`
	MaxTasks    *int    `json:"max_tasks"`

	// Relations
	Tasks []TemplateTask `gorm:"foreignKey:GroupID" json:"tasks,omitempty"`
}

type TemplateTask struct {
	ID            uint64       `gorm:"primarykey" json:"id"`
	TemplateID    uint64       `gorm:"not null;index" json:"template_id"`
	GroupID       *uint64      `gorm:"index" json:"group_id"`
	Title         string       `gorm:"type:varchar(250)" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	TemplateNotes string       `gorm:"type:text" json:"template_notes"`
	Category      TaskCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	Order         int          `gorm:"column:sort_order;not null;default:0" json:"order"`
}

package models

import (
	"math"
	"time"
)

type TaskStatus int

const (
	TaskStatusTodo     TaskStatus = 0
	TaskStatusPending  TaskStatus = 1
	TaskStatusApproved TaskStatus = 2
	TaskStatusRejected TaskStatus = 3
)

func (s TaskStatus) String() string {
	switch s {
	case TaskStatusTodo:
		return "todo"
	case TaskStatusPending:
		return "pending_approval"
	case TaskStatusApproved:
		return "approved"
	case TaskStatusRejected:
		return "rejected"
	}
	return "unknown"
}

type TaskCategory string

const (
	TaskCategoryGeneral    TaskCategory = "general"
	TaskCategoryIndividual TaskCategory = "individual"
)

// Worksheet is the aggregate root for a member's rank/skill checklist.
type Worksheet struct {
	ID           uint64  `gorm:"primarykey" json:"id"`
	UserID       uint64  `gorm:"not null;index" json:"user_id"`
	SupervisorID *uint64 `gorm:"index" json:"supervisor_id"`
	Name         string  `gorm:"type:varchar(200);not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	// Notes are visible to managers and the supervisor, never to the owner.
	Notes                     string    `gorm:"type:text" json:"-"`
	IsArchived                bool      `gorm:"not null;default:false" json:"is_archived"`
	Deleted                   bool      `gorm:"not null;default:false;index" json:"-"`
	ShareToken                string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	TemplateID                *uint64   `gorm:"index" json:"template_id"`
	FinalChallenge            string    `gorm:"type:varchar(250)" json:"final_challenge"`
	FinalChallengeDescription string    `gorm:"type:text" json:"final_challenge_description"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`

	// Relations
	User       User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Supervisor *User              `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	Template   *TemplateWorksheet `gorm:"foreignKey:TemplateID" json:"-"`
	Tasks      []Task             `gorm:"foreignKey:WorksheetID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
}

// CompletionPercent returns the rounded share of approved tasks.
// ok is false when the worksheet has no tasks at all.
func (w *Worksheet) CompletionPercent() (percent int, ok bool) {
	total := len(w.Tasks)
	if total == 0 {
		return 0, false
	}
	done := 0
	for _, t := range w.Tasks {
		if t.Status == TaskStatusApproved {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(total) * 100)), true
}

// Task is a single checklist item. Approver and ApprovalDate are set and
// cleared together; ClearStatus is the only operation that resets them
// outside a regular transition.
type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	WorksheetID uint64       `gorm:"not null;index" json:"worksheet_id"`
	Title       string       `gorm:"type:varchar(250);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Notes       string       `gorm:"type:text" json:"-"`
	Category    TaskCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	Order       int          `gorm:"column:sort_order;not null;default:0" json:"order"`
	Status      TaskStatus   `gorm:"not null;default:0;index" json:"status"`
	ApproverID   *uint64     `gorm:"index" json:"approver_id"`
	ApprovalDate *time.Time  `json:"approval_date"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	// Relations
	Worksheet Worksheet `gorm:"foreignKey:WorksheetID" json:"-"`
	Approver  *User     `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
}

package dto

import (
	"time"

	"github.com/eproba/eproba-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Category     models.TaskCategory `json:"category"`
	Order        int                 `json:"order"`
	Status       models.TaskStatus   `json:"status"`
	StatusLabel  string              `json:"status_label"`
	ApproverID   *uint64             `json:"approver_id"`
	Approver     *UserSummaryDTO     `json:"approver,omitempty"`
	ApprovalDate *time.Time          `json:"approval_date"`
}

// WorksheetDTO represents a worksheet in API responses
type WorksheetDTO struct {
	ID                        uint64          `json:"id"`
	Name                      string          `json:"name"`
	Description               string          `json:"description"`
	UserID                    uint64          `json:"user_id"`
	User                      *UserSummaryDTO `json:"user,omitempty"`
	SupervisorID              *uint64         `json:"supervisor_id"`
	Supervisor                *UserSummaryDTO `json:"supervisor,omitempty"`
	IsArchived                bool            `json:"is_archived"`
	ShareToken                string          `json:"share_token,omitempty"`
	Notes                     *string         `json:"notes,omitempty"`
	FinalChallenge            string          `json:"final_challenge"`
	FinalChallengeDescription string          `json:"final_challenge_description"`
	CompletionPercent         *int            `json:"completion_percent"`
	Tasks                     []TaskDTO       `json:"tasks"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

// WorksheetOptions controls which restricted fields a response includes
type WorksheetOptions struct {
	IncludeNotes      bool
	IncludeShareToken bool
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Category:     task.Category,
		Order:        task.Order,
		Status:       task.Status,
		StatusLabel:  task.Status.String(),
		ApproverID:   task.ApproverID,
		ApprovalDate: task.ApprovalDate,
	}
	if task.Approver != nil {
		approver := ToUserSummaryDTO(*task.Approver)
		dto.Approver = &approver
	}
	return dto
}

// ToWorksheetDTO converts a Worksheet model to WorksheetDTO
func ToWorksheetDTO(ws models.Worksheet, opts WorksheetOptions) WorksheetDTO {
	dto := WorksheetDTO{
		ID:                        ws.ID,
		Name:                      ws.Name,
		Description:               ws.Description,
		UserID:                    ws.UserID,
		SupervisorID:              ws.SupervisorID,
		IsArchived:                ws.IsArchived,
		FinalChallenge:            ws.FinalChallenge,
		FinalChallengeDescription: ws.FinalChallengeDescription,
		CreatedAt:                 ws.CreatedAt,
		UpdatedAt:                 ws.UpdatedAt,
	}
	if opts.IncludeNotes {
		notes := ws.Notes
		dto.Notes = &notes
	}
	if opts.IncludeShareToken {
		dto.ShareToken = ws.ShareToken
	}
	if ws.User.ID != 0 {
		user := ToUserSummaryDTO(ws.User)
		dto.User = &user
	}
	if ws.Supervisor != nil {
		supervisor := ToUserSummaryDTO(*ws.Supervisor)
		dto.Supervisor = &supervisor
	}
	if pct, ok := ws.CompletionPercent(); ok {
		dto.CompletionPercent = &pct
	}

	dto.Tasks = make([]TaskDTO, len(ws.Tasks))
	for i, task := range ws.Tasks {
		dto.Tasks[i] = ToTaskDTO(task)
	}
	return dto
}

// ToWorksheetListResponse converts worksheets for a list endpoint
func ToWorksheetListResponse(sheets []models.Worksheet, opts WorksheetOptions) []WorksheetDTO {
	items := make([]WorksheetDTO, len(sheets))
	for i, ws := range sheets {
		items[i] = ToWorksheetDTO(ws, opts)
	}
	return items
}

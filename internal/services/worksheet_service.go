package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/eproba/eproba-api/internal/constants"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/notifications"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/eproba/eproba-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrWorksheetNameRequired     = errors.New("worksheet name is required")
	ErrDelegationDenied          = errors.New("user cannot create worksheets for other users")
	ErrWorksheetPermissionDenied = errors.New("user does not have permission to modify this worksheet")
	ErrTargetUserNotFound        = errors.New("target user not found")
	ErrTemplateNotFound          = errors.New("template not found")
	ErrTaskSelectionInvalid      = errors.New("task selection does not satisfy the template's group constraints")
	ErrUnknownListScope          = errors.New("unknown worksheet list scope")
)

// WorksheetListScope selects which worksheets a listing returns
type WorksheetListScope string

const (
	ScopeMine     WorksheetListScope = "mine"
	ScopeTeam     WorksheetListScope = "team"
	ScopeArchived WorksheetListScope = "archived"
	ScopeReview   WorksheetListScope = "review"
)

// WorksheetService handles worksheet aggregate business logic
type WorksheetService struct {
	worksheetRepo repository.WorksheetRepository
	userRepo      repository.UserRepository
	templateRepo  repository.TemplateRepository
	engine        *permissions.Engine
	notifier      notifications.Notifier
}

// NewWorksheetService creates a new WorksheetService
func NewWorksheetService(worksheetRepo repository.WorksheetRepository, userRepo repository.UserRepository, templateRepo repository.TemplateRepository, engine *permissions.Engine, notifier notifications.Notifier) *WorksheetService {
	return &WorksheetService{
		worksheetRepo: worksheetRepo,
		userRepo:      userRepo,
		templateRepo:  templateRepo,
		engine:        engine,
		notifier:      notifier,
	}
}

// TaskInput represents one task row in a create or update request
type TaskInput struct {
	Title       string
	Description string
	Category    models.TaskCategory
	Order       int
}

// CreateWorksheetInput represents input for creating a worksheet
type CreateWorksheetInput struct {
	Name                      string
	Description               string
	ForUserID                 *uint64
	SupervisorID              *uint64
	FinalChallenge            string
	FinalChallengeDescription string
	Tasks                     []TaskInput
}

// Create creates a worksheet, optionally on behalf of another user
func (s *WorksheetService) Create(actor *models.User, input CreateWorksheetInput) (*models.Worksheet, error) {
	if input.Name == "" {
		return nil, ErrWorksheetNameRequired
	}

	ownerID := actor.ID
	if input.ForUserID != nil && *input.ForUserID != actor.ID {
		if actor.Function < models.FunctionPatrolLeader {
			return nil, ErrDelegationDenied
		}
		owner, err := s.userRepo.FindByID(*input.ForUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetUserNotFound
			}
			return nil, fmt.Errorf("failed to find target user: %w", err)
		}
		ownerID = owner.ID
	}

	ws := &models.Worksheet{
		UserID:                    ownerID,
		SupervisorID:              input.SupervisorID,
		Name:                      input.Name,
		Description:               input.Description,
		FinalChallenge:            input.FinalChallenge,
		FinalChallengeDescription: input.FinalChallengeDescription,
		ShareToken:                utils.NewShareToken(),
		Tasks:                     buildTasks(input.Tasks),
	}

	if err := s.worksheetRepo.Create(ws); err != nil {
		return nil, fmt.Errorf("failed to create worksheet: %w", err)
	}

	created, err := s.worksheetRepo.FindByID(ws.ID, "Tasks", "User.Patrol", "Supervisor")
	if err != nil {
		return nil, fmt.Errorf("failed to reload worksheet: %w", err)
	}

	if ownerID != actor.ID && created.User.ID != 0 {
		s.notifier.Notify([]models.User{created.User},
			"New worksheet",
			fmt.Sprintf("%s created the worksheet %q for you", actor.DisplayName(), created.Name),
			worksheetLink(created.ID))
	}

	return created, nil
}

// UpdateWorksheetInput represents input for updating a worksheet. A nil
// Tasks slice leaves the task set untouched.
type UpdateWorksheetInput struct {
	Name                      *string
	Description               *string
	SupervisorID              *uint64
	ClearSupervisor           bool
	FinalChallenge            *string
	FinalChallengeDescription *string
	Notes                     *string
	Tasks                     []TaskInput
	ReplaceTasks              bool
}

// Update edits worksheet attributes and reconciles the task set against
// the incoming list, keyed by task title. Tasks present in both keep
// their status, approver and approval date; tasks absent from the
// incoming list are deleted; new titles are created in todo state.
func (s *WorksheetService) Update(actor *models.User, worksheetID uint64, input UpdateWorksheetInput) (*models.Worksheet, error) {
	ws, err := s.load(worksheetID)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanManageWorksheet(actor, ws) {
		return nil, ErrWorksheetPermissionDenied
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrWorksheetNameRequired
		}
		ws.Name = *input.Name
	}
	if input.Description != nil {
		ws.Description = *input.Description
	}
	if input.ClearSupervisor {
		ws.SupervisorID = nil
	} else if input.SupervisorID != nil {
		ws.SupervisorID = input.SupervisorID
	}
	if input.FinalChallenge != nil {
		ws.FinalChallenge = *input.FinalChallenge
	}
	if input.FinalChallengeDescription != nil {
		ws.FinalChallengeDescription = *input.FinalChallengeDescription
	}
	if input.Notes != nil && permissions.CanReadWorksheetNotes(actor, ws) {
		ws.Notes = *input.Notes
	}

	if err := s.worksheetRepo.Update(ws); err != nil {
		return nil, fmt.Errorf("failed to update worksheet: %w", err)
	}

	if input.ReplaceTasks {
		if err := s.reconcileTasks(ws, input.Tasks); err != nil {
			return nil, err
		}
	}

	return s.load(worksheetID)
}

// reconcileTasks merges the incoming task list into the stored one.
// Duplicate incoming titles collapse to the last occurrence.
func (s *WorksheetService) reconcileTasks(ws *models.Worksheet, incoming []TaskInput) error {
	deduped := make([]TaskInput, 0, len(incoming))
	byTitle := make(map[string]int, len(incoming))
	for _, in := range incoming {
		if idx, ok := byTitle[in.Title]; ok {
			deduped[idx] = in
			continue
		}
		byTitle[in.Title] = len(deduped)
		deduped = append(deduped, in)
	}

	existing := make(map[string]*models.Task, len(ws.Tasks))
	for i := range ws.Tasks {
		existing[ws.Tasks[i].Title] = &ws.Tasks[i]
	}

	for _, in := range deduped {
		if current, ok := existing[in.Title]; ok {
			current.Description = in.Description
			current.Category = in.Category
			current.Order = in.Order
			if err := s.worksheetRepo.UpdateTask(current); err != nil {
				return fmt.Errorf("failed to update task %q: %w", in.Title, err)
			}
			continue
		}
		task := &models.Task{
			WorksheetID: ws.ID,
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			Order:       in.Order,
			Status:      models.TaskStatusTodo,
		}
		if err := s.worksheetRepo.CreateTask(task); err != nil {
			return fmt.Errorf("failed to create task %q: %w", in.Title, err)
		}
	}

	for title, task := range existing {
		if _, ok := byTitle[title]; ok {
			continue
		}
		if err := s.worksheetRepo.DeleteTask(task.ID); err != nil {
			return fmt.Errorf("failed to delete task %q: %w", title, err)
		}
	}

	return nil
}

// SoftDelete marks a worksheet deleted and opportunistically purges
// worksheets past the retention window
func (s *WorksheetService) SoftDelete(actor *models.User, worksheetID uint64) error {
	ws, err := s.load(worksheetID)
	if err != nil {
		return err
	}
	if !s.engine.CanManageWorksheet(actor, ws) {
		return ErrWorksheetPermissionDenied
	}

	if err := s.worksheetRepo.SoftDelete(worksheetID); err != nil {
		return fmt.Errorf("failed to delete worksheet: %w", err)
	}

	if _, err := s.Sweep(); err != nil {
		return fmt.Errorf("failed to purge expired worksheets: %w", err)
	}
	return nil
}

// Sweep permanently removes soft-deleted worksheets past the retention
// window
func (s *WorksheetService) Sweep() (int64, error) {
	cutoff := time.Now().Add(-constants.DeletedWorksheetRetention)
	return s.worksheetRepo.PurgeExpired(cutoff)
}

// SetArchived toggles a worksheet in or out of the archive
func (s *WorksheetService) SetArchived(actor *models.User, worksheetID uint64, archived bool) (*models.Worksheet, error) {
	ws, err := s.load(worksheetID)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanManageWorksheet(actor, ws) {
		return nil, ErrWorksheetPermissionDenied
	}

	ws.IsArchived = archived
	if err := s.worksheetRepo.Update(ws); err != nil {
		return nil, fmt.Errorf("failed to update worksheet: %w", err)
	}
	return s.load(worksheetID)
}

// InstantiateInput represents input for creating a worksheet from a
// template. SelectedTaskIDs narrows grouped template tasks; ungrouped
// tasks are always copied.
type InstantiateInput struct {
	TemplateID      uint64
	Name            string
	ForUserID       *uint64
	SupervisorID    *uint64
	SelectedTaskIDs []uint64
}

// InstantiateFromTemplate copies a template's tasks into a fresh
// worksheet. Template notes stay on the template and are not carried
// into the runtime tasks.
func (s *WorksheetService) InstantiateFromTemplate(actor *models.User, input InstantiateInput) (*models.Worksheet, error) {
	tpl, err := s.templateRepo.FindByID(input.TemplateID, "Tasks", "TaskGroups")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	if !permissions.TemplateVisible(actor, tpl) {
		return nil, ErrTemplateNotFound
	}

	selected := make(map[uint64]struct{}, len(input.SelectedTaskIDs))
	for _, id := range input.SelectedTaskIDs {
		selected[id] = struct{}{}
	}

	tasks := make([]TaskInput, 0, len(tpl.Tasks))
	pickedPerGroup := make(map[uint64]int)
	for _, tt := range tpl.Tasks {
		if tt.GroupID != nil {
			if _, ok := selected[tt.ID]; !ok {
				continue
			}
			pickedPerGroup[*tt.GroupID]++
		}
		tasks = append(tasks, TaskInput{
			Title:       tt.Title,
			Description: tt.Description,
			Category:    tt.Category,
			Order:       tt.Order,
		})
	}

	for _, group := range tpl.TaskGroups {
		picked := pickedPerGroup[group.ID]
		if group.MinTasks != nil && picked < *group.MinTasks {
			return nil, ErrTaskSelectionInvalid
		}
		if group.MaxTasks != nil && picked > *group.MaxTasks {
			return nil, ErrTaskSelectionInvalid
		}
	}

	name := input.Name
	if name == "" {
		name = tpl.Name
	}

	return s.Create(actor, CreateWorksheetInput{
		Name:         name,
		Description:  tpl.Description,
		ForUserID:    input.ForUserID,
		SupervisorID: input.SupervisorID,
		Tasks:        tasks,
	})
}

// List returns the worksheets visible to the actor in the given scope
func (s *WorksheetService) List(actor *models.User, scope WorksheetListScope) ([]models.Worksheet, error) {
	switch scope {
	case ScopeMine:
		return s.worksheetRepo.ListByOwner(actor.ID, false)

	case ScopeTeam:
		if actor.Function < models.FunctionPatrolLeader {
			return nil, ErrWorksheetPermissionDenied
		}
		team, err := s.worksheetRepo.ListByTeam(actor.TeamID(), false)
		if err != nil {
			return nil, fmt.Errorf("failed to list team worksheets: %w", err)
		}
		supervised, err := s.worksheetRepo.ListSupervised(actor.ID, false)
		if err != nil {
			return nil, fmt.Errorf("failed to list supervised worksheets: %w", err)
		}
		return s.filterReadable(actor, mergeWorksheets(team, supervised)), nil

	case ScopeArchived:
		own, err := s.worksheetRepo.ListByOwner(actor.ID, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list archived worksheets: %w", err)
		}
		if actor.Function < models.FunctionPatrolLeader {
			return own, nil
		}
		team, err := s.worksheetRepo.ListByTeam(actor.TeamID(), true)
		if err != nil {
			return nil, fmt.Errorf("failed to list archived team worksheets: %w", err)
		}
		supervised, err := s.worksheetRepo.ListSupervised(actor.ID, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list archived supervised worksheets: %w", err)
		}
		return s.filterReadable(actor, mergeWorksheets(own, team, supervised)), nil

	case ScopeReview:
		return s.worksheetRepo.ListPendingReview(actor.ID)

	default:
		return nil, ErrUnknownListScope
	}
}

// GetByShareToken resolves a public share link
func (s *WorksheetService) GetByShareToken(token string) (*models.Worksheet, error) {
	ws, err := s.worksheetRepo.FindByShareToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorksheetNotFound
		}
		return nil, fmt.Errorf("failed to find worksheet: %w", err)
	}
	return ws, nil
}

func (s *WorksheetService) load(worksheetID uint64) (*models.Worksheet, error) {
	ws, err := s.worksheetRepo.FindByID(worksheetID, "Tasks", "User.Patrol.Team", "Supervisor.Patrol")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorksheetNotFound
		}
		return nil, fmt.Errorf("failed to find worksheet: %w", err)
	}
	return ws, nil
}

func (s *WorksheetService) filterReadable(actor *models.User, sheets []models.Worksheet) []models.Worksheet {
	readable := make([]models.Worksheet, 0, len(sheets))
	for i := range sheets {
		if s.engine.CanReadWorksheet(actor, &sheets[i]) {
			readable = append(readable, sheets[i])
		}
	}
	return readable
}

func mergeWorksheets(lists ...[]models.Worksheet) []models.Worksheet {
	seen := make(map[uint64]struct{})
	merged := make([]models.Worksheet, 0)
	for _, list := range lists {
		for _, ws := range list {
			if _, ok := seen[ws.ID]; ok {
				continue
			}
			seen[ws.ID] = struct{}{}
			merged = append(merged, ws)
		}
	}
	return merged
}

func buildTasks(inputs []TaskInput) []models.Task {
	tasks := make([]models.Task, 0, len(inputs))
	for i, in := range inputs {
		order := in.Order
		if order == 0 {
			order = i
		}
		category := in.Category
		if category == "" {
			category = models.TaskCategoryGeneral
		}
		tasks = append(tasks, models.Task{
			Title:       in.Title,
			Description: in.Description,
			Category:    category,
			Order:       order,
			Status:      models.TaskStatusTodo,
		})
	}
	return tasks
}

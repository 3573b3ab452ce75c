package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/notifications"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrWorksheetNotFound    = errors.New("worksheet not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrNotWorksheetOwner    = errors.New("only the worksheet owner can perform this action")
	ErrTaskPermissionDenied = errors.New("user does not have permission to review this task")
	ErrApproverRequired     = errors.New("an approver is required to submit a task")
	ErrInvalidApprover      = errors.New("selected approver is not eligible for this task")
	ErrTaskStateConflict    = errors.New("task is not in a state that allows this transition")
)

// TaskService drives the task approval lifecycle
type TaskService struct {
	worksheetRepo repository.WorksheetRepository
	userRepo      repository.UserRepository
	engine        *permissions.Engine
	notifier      notifications.Notifier
}

// NewTaskService creates a new TaskService
func NewTaskService(worksheetRepo repository.WorksheetRepository, userRepo repository.UserRepository, engine *permissions.Engine, notifier notifications.Notifier) *TaskService {
	return &TaskService{
		worksheetRepo: worksheetRepo,
		userRepo:      userRepo,
		engine:        engine,
		notifier:      notifier,
	}
}

func (s *TaskService) loadWorksheet(worksheetID uint64) (*models.Worksheet, error) {
	ws, err := s.worksheetRepo.FindByID(worksheetID, "User.Patrol.Team", "Supervisor.Patrol")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorksheetNotFound
		}
		return nil, fmt.Errorf("failed to find worksheet: %w", err)
	}
	return ws, nil
}

func (s *TaskService) loadTask(worksheetID, taskID uint64) (*models.Task, error) {
	task, err := s.worksheetRepo.FindTask(worksheetID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// Submit sends a task to the chosen approver for review
func (s *TaskService) Submit(actor *models.User, worksheetID, taskID, approverID uint64) (*models.Task, error) {
	ws, err := s.loadWorksheet(worksheetID)
	if err != nil {
		return nil, err
	}
	if !permissions.IsWorksheetOwner(actor, ws) {
		return nil, ErrNotWorksheetOwner
	}
	task, err := s.loadTask(worksheetID, taskID)
	if err != nil {
		return nil, err
	}
	if approverID == 0 {
		return nil, ErrApproverRequired
	}

	approver, err := s.findApprover(ws, task, approverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	applied, err := s.worksheetRepo.TransitionTask(worksheetID, taskID,
		[]models.TaskStatus{models.TaskStatusTodo, models.TaskStatusRejected},
		models.TaskStatusPending, &approver.ID, &now)
	if err != nil {
		return nil, fmt.Errorf("failed to submit task: %w", err)
	}
	if !applied {
		return nil, ErrTaskStateConflict
	}

	s.notifier.Notify([]models.User{*approver},
		"Task submitted for approval",
		fmt.Sprintf("%s requests approval of %q", ws.User.DisplayName(), task.Title),
		worksheetLink(ws.ID))

	return s.loadTask(worksheetID, taskID)
}

// Unsubmit withdraws a pending task back to todo
func (s *TaskService) Unsubmit(actor *models.User, worksheetID, taskID uint64) (*models.Task, error) {
	ws, err := s.loadWorksheet(worksheetID)
	if err != nil {
		return nil, err
	}
	if !permissions.IsWorksheetOwner(actor, ws) {
		return nil, ErrNotWorksheetOwner
	}
	if _, err := s.loadTask(worksheetID, taskID); err != nil {
		return nil, err
	}

	applied, err := s.worksheetRepo.TransitionTask(worksheetID, taskID,
		[]models.TaskStatus{models.TaskStatusPending},
		models.TaskStatusTodo, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unsubmit task: %w", err)
	}
	if !applied {
		return nil, ErrTaskStateConflict
	}

	return s.loadTask(worksheetID, taskID)
}

// Accept approves a pending task
func (s *TaskService) Accept(actor *models.User, worksheetID, taskID uint64) (*models.Task, error) {
	return s.resolve(actor, worksheetID, taskID, models.TaskStatusApproved, false)
}

// Reject declines a pending task
func (s *TaskService) Reject(actor *models.User, worksheetID, taskID uint64) (*models.Task, error) {
	return s.resolve(actor, worksheetID, taskID, models.TaskStatusRejected, false)
}

// ForceAccept approves a task regardless of its current state
func (s *TaskService) ForceAccept(actor *models.User, worksheetID, taskID uint64) (*models.Task, error) {
	return s.resolve(actor, worksheetID, taskID, models.TaskStatusApproved, true)
}

// ForceReject declines a task regardless of its current state
func (s *TaskService) ForceReject(actor *models.User, worksheetID, taskID uint64) (*models.Task, error) {
	return s.resolve(actor, worksheetID, taskID, models.TaskStatusRejected, true)
}

func (s *TaskService) resolve(actor *models.User, worksheetID, taskID uint64, to models.TaskStatus, force bool) (*models.Task, error) {
	ws, err := s.loadWorksheet(worksheetID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(worksheetID, taskID)
	if err != nil {
		return nil, err
	}

	if force {
		if !permissions.CanForceResolveTask(actor, ws) {
			return nil, ErrTaskPermissionDenied
		}
	} else {
		designated := task.ApproverID != nil && *task.ApproverID == actor.ID
		if !designated && !s.engine.CanManageTask(actor, ws) {
			return nil, ErrTaskPermissionDenied
		}
	}

	var expect []models.TaskStatus
	if !force {
		expect = []models.TaskStatus{models.TaskStatusPending}
	}

	previous := task.Status
	now := time.Now()
	applied, err := s.worksheetRepo.TransitionTask(worksheetID, taskID, expect, to, &actor.ID, &now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task: %w", err)
	}
	if !applied {
		return nil, ErrTaskStateConflict
	}

	s.notifyResolved(actor, ws, task, to, previous)

	return s.loadTask(worksheetID, taskID)
}

// notifyResolved tells the worksheet owner about the outcome. Owners
// reviewing their own tasks are not notified, and a rejection that only
// confirms an unsubmitted or already rejected task stays silent.
func (s *TaskService) notifyResolved(actor *models.User, ws *models.Worksheet, task *models.Task, to models.TaskStatus, previous models.TaskStatus) {
	if ws.User.ID == 0 {
		return
	}
	actingOnOwn := actor.ID == ws.UserID
	switch to {
	case models.TaskStatusApproved:
		if actingOnOwn {
			return
		}
		s.notifier.Notify([]models.User{ws.User},
			"Task approved",
			fmt.Sprintf("%s approved %q", actor.DisplayName(), task.Title),
			worksheetLink(ws.ID))
	case models.TaskStatusRejected:
		if actingOnOwn && (previous == models.TaskStatusRejected || previous == models.TaskStatusTodo) {
			return
		}
		s.notifier.Notify([]models.User{ws.User},
			"Task rejected",
			fmt.Sprintf("%s rejected %q", actor.DisplayName(), task.Title),
			worksheetLink(ws.ID))
	}
}

// ClearStatus resets a task to todo, wiping approver and approval date
func (s *TaskService) ClearStatus(actor *models.User, worksheetID, taskID uint64) (*models.Task, error) {
	ws, err := s.loadWorksheet(worksheetID)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanManageTask(actor, ws) {
		return nil, ErrTaskPermissionDenied
	}
	if _, err := s.loadTask(worksheetID, taskID); err != nil {
		return nil, err
	}

	applied, err := s.worksheetRepo.TransitionTask(worksheetID, taskID, nil,
		models.TaskStatusTodo, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to clear task status: %w", err)
	}
	if !applied {
		return nil, ErrTaskStateConflict
	}

	return s.loadTask(worksheetID, taskID)
}

// ApproverCandidates lists users eligible to review a task: the
// worksheet's supervisor, every team member above patrol-leader level,
// and for general tasks patrol leaders as well. The owner is never a
// candidate.
func (s *TaskService) ApproverCandidates(worksheetID, taskID uint64) ([]models.User, error) {
	ws, err := s.loadWorksheet(worksheetID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(worksheetID, taskID)
	if err != nil {
		return nil, err
	}

	minFunction := models.FunctionDeputyTeam
	if task.Category == models.TaskCategoryGeneral {
		minFunction = models.FunctionPatrolLeader
	}

	candidates := make([]models.User, 0)
	seen := make(map[uint64]struct{})
	add := func(u models.User) {
		if u.ID == ws.UserID {
			return
		}
		if _, ok := seen[u.ID]; ok {
			return
		}
		seen[u.ID] = struct{}{}
		candidates = append(candidates, u)
	}

	if ws.Supervisor != nil {
		add(*ws.Supervisor)
	}

	if teamID := ws.User.TeamID(); teamID != 0 {
		members, err := s.userRepo.ListTeamMembers(teamID, minFunction)
		if err != nil {
			return nil, fmt.Errorf("failed to list eligible approvers: %w", err)
		}
		for _, m := range members {
			add(m)
		}
	}

	return candidates, nil
}

func (s *TaskService) findApprover(ws *models.Worksheet, task *models.Task, approverID uint64) (*models.User, error) {
	candidates, err := s.ApproverCandidates(ws.ID, task.ID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].ID == approverID {
			return &candidates[i], nil
		}
	}
	return nil, ErrInvalidApprover
}

func worksheetLink(worksheetID uint64) string {
	return fmt.Sprintf("/worksheets/%d", worksheetID)
}

package repository

import (
	"time"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// Update updates a user
	Update(user *models.User) error

	// ListTeamMembers lists active users of a team with at least the
	// given function level (0 lists everyone)
	ListTeamMembers(teamID uint64, minFunction int) ([]models.User, error)
	// ListTeamMembersPage returns one page of a team's active members
	// along with the total count.
	ListTeamMembersPage(teamID uint64, minFunction int, params utils.PaginationParams) ([]models.User, int64, error)

	// TeamHasOtherTopLeader reports whether any active team member other
	// than excludeUserID holds a function above deputy level
	TeamHasOtherTopLeader(teamID, excludeUserID uint64) (bool, error)

	// Deactivate marks the user inactive, resets function and staff
	// status, and removes all access tokens, atomically
	Deactivate(userID uint64) error

	// CreateAccessToken stores a new API token
	CreateAccessToken(token *models.AccessToken) error

	// FindByAccessToken resolves a bearer token to its user
	FindByAccessToken(token string) (*models.User, error)

	// RegisterDevice stores a push notification target
	RegisterDevice(device *models.Device) error

	// ListDeviceTokens returns push tokens registered by the given users
	ListDeviceTokens(userIDs []uint64) ([]string, error)
}

// WorksheetRepository defines the interface for worksheet and task data
// access. All lookups and listings exclude soft-deleted worksheets.
type WorksheetRepository interface {
	// Create creates a worksheet together with its initial tasks
	Create(ws *models.Worksheet) error

	// FindByID finds a worksheet by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Worksheet, error)

	// FindByShareToken finds an active worksheet by its share token
	FindByShareToken(token string) (*models.Worksheet, error)

	// Update updates worksheet attributes
	Update(ws *models.Worksheet) error

	// Touch bumps the worksheet's updated_at
	Touch(worksheetID uint64) error

	// ListByOwner lists a user's worksheets
	ListByOwner(userID uint64, archived bool) ([]models.Worksheet, error)

	// ListByTeam lists worksheets owned by members of a team
	ListByTeam(teamID uint64, archived bool) ([]models.Worksheet, error)

	// ListSupervised lists worksheets the user supervises
	ListSupervised(userID uint64, archived bool) ([]models.Worksheet, error)

	// ListPendingReview lists worksheets containing a task awaiting the
	// given approver
	ListPendingReview(approverID uint64) ([]models.Worksheet, error)

	// SoftDelete marks a worksheet deleted without removing its tasks
	SoftDelete(id uint64) error

	// PurgeExpired permanently removes soft-deleted worksheets not
	// updated since the cutoff, returning how many were removed
	PurgeExpired(cutoff time.Time) (int64, error)

	// FindTask finds a task within a worksheet
	FindTask(worksheetID, taskID uint64, preload ...string) (*models.Task, error)

	// CreateTask adds a task to a worksheet
	CreateTask(task *models.Task) error

	// UpdateTask updates task attributes
	UpdateTask(task *models.Task) error

	// DeleteTask removes a task
	DeleteTask(taskID uint64) error

	// TransitionTask applies a status transition with an optimistic
	// check: when expect is non-empty the update only applies while the
	// task is still in one of the expected states. On success the parent
	// worksheet's updated_at is bumped in the same transaction. Returns
	// false when the check failed (concurrent transition won).
	TransitionTask(worksheetID, taskID uint64, expect []models.TaskStatus, to models.TaskStatus, approverID *uint64, approvalDate *time.Time) (bool, error)
}

// TeamRepository defines the interface for team and patrol data access
type TeamRepository interface {
	// FindTeam finds a team by ID with optional preloading
	FindTeam(id uint64, preload ...string) (*models.Team, error)

	// UpdateTeam updates a team
	UpdateTeam(team *models.Team) error

	// ListPatrols lists a team's patrols ordered by name
	ListPatrols(teamID uint64) ([]models.Patrol, error)

	// FindPatrol finds a patrol by ID with optional preloading
	FindPatrol(id uint64, preload ...string) (*models.Patrol, error)

	// CreatePatrol creates a patrol
	CreatePatrol(patrol *models.Patrol) error

	// UpdatePatrol updates a patrol
	UpdatePatrol(patrol *models.Patrol) error

	// DeletePatrol removes a patrol
	DeletePatrol(id uint64) error

	// PatrolHasActiveUsers reports whether any active user belongs to
	// the patrol
	PatrolHasActiveUsers(patrolID uint64) (bool, error)

	// ReassignInactiveUsers moves the patrol's inactive users to another
	// patrol
	ReassignInactiveUsers(patrolID, targetPatrolID uint64) error
}

// TemplateRepository defines the interface for worksheet template data
// access
type TemplateRepository interface {
	// Create creates a template with its tasks and groups
	Create(tpl *models.TemplateWorksheet) error

	// FindByID finds a template by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.TemplateWorksheet, error)

	// ListVisible lists templates belonging to the team plus
	// organization-wide ones, by descending priority
	ListVisible(teamID uint64, org models.Organization) ([]models.TemplateWorksheet, error)

	// Update updates template attributes
	Update(tpl *models.TemplateWorksheet) error

	// Delete removes a template and its tasks
	Delete(id uint64) error
}

// StatsRepository provides the read models for team statistics. The
// aggregation itself happens in the service; these return the raw rows.
type StatsRepository interface {
	// ListActiveMembers lists a team's active users with their patrols
	ListActiveMembers(teamID uint64) ([]models.User, error)

	// ListTeamWorksheets lists all non-deleted worksheets of a team's
	// members with tasks and owners preloaded
	ListTeamWorksheets(teamID uint64) ([]models.Worksheet, error)
}

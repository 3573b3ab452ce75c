package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// notifierRecorder captures dispatched notifications for assertions
type notifierRecorder struct {
	mu   sync.Mutex
	sent []recordedNotification
}

type recordedNotification struct {
	TargetIDs []uint64
	Title     string
	Body      string
	Link      string
}

func (r *notifierRecorder) Notify(targets []models.User, title, body, link string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
	}
	r.sent = append(r.sent, recordedNotification{TargetIDs: ids, Title: title, Body: body, Link: link})
}

func (r *notifierRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func openTestDB(t *suite.Suite) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	t.Require().NoError(err)
	err = db.AutoMigrate(
		&models.District{},
		&models.Team{},
		&models.Patrol{},
		&models.User{},
		&models.Device{},
		&models.AccessToken{},
		&models.TemplateWorksheet{},
		&models.TemplateTaskGroup{},
		&models.TemplateTask{},
		&models.Worksheet{},
		&models.Task{},
	)
	t.Require().NoError(err)
	return db
}

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *TaskService
	recorder *notifierRecorder

	team         *models.Team
	owner        *models.User
	deputy       *models.User
	patrolLeader *models.User
	member       *models.User
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.db = openTestDB(&suite.Suite)
	suite.recorder = &notifierRecorder{}

	worksheetRepo := repository.NewWorksheetRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	engine := permissions.NewEngine(permissions.ScopeTeam)
	suite.service = NewTaskService(worksheetRepo, userRepo, engine, suite.recorder)

	suite.team = suite.createTeam("1 Test Team")
	patrolA := suite.createPatrol(suite.team, "Wolves")
	patrolB := suite.createPatrol(suite.team, "Foxes")
	suite.owner = suite.createUser("owner@example.com", models.FunctionMember, patrolA)
	suite.deputy = suite.createUser("deputy@example.com", models.FunctionDeputyTeam, patrolB)
	suite.patrolLeader = suite.createUser("leader@example.com", models.FunctionPatrolLeader, patrolB)
	suite.member = suite.createUser("member@example.com", models.FunctionMember, patrolA)
}

func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createTeam(name string) *models.Team {
	district := &models.District{Name: "Test District"}
	suite.Require().NoError(suite.db.Create(district).Error)
	team := &models.Team{Name: name, ShortName: "TT", DistrictID: district.ID}
	suite.Require().NoError(suite.db.Create(team).Error)
	return team
}

func (suite *TaskServiceTestSuite) createPatrol(team *models.Team, name string) *models.Patrol {
	patrol := &models.Patrol{Name: name, TeamID: &team.ID}
	suite.Require().NoError(suite.db.Create(patrol).Error)
	return patrol
}

func (suite *TaskServiceTestSuite) createUser(email string, function int, patrol *models.Patrol) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     email,
		Function:     function,
		IsActive:     true,
		PatrolID:     &patrol.ID,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	loaded := &models.User{}
	suite.Require().NoError(suite.db.Preload("Patrol.Team").First(loaded, user.ID).Error)
	return loaded
}

func (suite *TaskServiceTestSuite) createWorksheet(owner *models.User, supervisorID *uint64) *models.Worksheet {
	ws := &models.Worksheet{
		UserID:       owner.ID,
		SupervisorID: supervisorID,
		Name:         "Rank worksheet",
		ShareToken:   fmt.Sprintf("token-%d-%d", owner.ID, len(suite.recorder.sent)),
	}
	suite.Require().NoError(suite.db.Create(ws).Error)
	return ws
}

func (suite *TaskServiceTestSuite) createTask(ws *models.Worksheet, title string, status models.TaskStatus, category models.TaskCategory) *models.Task {
	task := &models.Task{
		WorksheetID: ws.ID,
		Title:       title,
		Category:    category,
		Status:      status,
	}
	suite.Require().NoError(suite.db.Create(task).Error)
	return task
}

func (suite *TaskServiceTestSuite) TestSubmitMovesTodoToPending() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	updated, err := suite.service.Submit(suite.owner, ws.ID, task.ID, suite.deputy.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusPending, updated.Status)
	suite.Require().NotNil(updated.ApproverID)
	assert.Equal(suite.T(), suite.deputy.ID, *updated.ApproverID)
	assert.NotNil(suite.T(), updated.ApprovalDate)

	suite.Require().Len(suite.recorder.sent, 1)
	assert.Equal(suite.T(), []uint64{suite.deputy.ID}, suite.recorder.sent[0].TargetIDs)
}

func (suite *TaskServiceTestSuite) TestSubmitAllowedFromRejected() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusRejected, models.TaskCategoryGeneral)

	updated, err := suite.service.Submit(suite.owner, ws.ID, task.ID, suite.deputy.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TaskStatusPending, updated.Status)
}

func (suite *TaskServiceTestSuite) TestSubmitConflictsWhenAlreadyPending() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)

	_, err := suite.service.Submit(suite.owner, ws.ID, task.ID, suite.deputy.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskStateConflict)
}

func (suite *TaskServiceTestSuite) TestSubmitConflictsWhenApproved() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusApproved, models.TaskCategoryGeneral)

	_, err := suite.service.Submit(suite.owner, ws.ID, task.ID, suite.deputy.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskStateConflict)
}

func (suite *TaskServiceTestSuite) TestSubmitRequiresOwner() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	_, err := suite.service.Submit(suite.deputy, ws.ID, task.ID, suite.deputy.ID)
	assert.ErrorIs(suite.T(), err, ErrNotWorksheetOwner)
}

func (suite *TaskServiceTestSuite) TestSubmitRejectsIneligibleApprover() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryIndividual)

	// A plain member is never eligible, and for individual tasks
	// neither is a patrol leader.
	_, err := suite.service.Submit(suite.owner, ws.ID, task.ID, suite.member.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalidApprover)

	_, err = suite.service.Submit(suite.owner, ws.ID, task.ID, suite.patrolLeader.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalidApprover)
}

func (suite *TaskServiceTestSuite) TestUnsubmitClearsApproverAndDate() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)
	_, err := suite.service.Submit(suite.owner, ws.ID, task.ID, suite.deputy.ID)
	suite.Require().NoError(err)

	updated, err := suite.service.Unsubmit(suite.owner, ws.ID, task.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusTodo, updated.Status)
	assert.Nil(suite.T(), updated.ApproverID)
	assert.Nil(suite.T(), updated.ApprovalDate)
}

func (suite *TaskServiceTestSuite) TestUnsubmitConflictsWhenNotPending() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	_, err := suite.service.Unsubmit(suite.owner, ws.ID, task.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskStateConflict)
}

func (suite *TaskServiceTestSuite) TestAcceptApprovesAndNotifiesOwner() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)

	updated, err := suite.service.Accept(suite.deputy, ws.ID, task.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusApproved, updated.Status)
	suite.Require().NotNil(updated.ApproverID)
	assert.Equal(suite.T(), suite.deputy.ID, *updated.ApproverID)
	assert.NotNil(suite.T(), updated.ApprovalDate)

	suite.Require().Len(suite.recorder.sent, 1)
	assert.Equal(suite.T(), []uint64{suite.owner.ID}, suite.recorder.sent[0].TargetIDs)
}

func (suite *TaskServiceTestSuite) TestAcceptConflictsOnNonPending() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	_, err := suite.service.Accept(suite.deputy, ws.ID, task.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskStateConflict)
}

func (suite *TaskServiceTestSuite) TestAcceptDeniedForPlainMember() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)

	_, err := suite.service.Accept(suite.member, ws.ID, task.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestDesignatedApproverCanAcceptWithoutManageRights() {
	// The supervisor may be outside the owner's team entirely.
	otherTeam := suite.createTeam("2 Other Team")
	otherPatrol := suite.createPatrol(otherTeam, "Bears")
	supervisor := suite.createUser("supervisor@example.com", models.FunctionMember, otherPatrol)

	ws := suite.createWorksheet(suite.owner, &supervisor.ID)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)
	suite.Require().NoError(suite.db.Model(task).Update("approver_id", supervisor.ID).Error)

	updated, err := suite.service.Accept(supervisor, ws.ID, task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TaskStatusApproved, updated.Status)
}

func (suite *TaskServiceTestSuite) TestRejectNotifiesOwner() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)

	updated, err := suite.service.Reject(suite.deputy, ws.ID, task.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusRejected, updated.Status)
	suite.Require().Len(suite.recorder.sent, 1)
	assert.Equal(suite.T(), []uint64{suite.owner.ID}, suite.recorder.sent[0].TargetIDs)
}

func (suite *TaskServiceTestSuite) TestForceAcceptBypassesPendingRequirement() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	updated, err := suite.service.ForceAccept(suite.patrolLeader, ws.ID, task.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusApproved, updated.Status)
	suite.Require().NotNil(updated.ApproverID)
	assert.Equal(suite.T(), suite.patrolLeader.ID, *updated.ApproverID)
}

func (suite *TaskServiceTestSuite) TestForceDeniedWhenOwnerOutranks() {
	ws := suite.createWorksheet(suite.deputy, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	_, err := suite.service.ForceAccept(suite.patrolLeader, ws.ID, task.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestForceRejectOnOwnTodoTaskStaysSilent() {
	ws := suite.createWorksheet(suite.deputy, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	updated, err := suite.service.ForceReject(suite.deputy, ws.ID, task.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusRejected, updated.Status)
	assert.Empty(suite.T(), suite.recorder.sent)
}

func (suite *TaskServiceTestSuite) TestAcceptOwnTaskSkipsNotification() {
	ws := suite.createWorksheet(suite.deputy, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)

	_, err := suite.service.Accept(suite.deputy, ws.ID, task.ID)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), suite.recorder.sent)
}

func (suite *TaskServiceTestSuite) TestClearStatusResetsEverything() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusPending, models.TaskCategoryGeneral)
	_, err := suite.service.Accept(suite.deputy, ws.ID, task.ID)
	suite.Require().NoError(err)

	updated, err := suite.service.ClearStatus(suite.deputy, ws.ID, task.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusTodo, updated.Status)
	assert.Nil(suite.T(), updated.ApproverID)
	assert.Nil(suite.T(), updated.ApprovalDate)
}

func (suite *TaskServiceTestSuite) TestApproverCandidatesForGeneralTask() {
	otherTeam := suite.createTeam("2 Other Team")
	otherPatrol := suite.createPatrol(otherTeam, "Bears")
	supervisor := suite.createUser("supervisor@example.com", models.FunctionMember, otherPatrol)

	ws := suite.createWorksheet(suite.owner, &supervisor.ID)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	candidates, err := suite.service.ApproverCandidates(ws.ID, task.ID)
	suite.Require().NoError(err)

	ids := make([]uint64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	assert.ElementsMatch(suite.T(), []uint64{supervisor.ID, suite.deputy.ID, suite.patrolLeader.ID}, ids)
}

func (suite *TaskServiceTestSuite) TestApproverCandidatesForIndividualTaskExcludePatrolLeaders() {
	ws := suite.createWorksheet(suite.owner, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryIndividual)

	candidates, err := suite.service.ApproverCandidates(ws.ID, task.ID)
	suite.Require().NoError(err)

	ids := make([]uint64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	assert.ElementsMatch(suite.T(), []uint64{suite.deputy.ID}, ids)
}

func (suite *TaskServiceTestSuite) TestApproverCandidatesNeverIncludeOwner() {
	ws := suite.createWorksheet(suite.deputy, nil)
	task := suite.createTask(ws, "Tie knots", models.TaskStatusTodo, models.TaskCategoryGeneral)

	candidates, err := suite.service.ApproverCandidates(ws.ID, task.ID)
	suite.Require().NoError(err)

	for _, c := range candidates {
		assert.NotEqual(suite.T(), suite.deputy.ID, c.ID)
	}
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

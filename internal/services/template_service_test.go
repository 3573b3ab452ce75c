package services

import (
	"testing"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// TemplateServiceTestSuite defines the test suite for TemplateService
type TemplateServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TemplateService

	team   *models.Team
	patrol *models.Patrol
	deputy *models.User
	member *models.User
}

func (suite *TemplateServiceTestSuite) SetupTest() {
	suite.db = openTestDB(&suite.Suite)
	suite.service = NewTemplateService(repository.NewTemplateRepository(suite.db))

	district := &models.District{Name: "Test District"}
	suite.Require().NoError(suite.db.Create(district).Error)
	suite.team = &models.Team{Name: "1 Test Team", ShortName: "TT", DistrictID: district.ID}
	suite.Require().NoError(suite.db.Create(suite.team).Error)
	suite.patrol = &models.Patrol{Name: "Wolves", TeamID: &suite.team.ID}
	suite.Require().NoError(suite.db.Create(suite.patrol).Error)

	suite.deputy = suite.createUser("deputy@example.com", models.FunctionDeputyTeam)
	suite.member = suite.createUser("member@example.com", models.FunctionMember)
}

func (suite *TemplateServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TemplateServiceTestSuite) createUser(email string, function int) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     email,
		Function:     function,
		IsActive:     true,
		PatrolID:     &suite.patrol.ID,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	loaded := &models.User{}
	suite.Require().NoError(suite.db.Preload("Patrol.Team").First(loaded, user.ID).Error)
	return loaded
}

func (suite *TemplateServiceTestSuite) TestCreateGroupsAndTasks() {
	one := 1
	groupIdx := 0
	tpl, err := suite.service.Create(suite.deputy, SaveTemplateInput{
		Name:     "Scout rank",
		TeamOnly: true,
		Groups: []TemplateGroupInput{
			{Name: "Pick one", MinTasks: &one, MaxTasks: &one},
		},
		Tasks: []TemplateTaskInput{
			{Title: "Always included"},
			{Title: "Choice one", GroupIndex: &groupIdx},
		},
	})
	suite.Require().NoError(err)

	suite.Require().Len(tpl.TaskGroups, 1)
	suite.Require().Len(tpl.Tasks, 2)
	var grouped *models.TemplateTask
	for i := range tpl.Tasks {
		if tpl.Tasks[i].Title == "Choice one" {
			grouped = &tpl.Tasks[i]
		}
	}
	suite.Require().NotNil(grouped)
	suite.Require().NotNil(grouped.GroupID)
	assert.Equal(suite.T(), tpl.TaskGroups[0].ID, *grouped.GroupID)
	assert.Nil(suite.T(), tpl.Organization)
}

func (suite *TemplateServiceTestSuite) TestCreateDeniedBelowDeputyTeam() {
	_, err := suite.service.Create(suite.member, SaveTemplateInput{Name: "Scout rank"})
	assert.ErrorIs(suite.T(), err, ErrTemplatePermissionDenied)
}

func (suite *TemplateServiceTestSuite) TestCreateRejectsInvertedGroupBounds() {
	minTasks, maxTasks := 3, 1
	_, err := suite.service.Create(suite.deputy, SaveTemplateInput{
		Name:   "Scout rank",
		Groups: []TemplateGroupInput{{Name: "Bad", MinTasks: &minTasks, MaxTasks: &maxTasks}},
	})
	assert.ErrorIs(suite.T(), err, ErrTemplateGroupInvalid)
}

func (suite *TemplateServiceTestSuite) TestUpdateChangesAttributes() {
	tpl, err := suite.service.Create(suite.deputy, SaveTemplateInput{
		Name:     "Scout rank",
		Priority: 1,
	})
	suite.Require().NoError(err)

	name := "Senior scout rank"
	priority := 5
	updated, err := suite.service.Update(suite.deputy, tpl.ID, UpdateTemplateInput{
		Name:     &name,
		Priority: &priority,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Senior scout rank", updated.Name)
	assert.Equal(suite.T(), 5, updated.Priority)
	// Untouched fields survive a partial update.
	assert.Equal(suite.T(), tpl.Description, updated.Description)
}

func (suite *TemplateServiceTestSuite) TestUpdateRejectsEmptyName() {
	tpl, err := suite.service.Create(suite.deputy, SaveTemplateInput{Name: "Scout rank"})
	suite.Require().NoError(err)

	empty := ""
	_, err = suite.service.Update(suite.deputy, tpl.ID, UpdateTemplateInput{Name: &empty})
	assert.ErrorIs(suite.T(), err, ErrTemplateNameRequired)
}

func (suite *TemplateServiceTestSuite) TestUpdateDeniedForMember() {
	tpl, err := suite.service.Create(suite.deputy, SaveTemplateInput{Name: "Scout rank"})
	suite.Require().NoError(err)

	name := "Hijacked"
	_, err = suite.service.Update(suite.member, tpl.ID, UpdateTemplateInput{Name: &name})
	assert.ErrorIs(suite.T(), err, ErrTemplatePermissionDenied)
}

func (suite *TemplateServiceTestSuite) TestDeleteRemovesTemplateWithTasks() {
	tpl, err := suite.service.Create(suite.deputy, SaveTemplateInput{
		Name:  "Scout rank",
		Tasks: []TemplateTaskInput{{Title: "Tie knots"}},
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Delete(suite.deputy, tpl.ID))

	_, err = suite.service.Get(suite.deputy, tpl.ID)
	assert.ErrorIs(suite.T(), err, ErrTemplateNotFound)
	var taskCount int64
	suite.Require().NoError(suite.db.Model(&models.TemplateTask{}).
		Where("template_id = ?", tpl.ID).Count(&taskCount).Error)
	assert.Zero(suite.T(), taskCount)
}

func TestTemplateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TemplateServiceTestSuite))
}

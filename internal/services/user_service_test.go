package services

import (
	"testing"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/eproba/eproba-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// UserServiceTestSuite defines the test suite for UserService
type UserServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *UserService

	team   *models.Team
	patrol *models.Patrol
	member *models.User
	deputy *models.User
	leader *models.User
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.db = openTestDB(&suite.Suite)
	suite.service = NewUserService(
		repository.NewUserRepository(suite.db),
		permissions.NewEngine(permissions.ScopeTeam),
	)

	district := &models.District{Name: "Test District"}
	suite.Require().NoError(suite.db.Create(district).Error)
	suite.team = &models.Team{Name: "1 Test Team", ShortName: "TT", DistrictID: district.ID}
	suite.Require().NoError(suite.db.Create(suite.team).Error)
	suite.patrol = &models.Patrol{Name: "Wolves", TeamID: &suite.team.ID}
	suite.Require().NoError(suite.db.Create(suite.patrol).Error)

	suite.member = suite.createUser("member@example.com", models.FunctionMember)
	suite.deputy = suite.createUser("deputy@example.com", models.FunctionDeputyTeam)
	suite.leader = suite.createUser("leader@example.com", models.FunctionTeamLeader)
}

func (suite *UserServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *UserServiceTestSuite) createUser(email string, function int) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     email,
		Function:     function,
		IsActive:     true,
		IsStaff:      function >= models.FunctionTeamLeader,
		PatrolID:     &suite.patrol.ID,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	loaded := &models.User{}
	suite.Require().NoError(suite.db.Preload("Patrol.Team").First(loaded, user.ID).Error)
	return loaded
}

func (suite *UserServiceTestSuite) TestSelfProfileUpdate() {
	nickname := "Eagle"
	updated, err := suite.service.UpdateUser(suite.member, suite.member.ID, UpdateUserInput{
		Nickname: &nickname,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Eagle", updated.Nickname)
}

func (suite *UserServiceTestSuite) TestSelfCannotRaiseOwnFunction() {
	function := models.FunctionTeamLeader
	_, err := suite.service.UpdateUser(suite.member, suite.member.ID, UpdateUserInput{
		Function: &function,
	})
	assert.ErrorIs(suite.T(), err, ErrFunctionTooHigh)
}

func (suite *UserServiceTestSuite) TestManagerPromotesWithinOwnFunction() {
	function := models.FunctionPatrolLeader
	updated, err := suite.service.UpdateUser(suite.deputy, suite.member.ID, UpdateUserInput{
		Function: &function,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.FunctionPatrolLeader, updated.Function)
}

func (suite *UserServiceTestSuite) TestManagerCannotPromoteAboveOwnFunction() {
	function := models.FunctionTeamLeader
	_, err := suite.service.UpdateUser(suite.deputy, suite.member.ID, UpdateUserInput{
		Function: &function,
	})
	assert.ErrorIs(suite.T(), err, ErrFunctionTooHigh)
}

func (suite *UserServiceTestSuite) TestMemberCannotManageOthers() {
	rank := "młodzik"
	_, err := suite.service.UpdateUser(suite.member, suite.deputy.ID, UpdateUserInput{
		ScoutRank: &rank,
	})
	assert.ErrorIs(suite.T(), err, ErrUserPermissionDenied)
}

func (suite *UserServiceTestSuite) TestManagerCannotEditHigherFunction() {
	rank := "młodzik"
	_, err := suite.service.UpdateUser(suite.deputy, suite.leader.ID, UpdateUserInput{
		ScoutRank: &rank,
	})
	assert.ErrorIs(suite.T(), err, ErrUserPermissionDenied)
}

func (suite *UserServiceTestSuite) TestDeactivateResetsAccountState() {
	token := &models.AccessToken{UserID: suite.leader.ID, Token: "abc123"}
	suite.Require().NoError(suite.db.Create(token).Error)

	suite.Require().NoError(suite.service.DeactivateUser(suite.leader, suite.leader.ID))

	stored := &models.User{}
	suite.Require().NoError(suite.db.First(stored, suite.leader.ID).Error)
	assert.False(suite.T(), stored.IsActive)
	assert.False(suite.T(), stored.IsStaff)
	assert.Equal(suite.T(), models.FunctionMember, stored.Function)

	var tokenCount int64
	suite.Require().NoError(suite.db.Model(&models.AccessToken{}).
		Where("user_id = ?", suite.leader.ID).Count(&tokenCount).Error)
	assert.EqualValues(suite.T(), 0, tokenCount)
}

func (suite *UserServiceTestSuite) TestDeactivateOthersRequiresManagement() {
	err := suite.service.DeactivateUser(suite.member, suite.deputy.ID)
	assert.ErrorIs(suite.T(), err, ErrUserPermissionDenied)

	suite.Require().NoError(suite.service.DeactivateUser(suite.leader, suite.member.ID))
}

func (suite *UserServiceTestSuite) TestListTeamMembersScopedToOwnTeam() {
	params := utils.PaginationParams{Page: 1, Limit: 2, Offset: 0}
	members, total, err := suite.service.ListTeamMembers(suite.member, suite.team.ID, params)
	suite.Require().NoError(err)
	assert.Len(suite.T(), members, 2)
	assert.EqualValues(suite.T(), 3, total)

	params = utils.PaginationParams{Page: 2, Limit: 2, Offset: 2}
	members, total, err = suite.service.ListTeamMembers(suite.member, suite.team.ID, params)
	suite.Require().NoError(err)
	assert.Len(suite.T(), members, 1)
	assert.EqualValues(suite.T(), 3, total)

	_, _, err = suite.service.ListTeamMembers(suite.member, suite.team.ID+1, params)
	assert.ErrorIs(suite.T(), err, ErrUserPermissionDenied)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

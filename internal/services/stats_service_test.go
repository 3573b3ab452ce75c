package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// StatsServiceTestSuite defines the test suite for StatsService
type StatsServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *StatsService

	team    *models.Team
	wolves  *models.Patrol
	foxes   *models.Patrol
	deputy  *models.User
	members []*models.User
}

func (suite *StatsServiceTestSuite) SetupTest() {
	suite.db = openTestDB(&suite.Suite)
	suite.service = NewStatsService(
		repository.NewStatsRepository(suite.db),
		repository.NewTeamRepository(suite.db),
	)

	district := &models.District{Name: "Test District"}
	suite.Require().NoError(suite.db.Create(district).Error)
	suite.team = &models.Team{
		Name:         "1 Test Team",
		ShortName:    "TT",
		DistrictID:   district.ID,
		Organization: models.OrganizationFemale,
	}
	suite.Require().NoError(suite.db.Create(suite.team).Error)
	suite.wolves = suite.createPatrol("Wolves")
	suite.foxes = suite.createPatrol("Foxes")

	suite.deputy = suite.createUser("deputy@example.com", models.FunctionDeputyTeam, suite.wolves, "")
	suite.members = []*models.User{
		suite.createUser("a@example.com", models.FunctionMember, suite.wolves, "młodzik"),
		suite.createUser("b@example.com", models.FunctionMember, suite.wolves, "młodzik"),
		suite.createUser("c@example.com", models.FunctionPatrolLeader, suite.foxes, "wywiadowca"),
	}
}

func (suite *StatsServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *StatsServiceTestSuite) createPatrol(name string) *models.Patrol {
	patrol := &models.Patrol{Name: name, TeamID: &suite.team.ID}
	suite.Require().NoError(suite.db.Create(patrol).Error)
	return patrol
}

func (suite *StatsServiceTestSuite) createUser(email string, function int, patrol *models.Patrol, rank string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     email,
		Function:     function,
		IsActive:     true,
		PatrolID:     &patrol.ID,
		ScoutRank:    rank,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	loaded := &models.User{}
	suite.Require().NoError(suite.db.Preload("Patrol.Team").First(loaded, user.ID).Error)
	return loaded
}

// createWorksheet adds a worksheet with one approved task per approval
// date given plus `todo` unapproved tasks.
func (suite *StatsServiceTestSuite) createWorksheet(owner *models.User, todo int, approvals ...time.Time) *models.Worksheet {
	ws := &models.Worksheet{
		UserID:     owner.ID,
		Name:       "Worksheet",
		ShareToken: fmt.Sprintf("stats-%d-%d", owner.ID, time.Now().UnixNano()),
	}
	suite.Require().NoError(suite.db.Create(ws).Error)
	for i, at := range approvals {
		date := at
		task := &models.Task{
			WorksheetID:  ws.ID,
			Title:        fmt.Sprintf("Approved %d", i),
			Status:       models.TaskStatusApproved,
			ApproverID:   &suite.deputy.ID,
			ApprovalDate: &date,
		}
		suite.Require().NoError(suite.db.Create(task).Error)
	}
	for i := 0; i < todo; i++ {
		task := &models.Task{
			WorksheetID: ws.ID,
			Title:       fmt.Sprintf("Todo %d", i),
			Status:      models.TaskStatusTodo,
		}
		suite.Require().NoError(suite.db.Create(task).Error)
	}
	return ws
}

func (suite *StatsServiceTestSuite) TestPermissionDenied() {
	_, err := suite.service.TeamStatistics(suite.members[0], suite.team.ID)
	assert.ErrorIs(suite.T(), err, ErrStatsPermissionDenied)

	// Even a qualified actor only sees their own team.
	_, err = suite.service.TeamStatistics(suite.deputy, suite.team.ID+1)
	assert.ErrorIs(suite.T(), err, ErrStatsPermissionDenied)
}

func (suite *StatsServiceTestSuite) TestMemberAndWorksheetCounts() {
	now := time.Now()
	suite.createWorksheet(suite.members[0], 1, now)
	suite.createWorksheet(suite.members[1], 2)

	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), 4, stats.MemberCount)
	assert.Equal(suite.T(), 2, stats.WorksheetCount)
	// 50% and 0% average to 25.
	assert.InDelta(suite.T(), 25.0, stats.AverageCompletion, 0.01)
}

func (suite *StatsServiceTestSuite) TestAverageCompletionSkipsEmptyWorksheets() {
	now := time.Now()
	suite.createWorksheet(suite.members[0], 0, now)
	suite.createWorksheet(suite.members[1], 0)

	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)
	assert.InDelta(suite.T(), 100.0, stats.AverageCompletion, 0.01)
}

func (suite *StatsServiceTestSuite) TestFunctionHistogramUsesOrganizationLabels() {
	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	suite.Require().Len(stats.FunctionHistogram, 6)
	assert.Equal(suite.T(), "Szeregowa", stats.FunctionHistogram[0].Label)
	assert.Equal(suite.T(), 2, stats.FunctionHistogram[0].Count)
	assert.Equal(suite.T(), "Zastępowa", stats.FunctionHistogram[2].Label)
	assert.Equal(suite.T(), 1, stats.FunctionHistogram[2].Count)
	assert.Equal(suite.T(), "Przyboczna", stats.FunctionHistogram[3].Label)
	assert.Equal(suite.T(), 1, stats.FunctionHistogram[3].Count)
}

func (suite *StatsServiceTestSuite) TestRankHistogram() {
	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	suite.Require().Len(stats.RankHistogram, 3)
	assert.Equal(suite.T(), HistogramBucket{Label: "młodzik", Count: 2}, stats.RankHistogram[0])
	// Ties break alphabetically; the deputy has no rank recorded.
	assert.Equal(suite.T(), HistogramBucket{Label: "brak stopnia", Count: 1}, stats.RankHistogram[1])
	assert.Equal(suite.T(), HistogramBucket{Label: "wywiadowca", Count: 1}, stats.RankHistogram[2])
}

func (suite *StatsServiceTestSuite) TestActivityWindows() {
	now := time.Now()
	suite.createWorksheet(suite.members[0], 0,
		now.AddDate(0, 0, -2),
		now.AddDate(0, 0, -20))
	suite.createWorksheet(suite.members[1], 0,
		now.AddDate(0, 0, -60))

	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	suite.Require().Len(stats.Activity, 3)
	assert.Equal(suite.T(), ActivityWindow{Days: 7, TasksApproved: 1, ActiveMembers: 1}, stats.Activity[0])
	assert.Equal(suite.T(), ActivityWindow{Days: 30, TasksApproved: 2, ActiveMembers: 1}, stats.Activity[1])
	assert.Equal(suite.T(), ActivityWindow{Days: 90, TasksApproved: 3, ActiveMembers: 2}, stats.Activity[2])
}

func (suite *StatsServiceTestSuite) TestPatrolComparison() {
	now := time.Now()
	suite.createWorksheet(suite.members[0], 1, now) // Wolves, 50%
	suite.createWorksheet(suite.members[2], 0, now) // Foxes, 100%

	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	suite.Require().Len(stats.Patrols, 2)
	assert.Equal(suite.T(), "Foxes", stats.Patrols[0].Name)
	assert.Equal(suite.T(), 1, stats.Patrols[0].MemberCount)
	assert.InDelta(suite.T(), 100.0, stats.Patrols[0].AverageCompletion, 0.01)
	assert.Equal(suite.T(), "Wolves", stats.Patrols[1].Name)
	assert.Equal(suite.T(), 3, stats.Patrols[1].MemberCount)
	assert.InDelta(suite.T(), 50.0, stats.Patrols[1].AverageCompletion, 0.01)
}

func (suite *StatsServiceTestSuite) TestTopPerformersCountRecentApprovalsOnly() {
	now := time.Now()
	suite.createWorksheet(suite.members[0], 0,
		now.AddDate(0, 0, -1),
		now.AddDate(0, 0, -2),
		now.AddDate(0, 0, -120)) // outside the 90 day window
	suite.createWorksheet(suite.members[1], 0, now.AddDate(0, 0, -5))

	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	suite.Require().Len(stats.TopPerformers, 2)
	assert.Equal(suite.T(), suite.members[0].ID, stats.TopPerformers[0].UserID)
	assert.Equal(suite.T(), 2, stats.TopPerformers[0].TasksApproved)
	assert.Equal(suite.T(), suite.members[1].ID, stats.TopPerformers[1].UserID)
	assert.Equal(suite.T(), 1, stats.TopPerformers[1].TasksApproved)
}

func (suite *StatsServiceTestSuite) TestInactiveMembers() {
	now := time.Now()
	// members[0] is active, members[1] completed long ago, the rest never.
	suite.createWorksheet(suite.members[0], 0, now.AddDate(0, 0, -10))
	suite.createWorksheet(suite.members[1], 0, now.AddDate(0, 0, -120))

	stats, err := suite.service.TeamStatistics(suite.deputy, suite.team.ID)
	suite.Require().NoError(err)

	ids := make([]uint64, len(stats.InactiveMembers))
	for i, m := range stats.InactiveMembers {
		ids[i] = m.UserID
	}
	assert.NotContains(suite.T(), ids, suite.members[0].ID)
	assert.Contains(suite.T(), ids, suite.members[1].ID)
	assert.Contains(suite.T(), ids, suite.members[2].ID)
	assert.Contains(suite.T(), ids, suite.deputy.ID)

	// Members with a stale completion sort before members with none.
	assert.Equal(suite.T(), suite.members[1].ID, stats.InactiveMembers[0].UserID)
	assert.NotNil(suite.T(), stats.InactiveMembers[0].LastCompletion)
	assert.Nil(suite.T(), stats.InactiveMembers[1].LastCompletion)
}

func TestStatsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StatsServiceTestSuite))
}

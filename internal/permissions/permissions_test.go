package permissions

import (
	"testing"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PermissionsTestSuite struct {
	suite.Suite
	engine *Engine
}

func (suite *PermissionsTestSuite) SetupTest() {
	suite.engine = NewEngine(ScopeTeam)
}

func makeTeam(id uint64) *models.Team {
	return &models.Team{ID: id, Name: "Test Team"}
}

func makeUser(id uint64, function int, team *models.Team, patrolID uint64) *models.User {
	user := &models.User{
		ID:       id,
		Function: function,
		IsActive: true,
	}
	if team != nil {
		user.PatrolID = &patrolID
		user.Patrol = &models.Patrol{ID: patrolID, TeamID: &team.ID, Team: team}
	}
	return user
}

func worksheetFor(owner *models.User) *models.Worksheet {
	return &models.Worksheet{ID: 1, UserID: owner.ID, User: *owner}
}

func (suite *PermissionsTestSuite) TestOwnerCanReadAndManage() {
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionMember, team, 10)
	ws := worksheetFor(owner)

	assert.True(suite.T(), suite.engine.CanReadWorksheet(owner, ws))
	assert.True(suite.T(), suite.engine.CanManageWorksheet(owner, ws))
}

func (suite *PermissionsTestSuite) TestSupervisorCanReadAndManage() {
	team := makeTeam(1)
	otherTeam := makeTeam(2)
	owner := makeUser(1, models.FunctionMember, team, 10)
	supervisor := makeUser(2, models.FunctionMember, otherTeam, 20)
	ws := worksheetFor(owner)
	ws.SupervisorID = &supervisor.ID

	assert.True(suite.T(), suite.engine.CanReadWorksheet(supervisor, ws))
	assert.True(suite.T(), suite.engine.CanManageWorksheet(supervisor, ws))
}

func (suite *PermissionsTestSuite) TestPatrolLeaderReadsHigherFunctionOwner() {
	// A function=2 manager can read a function=3 member's worksheet in
	// the same team, even though they cannot manage it.
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionDeputyTeam, team, 10)
	reader := makeUser(2, models.FunctionPatrolLeader, team, 11)
	ws := worksheetFor(owner)

	assert.True(suite.T(), suite.engine.CanReadWorksheet(reader, ws))
	assert.False(suite.T(), suite.engine.CanManageWorksheet(reader, ws))
}

func (suite *PermissionsTestSuite) TestTeamLeaderManagesRegardlessOfOwnerFunction() {
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionHigherEchelon, team, 10)
	leader := makeUser(2, models.FunctionTeamLeader, team, 11)
	ws := worksheetFor(owner)

	assert.True(suite.T(), suite.engine.CanManageWorksheet(leader, ws))
}

func (suite *PermissionsTestSuite) TestMemberCannotReadOthers() {
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionMember, team, 10)
	member := makeUser(2, models.FunctionMember, team, 10)
	ws := worksheetFor(owner)

	assert.False(suite.T(), suite.engine.CanReadWorksheet(member, ws))
}

func (suite *PermissionsTestSuite) TestOtherTeamManagerCannotRead() {
	team := makeTeam(1)
	otherTeam := makeTeam(2)
	owner := makeUser(1, models.FunctionMember, team, 10)
	outsider := makeUser(2, models.FunctionTeamLeader, otherTeam, 20)
	ws := worksheetFor(owner)

	assert.False(suite.T(), suite.engine.CanReadWorksheet(outsider, ws))
	assert.False(suite.T(), suite.engine.CanManageWorksheet(outsider, ws))
}

func (suite *PermissionsTestSuite) TestNoPatrolMeansNoScope() {
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionMember, team, 10)
	floating := makeUser(2, models.FunctionTeamLeader, nil, 0)
	ws := worksheetFor(owner)

	assert.False(suite.T(), suite.engine.CanReadWorksheet(floating, ws))

	// And the other way round: a user outside any patrol is not
	// covered by team managers.
	orphan := makeUser(3, models.FunctionMember, nil, 0)
	leader := makeUser(4, models.FunctionTeamLeader, team, 11)
	assert.False(suite.T(), suite.engine.CanReadWorksheet(leader, worksheetFor(orphan)))
}

func (suite *PermissionsTestSuite) TestPatrolScopeRestrictsToOwnPatrol() {
	engine := NewEngine(ScopePatrol)
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionMember, team, 10)
	samePatrol := makeUser(2, models.FunctionPatrolLeader, team, 10)
	otherPatrol := makeUser(3, models.FunctionPatrolLeader, team, 11)
	ws := worksheetFor(owner)

	assert.True(suite.T(), engine.CanReadWorksheet(samePatrol, ws))
	assert.False(suite.T(), engine.CanReadWorksheet(otherPatrol, ws))
}

func (suite *PermissionsTestSuite) TestForceResolveRequiresRankAndParity() {
	team := makeTeam(1)
	ownerLow := makeUser(1, models.FunctionMember, team, 10)
	ownerHigh := makeUser(2, models.FunctionDeputyTeam, team, 10)
	patrolLeader := makeUser(3, models.FunctionPatrolLeader, team, 11)
	member := makeUser(4, models.FunctionMember, team, 11)

	assert.True(suite.T(), CanForceResolveTask(patrolLeader, worksheetFor(ownerLow)))
	assert.False(suite.T(), CanForceResolveTask(patrolLeader, worksheetFor(ownerHigh)))
	assert.False(suite.T(), CanForceResolveTask(member, worksheetFor(ownerLow)))
}

func (suite *PermissionsTestSuite) TestNotesHiddenFromOwner() {
	team := makeTeam(1)
	owner := makeUser(1, models.FunctionTeamLeader, team, 10)
	leader := makeUser(2, models.FunctionTeamLeader, team, 11)
	supervisor := makeUser(3, models.FunctionMember, team, 11)
	patrolLeader := makeUser(4, models.FunctionPatrolLeader, team, 11)

	ws := worksheetFor(owner)
	ws.SupervisorID = &supervisor.ID

	assert.False(suite.T(), CanReadWorksheetNotes(owner, ws))
	assert.True(suite.T(), CanReadWorksheetNotes(leader, ws))
	assert.True(suite.T(), CanReadWorksheetNotes(supervisor, ws))
	assert.False(suite.T(), CanReadWorksheetNotes(patrolLeader, ws))
}

func (suite *PermissionsTestSuite) TestDeputyManagesTeamOnlyWithoutTopLeader() {
	team := makeTeam(1)
	deputy := makeUser(1, models.FunctionDeputyTeam, team, 10)
	leader := makeUser(2, models.FunctionTeamLeader, team, 10)

	assert.True(suite.T(), suite.engine.CanManageTeam(deputy, team, false))
	assert.False(suite.T(), suite.engine.CanManageTeam(deputy, team, true))
	assert.True(suite.T(), suite.engine.CanManageTeam(leader, team, true))
}

func (suite *PermissionsTestSuite) TestManageUserRequiresRankOrdering() {
	team := makeTeam(1)
	deputy := makeUser(1, models.FunctionDeputyTeam, team, 10)
	member := makeUser(2, models.FunctionMember, team, 11)
	leader := makeUser(3, models.FunctionTeamLeader, team, 11)
	outsider := makeUser(4, models.FunctionMember, makeTeam(2), 20)

	assert.True(suite.T(), suite.engine.CanManageUser(deputy, member))
	assert.False(suite.T(), suite.engine.CanManageUser(deputy, leader))
	assert.False(suite.T(), suite.engine.CanManageUser(deputy, outsider))
	assert.False(suite.T(), suite.engine.CanManageUser(member, member))
}

func (suite *PermissionsTestSuite) TestManageUserRequiresTargetPatrol() {
	team := makeTeam(1)
	deputy := makeUser(1, models.FunctionDeputyTeam, team, 10)
	unassigned := makeUser(2, models.FunctionMember, nil, 0)

	assert.False(suite.T(), suite.engine.CanManageUser(deputy, unassigned))
}

func (suite *PermissionsTestSuite) TestTemplateVisibility() {
	team := makeTeam(1)
	team.Organization = models.OrganizationFemale
	user := makeUser(1, models.FunctionPatrolLeader, team, 10)

	teamID := team.ID
	ownTemplate := &models.TemplateWorksheet{TeamID: &teamID}
	otherTeamID := uint64(2)
	foreignTemplate := &models.TemplateWorksheet{TeamID: &otherTeamID}
	female := models.OrganizationFemale
	male := models.OrganizationMale
	orgTemplate := &models.TemplateWorksheet{Organization: &female}
	wrongOrgTemplate := &models.TemplateWorksheet{Organization: &male}

	assert.True(suite.T(), TemplateVisible(user, ownTemplate))
	assert.False(suite.T(), TemplateVisible(user, foreignTemplate))
	assert.True(suite.T(), TemplateVisible(user, orgTemplate))
	assert.False(suite.T(), TemplateVisible(user, wrongOrgTemplate))
}

func TestPermissionsTestSuite(t *testing.T) {
	suite.Run(t, new(PermissionsTestSuite))
}

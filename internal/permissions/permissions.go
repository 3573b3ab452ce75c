// Package permissions holds the authorization predicates for worksheets,
// tasks, teams, patrols and user profiles. Every predicate is a pure
// boolean over already-loaded models; facts that need a query (like
// "does the team already have a leader above function 3") are computed
// by the caller and passed in.
package permissions

import (
	"github.com/eproba/eproba-api/internal/models"
)

// Scope selects how tight the team-manager authorization path is.
// Historically both variants existed side by side; it is configurable
// until the product question is settled.
type Scope int

const (
	// ScopeTeam allows managers to act across their whole team.
	ScopeTeam Scope = iota
	// ScopePatrol restricts managers to their own patrol.
	ScopePatrol
)

type Engine struct {
	scope Scope
}

func NewEngine(scope Scope) *Engine {
	return &Engine{scope: scope}
}

// sameManagedScope reports whether the actor's unit covers the owner's,
// per the configured strictness level. Users outside any patrol share no
// managed scope with anyone.
func (e *Engine) sameManagedScope(actor, owner *models.User) bool {
	if actor.Patrol == nil || owner.Patrol == nil {
		return false
	}
	if e.scope == ScopePatrol {
		return actor.Patrol.ID == owner.Patrol.ID
	}
	actorTeam, ownerTeam := actor.Team(), owner.Team()
	return actorTeam != nil && ownerTeam != nil && actorTeam.ID == ownerTeam.ID
}

// CanReadWorksheet grants read to the owner, the supervisor, and any
// patrol leader or higher within the owner's scope.
func (e *Engine) CanReadWorksheet(actor *models.User, ws *models.Worksheet) bool {
	if IsWorksheetOwner(actor, ws) || IsWorksheetSupervisor(actor, ws) {
		return true
	}
	return actor.Function >= models.FunctionPatrolLeader && e.sameManagedScope(actor, &ws.User)
}

// CanManageWorksheet grants write to the owner, the supervisor, and
// managers within scope that outrank the owner. Team leaders and above
// are not subject to the owner-function comparison.
func (e *Engine) CanManageWorksheet(actor *models.User, ws *models.Worksheet) bool {
	if IsWorksheetOwner(actor, ws) || IsWorksheetSupervisor(actor, ws) {
		return true
	}
	return actor.Function >= models.FunctionPatrolLeader &&
		(actor.Function >= ws.User.Function || actor.Function >= models.FunctionTeamLeader) &&
		e.sameManagedScope(actor, &ws.User)
}

// CanReadTask and CanManageTask follow the parent worksheet.
func (e *Engine) CanReadTask(actor *models.User, ws *models.Worksheet) bool {
	return e.CanReadWorksheet(actor, ws)
}

func (e *Engine) CanManageTask(actor *models.User, ws *models.Worksheet) bool {
	return e.CanManageWorksheet(actor, ws)
}

// IsWorksheetOwner gates submit/unsubmit: only the worksheet's own user
// may send a task for review or withdraw it, regardless of function.
func IsWorksheetOwner(actor *models.User, ws *models.Worksheet) bool {
	return actor.ID == ws.UserID
}

func IsWorksheetSupervisor(actor *models.User, ws *models.Worksheet) bool {
	return ws.SupervisorID != nil && *ws.SupervisorID == actor.ID
}

// CanForceResolveTask gates the administrative force-accept/force-reject
// override: at least a patrol leader, and not below the owner.
func CanForceResolveTask(actor *models.User, ws *models.Worksheet) bool {
	return actor.Function >= models.FunctionPatrolLeader && actor.Function >= ws.User.Function
}

// CanReadWorksheetNotes hides manager notes from the worksheet owner.
func CanReadWorksheetNotes(actor *models.User, ws *models.Worksheet) bool {
	if IsWorksheetOwner(actor, ws) {
		return false
	}
	return actor.Function >= models.FunctionTeamLeader || IsWorksheetSupervisor(actor, ws)
}

// CanManageTeam requires a team leader, or a deputy when the team has no
// other active member above function 3 (the single-higher-authority
// rule: two peers never hold the top band without an explicit handoff).
// teamHasTopLeader is the precomputed "another active user in this team
// holds function > 3" fact.
func (e *Engine) CanManageTeam(actor *models.User, team *models.Team, teamHasTopLeader bool) bool {
	actorTeam := actor.Team()
	if actorTeam == nil || actorTeam.ID != team.ID {
		return false
	}
	if actor.Function >= models.FunctionTeamLeader {
		return true
	}
	return actor.Function >= models.FunctionDeputyTeam && !teamHasTopLeader
}

// CanManagePatrol requires at least a team deputy within the same team.
func (e *Engine) CanManagePatrol(actor *models.User, patrol *models.Patrol) bool {
	actorTeam := actor.Team()
	return actor.Function >= models.FunctionDeputyTeam &&
		actorTeam != nil && patrol.TeamID != nil && actorTeam.ID == *patrol.TeamID
}

// CanManageUser grants profile writes to team deputies and above who do
// not outrank themselves and share the target's team. Users outside any
// patrol are unmanageable until they join one.
func (e *Engine) CanManageUser(actor, target *models.User) bool {
	if actor.Function < models.FunctionDeputyTeam || actor.Function < target.Function {
		return false
	}
	if target.Patrol == nil {
		return false
	}
	actorTeam, targetTeam := actor.Team(), target.Team()
	return actorTeam != nil && targetTeam != nil && actorTeam.ID == targetTeam.ID
}

// MaxAssignableFunction caps function grants at the actor's own level.
func MaxAssignableFunction(actor *models.User) int {
	return actor.Function
}

// CanViewTeamStatistics requires at least a team deputy with a patrol
// assignment.
func CanViewTeamStatistics(actor *models.User) bool {
	return actor.Function >= models.FunctionDeputyTeam && actor.Patrol != nil
}

// CanReadTemplates requires a patrol and at least a patrol leader (or
// staff); managing templates requires a team deputy (or staff).
func CanReadTemplates(actor *models.User) bool {
	if actor.Patrol == nil {
		return false
	}
	return actor.Function >= models.FunctionPatrolLeader || actor.IsStaff
}

func CanManageTemplate(actor *models.User, tpl *models.TemplateWorksheet) bool {
	if actor.Patrol == nil {
		return false
	}
	actorTeam := actor.Team()
	if tpl.TeamID == nil {
		// Organization-wide templates are staff-managed.
		return actor.IsStaff
	}
	return actorTeam != nil && *tpl.TeamID == actorTeam.ID &&
		actor.Function >= models.FunctionDeputyTeam
}

// TemplateVisible reports whether a template belongs to the actor's team
// or to their team's organization.
func TemplateVisible(actor *models.User, tpl *models.TemplateWorksheet) bool {
	actorTeam := actor.Team()
	if actorTeam == nil {
		return false
	}
	if tpl.TeamID != nil {
		return *tpl.TeamID == actorTeam.ID
	}
	return tpl.Organization != nil && *tpl.Organization == actorTeam.Organization
}

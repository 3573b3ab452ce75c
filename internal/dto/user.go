package dto

import (
	"github.com/eproba/eproba-api/internal/models"
)

// UserSummaryDTO is the short user representation embedded in other
// responses
type UserSummaryDTO struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name"`
	Function    int    `json:"function"`
}

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                 uint64     `json:"id"`
	Email              string     `json:"email"`
	Nickname           string     `json:"nickname"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	DisplayName        string     `json:"display_name"`
	Function           int        `json:"function"`
	ScoutRank          string     `json:"scout_rank"`
	InstructorRank     string     `json:"instructor_rank"`
	EmailNotifications bool       `json:"email_notifications"`
	IsActive           bool       `json:"is_active"`
	PatrolID           *uint64    `json:"patrol_id"`
	Patrol             *PatrolDTO `json:"patrol,omitempty"`
}

// PatrolDTO represents a patrol in API responses
type PatrolDTO struct {
	ID     uint64   `json:"id"`
	Name   string   `json:"name"`
	TeamID *uint64  `json:"team_id"`
	Team   *TeamDTO `json:"team,omitempty"`
}

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID           uint64              `json:"id"`
	Name         string              `json:"name"`
	ShortName    string              `json:"short_name"`
	Organization models.Organization `json:"organization"`
	IsVerified   bool                `json:"is_verified"`
	District     *DistrictDTO        `json:"district,omitempty"`
	Patrols      []PatrolDTO         `json:"patrols,omitempty"`
}

// DistrictDTO represents a district in API responses
type DistrictDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:          user.ID,
		DisplayName: user.DisplayName(),
		Function:    user.Function,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:                 user.ID,
		Email:              user.Email,
		Nickname:           user.Nickname,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		DisplayName:        user.DisplayName(),
		Function:           user.Function,
		ScoutRank:          user.ScoutRank,
		InstructorRank:     user.InstructorRank,
		EmailNotifications: user.EmailNotifications,
		IsActive:           user.IsActive,
		PatrolID:           user.PatrolID,
	}
	if user.Patrol != nil {
		patrol := ToPatrolDTO(*user.Patrol)
		dto.Patrol = &patrol
	}
	return dto
}

// ToPatrolDTO converts a Patrol model to PatrolDTO
func ToPatrolDTO(patrol models.Patrol) PatrolDTO {
	dto := PatrolDTO{
		ID:     patrol.ID,
		Name:   patrol.Name,
		TeamID: patrol.TeamID,
	}
	if patrol.Team != nil {
		team := ToTeamDTO(*patrol.Team)
		dto.Team = &team
	}
	return dto
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team) TeamDTO {
	dto := TeamDTO{
		ID:           team.ID,
		Name:         team.Name,
		ShortName:    team.ShortName,
		Organization: team.Organization,
		IsVerified:   team.IsVerified,
	}
	if team.District.ID != 0 {
		dto.District = &DistrictDTO{ID: team.District.ID, Name: team.District.Name}
	}
	if len(team.Patrols) > 0 {
		dto.Patrols = make([]PatrolDTO, len(team.Patrols))
		for i, patrol := range team.Patrols {
			dto.Patrols[i] = PatrolDTO{ID: patrol.ID, Name: patrol.Name, TeamID: patrol.TeamID}
		}
	}
	return dto
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Function levels within a team hierarchy, lowest to highest.
const (
	FunctionMember        = 0
	FunctionDeputyPatrol  = 1
	FunctionPatrolLeader  = 2
	FunctionDeputyTeam    = 3
	FunctionTeamLeader    = 4
	FunctionHigherEchelon = 5
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Nickname     string         `gorm:"type:varchar(50)" json:"nickname"`
	FirstName    string         `gorm:"type:varchar(50)" json:"first_name"`
	LastName     string         `gorm:"type:varchar(50)" json:"last_name"`
	EmailVerified      bool     `gorm:"not null;default:false" json:"email_verified"`
	EmailNotifications bool     `gorm:"not null;default:true" json:"email_notifications"`
	IsStaff      bool           `gorm:"not null;default:false" json:"is_staff"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	PatrolID     *uint64        `gorm:"index" json:"patrol_id"`
	ScoutRank    string         `gorm:"type:varchar(50)" json:"scout_rank"`
	InstructorRank string       `gorm:"type:varchar(50)" json:"instructor_rank"`
	Function     int            `gorm:"not null;default:0" json:"function"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Patrol     *Patrol     `gorm:"foreignKey:PatrolID" json:"patrol,omitempty"`
	Worksheets []Worksheet `gorm:"foreignKey:UserID" json:"-"`
	Devices    []Device    `gorm:"foreignKey:UserID" json:"-"`
}

// DisplayName picks the friendliest available identifier.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// Team returns the user's team through their patrol, or nil when the user
// is outside any patrol (and therefore holds no team-scoped authority).
// Requires Patrol.Team to be preloaded.
func (u *User) Team() *Team {
	if u.Patrol == nil {
		return nil
	}
	return u.Patrol.Team
}

// TeamID returns the ID of the user's team, or 0 when unassigned.
func (u *User) TeamID() uint64 {
	if t := u.Team(); t != nil {
		return t.ID
	}
	return 0
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization selects the gendered rank-label tables. Presentational
// only, never used in authorization decisions.
type Organization int

const (
	OrganizationMale   Organization = 0
	OrganizationFemale Organization = 1
)

type District struct {
	ID   uint64 `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`

	// Relations
	Teams []Team `gorm:"foreignKey:DistrictID" json:"-"`
}

type Team struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(200);not null" json:"name"`
	ShortName    string         `gorm:"type:varchar(10);not null" json:"short_name"`
	DistrictID   uint64         `gorm:"not null;index" json:"district_id"`
	Organization Organization   `gorm:"not null;default:0" json:"organization"`
	IsVerified   bool           `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	District District `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	Patrols  []Patrol `gorm:"foreignKey:TeamID" json:"patrols,omitempty"`
}

type Patrol struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null" json:"name"`
	TeamID    *uint64        `gorm:"index" json:"team_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Team  *Team  `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Users []User `gorm:"foreignKey:PatrolID" json:"users,omitempty"`
}

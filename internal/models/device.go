package models

import (
	"time"

	"gorm.io/gorm"
)

// Device is a push notification target registered by a client app.
type Device struct {
	ID                uint64         `gorm:"primarykey" json:"id"`
	UserID            uint64         `gorm:"not null;index" json:"user_id"`
	RegistrationToken string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"registration_token"`
	CreatedAt         time.Time      `json:"created_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// AccessToken authenticates API clients outside the browser session.
// All of a user's tokens are removed when the account is deactivated.
type AccessToken struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Expired reports whether the token is past its expiry.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

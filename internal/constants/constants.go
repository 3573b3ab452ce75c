package constants

import "time"

// Version is the server version reported by the config endpoint.
const Version = "2.0.0"

// SessionCookieName is the cookie carrying the browser session.
const SessionCookieName = "eproba_session"

// Context/session keys
const (
	ContextKeyUserID      = "user_id"
	ContextKeyCurrentUser = "current_user"
	ContextKeyWorksheet   = "worksheet"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
	AccessTokenTTL    = 90 * 24 * time.Hour
)

// DeletedWorksheetRetention is how long a soft-deleted worksheet is kept
// before the sweep removes it permanently.
const DeletedWorksheetRetention = 30 * 24 * time.Hour

// MaxGeneratedTasks caps the number of AI-suggested tasks per request.
const MaxGeneratedTasks = 20

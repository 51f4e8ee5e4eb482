package constants

import "time"

// Context keys set by middleware and read by handlers
const (
	ContextKeyUserID  = "user_id"
	ContextKeyProject = "project"
	ContextKeyTask    = "task"
)

// Pagination bounds
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Password policy
const MinPasswordLength = 8

// Password recovery
const (
	ResetCodeLength = 6
	ResetCodeTTL    = 15 * time.Minute
)

// Dashboard defaults
const (
	DefaultDashboardLimit = 5
	MaxDashboardLimit     = 50
)

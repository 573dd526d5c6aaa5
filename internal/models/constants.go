package models

// Store keys. The persistence layer remembers the last JSON blob written
// under each of these; it knows nothing about the shapes inside.
const (
	KeyMenu    = "sharedMenu"
	KeyCart    = "orderItems"
	KeyHistory = "orderHistory"
)

// Roles applied at the presentation boundary. The core services are
// role-agnostic; only API keys carry a role.
const (
	RoleViewer  = "viewer"
	RoleManager = "manager"
)

const (
	ParseModeMarkdown = "Markdown"

	// DefaultNoticeLimit bounds how many recent status messages are kept
	// for the presentation layer.
	DefaultNoticeLimit = 50

	// MaxImageSizeBytes limits dish image uploads.
	MaxImageSizeBytes = 10 * 1024 * 1024
)

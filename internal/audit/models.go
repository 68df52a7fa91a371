package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the closed enumeration of logged user actions.
type Action string

const (
	ActionLogin            Action = "login"
	ActionLogout           Action = "logout"
	ActionRegister         Action = "register"
	ActionUploadDocument   Action = "upload_document"
	ActionUpdateDocument   Action = "update_document"
	ActionDeleteDocument   Action = "delete_document"
	ActionShareDocument    Action = "share_document"
	ActionViewDocument     Action = "view_document"
	ActionDownloadDocument Action = "download_document"
	ActionProfileUpdate    Action = "profile_update"
	ActionOTPGenerated     Action = "otp_generated"
	ActionOTPVerified      Action = "otp_verified"
)

// Resource types an entry may reference.
const (
	ResourceUser     = "user"
	ResourceDocument = "document"
	ResourceAuth     = "auth"
)

// Entry is one append-only audit record. Entries are never updated or deleted
// by normal operation; the timestamp is assigned server-side at write time.
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"userId"`
	Action       Action         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   *uuid.UUID     `json:"resourceId,omitempty"`
	Detail       map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Filter narrows admin log listings. Zero values mean "any".
type Filter struct {
	Action Action
	UserID uuid.UUID
	From   time.Time
	To     time.Time
	Page   int
	Limit  int
}

// ActionStat aggregates one action's occurrences.
type ActionStat struct {
	Action       Action    `json:"action"`
	Count        int       `json:"count"`
	LastOccurred time.Time `json:"lastOccurred"`
}

// Stats summarizes the whole log for the admin dashboard.
type Stats struct {
	TotalEntries  int          `json:"totalLogs"`
	DistinctUsers int          `json:"totalUsers"`
	Actions       []ActionStat `json:"actionStats"`
}

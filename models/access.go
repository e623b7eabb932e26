package models

import (
	"time"
)

type AccessAction string

const (
	ActionEnter  AccessAction = "enter"
	ActionExit   AccessAction = "exit"
	ActionDenied AccessAction = "denied"
)

type TargetType string

const (
	TargetFacility TargetType = "facility"
	TargetEvent    TargetType = "event"
)

// AccessIdentity links a physical card to a platform user. Revocation
// clears CardID but keeps the row so old audit entries still resolve.
type AccessIdentity struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	CardID   string    `json:"card_id"`
	CardHash string    `json:"card_hash"`
	IsActive bool      `json:"is_active"`
	IssuedAt time.Time `json:"issued_at"`
}

func (i *AccessIdentity) Revoked() bool {
	return i == nil || i.CardID == "" || !i.IsActive
}

// AccessEvent is one row of the append-only scan log. Rows are never
// mutated or deleted; denied scans are logged too.
type AccessEvent struct {
	ID              string       `json:"id"`
	IdentityID      string       `json:"identity_id,omitempty"`
	CardHash        string       `json:"card_hash"`
	TargetType      TargetType   `json:"target_type"`
	TargetID        string       `json:"target_id"`
	Action          AccessAction `json:"action"`
	Success         bool         `json:"success"`
	Reason          string       `json:"reason,omitempty"`
	SessionID       string       `json:"session_id,omitempty"`
	DurationSeconds int64        `json:"duration_seconds,omitempty"`
	ScannedAt       time.Time    `json:"scanned_at"`
}

// AccessEventFilter narrows audit-log listings.
type AccessEventFilter struct {
	TargetType TargetType
	TargetID   string
	IdentityID string
	Limit      int
	Offset     int
}

type ScanRequest struct {
	CardID     string `json:"card_id"`
	FacilityID string `json:"facility_id"`
	// Timestamp is the device scan time as unix seconds. Zero means
	// "use server time".
	Timestamp int64 `json:"timestamp"`
}

type AttendanceScanRequest struct {
	CardID    string `json:"card_id"`
	EventSlug string `json:"event_slug"`
	Timestamp int64  `json:"timestamp"`
}

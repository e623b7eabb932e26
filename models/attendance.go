package models

import (
	"time"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventEnded     EventStatus = "ended"
)

type Event struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Slug                  string      `json:"slug"`
	StartAt               time.Time   `json:"start_at"`
	EndAt                 time.Time   `json:"end_at"`
	MinAttendanceMinutes  int         `json:"min_attendance_minutes"`
	Status                EventStatus `json:"status"`
}

// Attendee is one (event, identity) registration. TotalSeconds and
// IsEligible are only touched when a session closes.
type Attendee struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	IdentityID   string    `json:"identity_id"`
	RegisteredAt time.Time `json:"registered_at"`
	TotalSeconds int64     `json:"total_seconds"`
	IsEligible   bool      `json:"is_eligible"`
}

func (a *Attendee) TotalMinutes() int64 {
	return a.TotalSeconds / 60
}

// AttendanceSession is a bounded presence interval. ExitedAt stays zero
// while the session is open; at most one open session exists per
// attendee at any time.
type AttendanceSession struct {
	ID              string    `json:"id"`
	AttendeeID      string    `json:"attendee_id"`
	EnteredAt       time.Time `json:"entered_at"`
	ExitedAt        time.Time `json:"exited_at,omitempty"`
	DurationSeconds int64     `json:"duration_seconds"`
}

func (s *AttendanceSession) Open() bool {
	return s != nil && s.ExitedAt.IsZero()
}

type AttendanceAction string

const (
	AttendanceCheckedIn  AttendanceAction = "checked-in"
	AttendanceCheckedOut AttendanceAction = "checked-out"
)

// ToggleResult is the response of an event attendance scan.
type ToggleResult struct {
	Action       AttendanceAction `json:"action"`
	SessionID    string           `json:"session_id"`
	TotalSeconds int64            `json:"total_seconds"`
	TotalMinutes int64            `json:"total_minutes"`
	IsEligible   bool             `json:"is_eligible"`
}

// AttendanceStatus is the read model for one attendee's standing.
type AttendanceStatus struct {
	EventSlug    string               `json:"event_slug"`
	Username     string               `json:"username"`
	TotalSeconds int64                `json:"total_seconds"`
	TotalMinutes int64                `json:"total_minutes"`
	IsEligible   bool                 `json:"is_eligible"`
	OpenSession  *AttendanceSession   `json:"open_session,omitempty"`
	Sessions     []*AttendanceSession `json:"sessions"`
}

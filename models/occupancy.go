package models

import (
	"time"
)

type Facility struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Capacity int    `json:"capacity"`
	IsActive bool   `json:"is_active"`
}

// PresenceState is the per (identity, target) toggle machine. A scan is
// the only transition: OUT becomes IN (enter), IN becomes OUT (exit).
type PresenceState int

const (
	PresenceOut PresenceState = iota
	PresenceIn
)

func (s PresenceState) Toggle() (PresenceState, AccessAction) {
	if s == PresenceIn {
		return PresenceOut, ActionExit
	}
	return PresenceIn, ActionEnter
}

func (s PresenceState) String() string {
	if s == PresenceIn {
		return "in"
	}
	return "out"
}

// ActiveSession is one occupant currently inside a facility.
type ActiveSession struct {
	IdentityID string    `json:"identity_id"`
	Username   string    `json:"username"`
	SessionID  string    `json:"session_id"`
	EnteredAt  time.Time `json:"entered_at"`
}

// OccupancySnapshot is the denormalized current-state projection of a
// facility, derived from the access-event log. Invariant:
// Current == len(ActiveSessions) and no identity appears twice.
type OccupancySnapshot struct {
	ID             string          `json:"id"`
	FacilityID     string          `json:"facility_id"`
	Current        int             `json:"current"`
	ActiveSessions []ActiveSession `json:"active_sessions"`
	LastScanAt     time.Time       `json:"last_scan_at"`
}

// FindSession returns the index of the identity's active session, or -1.
func (s *OccupancySnapshot) FindSession(identityID string) int {
	for i, sess := range s.ActiveSessions {
		if sess.IdentityID == identityID {
			return i
		}
	}
	return -1
}

// State reports the presence state of an identity at this facility.
func (s *OccupancySnapshot) State(identityID string) PresenceState {
	if s.FindSession(identityID) >= 0 {
		return PresenceIn
	}
	return PresenceOut
}

// ScanResult is the response of a facility scan.
type ScanResult struct {
	Action          AccessAction     `json:"action"`
	Occupancy       *OccupancyStatus `json:"occupancy"`
	AccessEvent     *AccessEvent     `json:"access_event"`
	SessionID       string           `json:"session_id"`
	DurationSeconds int64            `json:"duration_seconds,omitempty"`
}

// OccupancyStatus is the read model returned by occupancy queries.
type OccupancyStatus struct {
	FacilityID     string          `json:"facility_id"`
	Current        int             `json:"current"`
	Max            int             `json:"max"`
	Available      int             `json:"available"`
	Percentage     float64         `json:"percentage"`
	ActiveSessions []ActiveSession `json:"active_sessions"`
	LastScanAt     time.Time       `json:"last_scan_at"`
}

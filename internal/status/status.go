package status

import "errors"

// Scan and attendance failures. Every error here is terminal for the
// current request; retrying a scan is up to the device or the UI.
var (
	ErrUnknownCard       = errors.New("scan: unknown card")
	ErrFacilityNotFound  = errors.New("facility: facility not found")
	ErrFacilityInactive  = errors.New("facility: facility is not active")
	ErrCapacityExceeded  = errors.New("facility: capacity exceeded")
	ErrEventNotFound     = errors.New("event: event not found")
	ErrNotRegistered     = errors.New("attendance: not registered for event")
	ErrClockSkew         = errors.New("attendance: exit timestamp before entry")
	ErrAttendeeNotFound  = errors.New("attendance: attendee not found")
	ErrCardAlreadyIssued = errors.New("identity: card already issued")
	ErrIdentityNotFound  = errors.New("identity: identity not found")
)

// Reason strings recorded on denied access events.
const (
	ReasonUnknownCard      = "unknown_card"
	ReasonFacilityNotFound = "facility_not_found"
	ReasonFacilityInactive = "facility_inactive"
	ReasonCapacityExceeded = "capacity_exceeded"
	ReasonEventNotFound    = "event_not_found"
	ReasonNotRegistered    = "not_registered"
	ReasonClockSkew        = "clock_skew"
)

// Reason returns the audit-log reason string for a scan failure, or ""
// when the error is not part of the scan taxonomy.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCard):
		return ReasonUnknownCard
	case errors.Is(err, ErrFacilityNotFound):
		return ReasonFacilityNotFound
	case errors.Is(err, ErrFacilityInactive):
		return ReasonFacilityInactive
	case errors.Is(err, ErrCapacityExceeded):
		return ReasonCapacityExceeded
	case errors.Is(err, ErrEventNotFound):
		return ReasonEventNotFound
	case errors.Is(err, ErrNotRegistered):
		return ReasonNotRegistered
	case errors.Is(err, ErrClockSkew):
		return ReasonClockSkew
	}
	return ""
}

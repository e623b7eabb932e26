package store

import (
	"context"
	"errors"

	"community-system/models"
)

// ErrNotFound is returned by lookups when no row matches. Services map
// it onto the request-level error taxonomy.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface of the occupancy ledger and the
// attendance accumulator. The production implementation wraps the
// PocketBase DAO; the memory implementation backs tests.
type Store interface {
	// Identities.
	FindIdentityByCard(ctx context.Context, cardID string) (*models.AccessIdentity, error)
	FindIdentityByUsername(ctx context.Context, username string) (*models.AccessIdentity, error)
	SaveIdentity(ctx context.Context, identity *models.AccessIdentity) error

	// Facilities and events.
	FindFacility(ctx context.Context, id string) (*models.Facility, error)
	FindEventBySlug(ctx context.Context, slug string) (*models.Event, error)

	// Occupancy snapshot projection. GetSnapshot returns ErrNotFound
	// before the facility's first scan.
	GetSnapshot(ctx context.Context, facilityID string) (*models.OccupancySnapshot, error)
	SaveSnapshot(ctx context.Context, snap *models.OccupancySnapshot) error

	// Append-only audit log.
	AppendAccessEvent(ctx context.Context, event *models.AccessEvent) error
	ListAccessEvents(ctx context.Context, filter models.AccessEventFilter) ([]*models.AccessEvent, error)

	// Attendance.
	FindAttendee(ctx context.Context, eventID, identityID string) (*models.Attendee, error)
	SaveAttendee(ctx context.Context, attendee *models.Attendee) error
	DeleteAttendee(ctx context.Context, attendeeID string) error
	FindOpenSession(ctx context.Context, attendeeID string) (*models.AttendanceSession, error)
	ListSessions(ctx context.Context, attendeeID string) ([]*models.AttendanceSession, error)
	SaveSession(ctx context.Context, session *models.AttendanceSession) error
	DeleteSessions(ctx context.Context, attendeeID string) error
	SumClosedSessionSeconds(ctx context.Context, attendeeID string) (int64, error)

	// RunInTransaction executes fn against a transactional view of the
	// store. The scan operations are single read-modify-write
	// transactions; conflict detection and linearization are the
	// storage engine's job, not the application's.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
}

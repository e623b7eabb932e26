package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"community-system/models"
)

// Collection names, kept in sync with the migrations.
const (
	colIdentities = "access_identities"
	colFacilities = "facilities"
	colEvents     = "events"
	colSnapshots  = "occupancy_snapshots"
	colAccessLog  = "access_events"
	colAttendees  = "attendees"
	colSessions   = "attendance_sessions"
)

// PBStore implements Store on top of the PocketBase DAO. Mutations made
// through RunInTransaction ride on PocketBase's SQLite transaction, so
// concurrent scans against the same facility or attendee are linearized
// by the storage engine rather than by application locking.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) RunInTransaction(_ context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PBStore{app: txApp})
	})
}

func wrapLookup(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PBStore) FindIdentityByCard(_ context.Context, cardID string) (*models.AccessIdentity, error) {
	r, err := s.app.FindFirstRecordByFilter(
		colIdentities,
		"card_id = {:card} && card_id != ''",
		dbx.Params{"card": cardID},
	)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return identityFromRecord(r), nil
}

func (s *PBStore) FindIdentityByUsername(_ context.Context, username string) (*models.AccessIdentity, error) {
	r, err := s.app.FindFirstRecordByFilter(
		colIdentities,
		"username = {:username}",
		dbx.Params{"username": username},
	)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return identityFromRecord(r), nil
}

func (s *PBStore) SaveIdentity(_ context.Context, identity *models.AccessIdentity) error {
	r, err := s.findOrNewRecord(colIdentities, identity.ID)
	if err != nil {
		return err
	}
	r.Set("user", identity.UserID)
	r.Set("username", identity.Username)
	r.Set("card_id", identity.CardID)
	r.Set("card_hash", identity.CardHash)
	r.Set("is_active", identity.IsActive)
	r.Set("issued_at", identity.IssuedAt)
	if err := s.app.Save(r); err != nil {
		return err
	}
	identity.ID = r.Id
	return nil
}

func (s *PBStore) FindFacility(_ context.Context, id string) (*models.Facility, error) {
	r, err := s.app.FindRecordById(colFacilities, id)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return &models.Facility{
		ID:       r.Id,
		Name:     r.GetString("name"),
		Slug:     r.GetString("slug"),
		Capacity: r.GetInt("capacity"),
		IsActive: r.GetBool("is_active"),
	}, nil
}

func (s *PBStore) FindEventBySlug(_ context.Context, slug string) (*models.Event, error) {
	r, err := s.app.FindFirstRecordByFilter(colEvents, "slug = {:slug}", dbx.Params{"slug": slug})
	if err != nil {
		return nil, wrapLookup(err)
	}
	return &models.Event{
		ID:                   r.Id,
		Name:                 r.GetString("name"),
		Slug:                 r.GetString("slug"),
		StartAt:              r.GetDateTime("start_at").Time(),
		EndAt:                r.GetDateTime("end_at").Time(),
		MinAttendanceMinutes: r.GetInt("min_attendance_minutes"),
		Status:               models.EventStatus(r.GetString("status")),
	}, nil
}

func (s *PBStore) GetSnapshot(_ context.Context, facilityID string) (*models.OccupancySnapshot, error) {
	r, err := s.app.FindFirstRecordByFilter(colSnapshots, "facility = {:facility}", dbx.Params{"facility": facilityID})
	if err != nil {
		return nil, wrapLookup(err)
	}
	snap := &models.OccupancySnapshot{
		ID:         r.Id,
		FacilityID: r.GetString("facility"),
		Current:    r.GetInt("current"),
		LastScanAt: r.GetDateTime("last_scan_at").Time(),
	}
	if err := r.UnmarshalJSONField("active_sessions", &snap.ActiveSessions); err != nil {
		return nil, fmt.Errorf("decode active_sessions for %s: %w", facilityID, err)
	}
	return snap, nil
}

func (s *PBStore) SaveSnapshot(_ context.Context, snap *models.OccupancySnapshot) error {
	r, err := s.findOrNewRecord(colSnapshots, snap.ID)
	if err != nil {
		return err
	}
	sessions := snap.ActiveSessions
	if sessions == nil {
		sessions = []models.ActiveSession{}
	}
	r.Set("facility", snap.FacilityID)
	r.Set("current", snap.Current)
	r.Set("active_sessions", sessions)
	r.Set("last_scan_at", snap.LastScanAt)
	if err := s.app.Save(r); err != nil {
		return err
	}
	snap.ID = r.Id
	return nil
}

func (s *PBStore) AppendAccessEvent(_ context.Context, event *models.AccessEvent) error {
	col, err := s.app.FindCollectionByNameOrId(colAccessLog)
	if err != nil {
		return err
	}
	r := core.NewRecord(col)
	r.Set("identity", event.IdentityID)
	r.Set("card_hash", event.CardHash)
	r.Set("target_type", string(event.TargetType))
	r.Set("target_id", event.TargetID)
	r.Set("action", string(event.Action))
	r.Set("success", event.Success)
	r.Set("reason", event.Reason)
	r.Set("session_id", event.SessionID)
	r.Set("duration_seconds", event.DurationSeconds)
	r.Set("scanned_at", event.ScannedAt)
	if err := s.app.Save(r); err != nil {
		return err
	}
	event.ID = r.Id
	return nil
}

func (s *PBStore) ListAccessEvents(_ context.Context, filter models.AccessEventFilter) ([]*models.AccessEvent, error) {
	conditions := []string{}
	params := dbx.Params{}
	if filter.TargetType != "" {
		conditions = append(conditions, "target_type = {:targetType}")
		params["targetType"] = string(filter.TargetType)
	}
	if filter.TargetID != "" {
		conditions = append(conditions, "target_id = {:targetId}")
		params["targetId"] = filter.TargetID
	}
	if filter.IdentityID != "" {
		conditions = append(conditions, "identity = {:identity}")
		params["identity"] = filter.IdentityID
	}
	expr := "id != ''"
	if len(conditions) > 0 {
		expr = strings.Join(conditions, " && ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	records, err := s.app.FindRecordsByFilter(colAccessLog, expr, "-scanned_at", limit, filter.Offset, params)
	if err != nil {
		return nil, err
	}
	events := make([]*models.AccessEvent, 0, len(records))
	for _, r := range records {
		events = append(events, &models.AccessEvent{
			ID:              r.Id,
			IdentityID:      r.GetString("identity"),
			CardHash:        r.GetString("card_hash"),
			TargetType:      models.TargetType(r.GetString("target_type")),
			TargetID:        r.GetString("target_id"),
			Action:          models.AccessAction(r.GetString("action")),
			Success:         r.GetBool("success"),
			Reason:          r.GetString("reason"),
			SessionID:       r.GetString("session_id"),
			DurationSeconds: int64(r.GetInt("duration_seconds")),
			ScannedAt:       r.GetDateTime("scanned_at").Time(),
		})
	}
	return events, nil
}

func (s *PBStore) FindAttendee(_ context.Context, eventID, identityID string) (*models.Attendee, error) {
	r, err := s.app.FindFirstRecordByFilter(
		colAttendees,
		"event = {:event} && identity = {:identity}",
		dbx.Params{"event": eventID, "identity": identityID},
	)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return attendeeFromRecord(r), nil
}

func (s *PBStore) SaveAttendee(_ context.Context, attendee *models.Attendee) error {
	r, err := s.findOrNewRecord(colAttendees, attendee.ID)
	if err != nil {
		return err
	}
	r.Set("event", attendee.EventID)
	r.Set("identity", attendee.IdentityID)
	r.Set("registered_at", attendee.RegisteredAt)
	r.Set("total_seconds", attendee.TotalSeconds)
	r.Set("is_eligible", attendee.IsEligible)
	if err := s.app.Save(r); err != nil {
		return err
	}
	attendee.ID = r.Id
	return nil
}

func (s *PBStore) DeleteAttendee(_ context.Context, attendeeID string) error {
	r, err := s.app.FindRecordById(colAttendees, attendeeID)
	if err != nil {
		return wrapLookup(err)
	}
	return s.app.Delete(r)
}

func (s *PBStore) FindOpenSession(_ context.Context, attendeeID string) (*models.AttendanceSession, error) {
	r, err := s.app.FindFirstRecordByFilter(
		colSessions,
		"attendee = {:attendee} && exited_at = ''",
		dbx.Params{"attendee": attendeeID},
	)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return sessionFromRecord(r), nil
}

func (s *PBStore) ListSessions(_ context.Context, attendeeID string) ([]*models.AttendanceSession, error) {
	records, err := s.app.FindRecordsByFilter(
		colSessions,
		"attendee = {:attendee}",
		"entered_at",
		0,
		0,
		dbx.Params{"attendee": attendeeID},
	)
	if err != nil {
		return nil, err
	}
	sessions := make([]*models.AttendanceSession, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, sessionFromRecord(r))
	}
	return sessions, nil
}

func (s *PBStore) SaveSession(_ context.Context, session *models.AttendanceSession) error {
	r, err := s.findOrNewRecord(colSessions, session.ID)
	if err != nil {
		return err
	}
	r.Set("attendee", session.AttendeeID)
	r.Set("entered_at", session.EnteredAt)
	if session.ExitedAt.IsZero() {
		r.Set("exited_at", "")
	} else {
		r.Set("exited_at", session.ExitedAt)
	}
	r.Set("duration_seconds", session.DurationSeconds)
	if err := s.app.Save(r); err != nil {
		return err
	}
	session.ID = r.Id
	return nil
}

func (s *PBStore) DeleteSessions(_ context.Context, attendeeID string) error {
	records, err := s.app.FindRecordsByFilter(
		colSessions,
		"attendee = {:attendee}",
		"",
		0,
		0,
		dbx.Params{"attendee": attendeeID},
	)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := s.app.Delete(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *PBStore) SumClosedSessionSeconds(_ context.Context, attendeeID string) (int64, error) {
	var total int64
	err := s.app.DB().
		Select("COALESCE(SUM(duration_seconds), 0)").
		From(colSessions).
		Where(dbx.HashExp{"attendee": attendeeID}).
		AndWhere(dbx.NewExp("exited_at != ''")).
		Row(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *PBStore) findOrNewRecord(collection, id string) (*core.Record, error) {
	if id != "" {
		r, err := s.app.FindRecordById(collection, id)
		return r, wrapLookup(err)
	}
	col, err := s.app.FindCollectionByNameOrId(collection)
	if err != nil {
		return nil, err
	}
	return core.NewRecord(col), nil
}

func identityFromRecord(r *core.Record) *models.AccessIdentity {
	return &models.AccessIdentity{
		ID:       r.Id,
		UserID:   r.GetString("user"),
		Username: r.GetString("username"),
		CardID:   r.GetString("card_id"),
		CardHash: r.GetString("card_hash"),
		IsActive: r.GetBool("is_active"),
		IssuedAt: r.GetDateTime("issued_at").Time(),
	}
}

func attendeeFromRecord(r *core.Record) *models.Attendee {
	return &models.Attendee{
		ID:           r.Id,
		EventID:      r.GetString("event"),
		IdentityID:   r.GetString("identity"),
		RegisteredAt: r.GetDateTime("registered_at").Time(),
		TotalSeconds: int64(r.GetInt("total_seconds")),
		IsEligible:   r.GetBool("is_eligible"),
	}
}

func sessionFromRecord(r *core.Record) *models.AttendanceSession {
	return &models.AttendanceSession{
		ID:              r.Id,
		AttendeeID:      r.GetString("attendee"),
		EnteredAt:       r.GetDateTime("entered_at").Time(),
		ExitedAt:        r.GetDateTime("exited_at").Time(),
		DurationSeconds: int64(r.GetInt("duration_seconds")),
	}
}

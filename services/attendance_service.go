package services

import (
	"context"
	"errors"
	"time"

	"community-system/internal/status"
	"community-system/models"
	"community-system/monitoring"
	"community-system/store"
)

// AttendanceService is the attendance accumulator: it toggles open
// sessions per (event, attendee) pair and keeps the cumulative duration
// and eligibility flag in step with the closed sessions.
type AttendanceService struct {
	store    store.Store
	realtime *RealtimeService
	monitor  *monitoring.Monitor
}

func NewAttendanceService(st store.Store, realtime *RealtimeService, monitor *monitoring.Monitor) *AttendanceService {
	return &AttendanceService{
		store:    st,
		realtime: realtime,
		monitor:  monitor,
	}
}

// ToggleSession checks the card holder in or out of an event. A scan
// while a session is open always closes it; there is never more than
// one open session per attendee. Denied scans commit only an audit row.
func (s *AttendanceService) ToggleSession(ctx context.Context, cardID, eventSlug string, ts int64) (*models.ToggleResult, error) {
	scannedAt := scanTime(ts)

	var (
		result   *models.ToggleResult
		username string
		denyErr  error
	)

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		deny := func(identityID, cardHash, targetID string, failure error) error {
			denyErr = failure
			return tx.AppendAccessEvent(ctx, &models.AccessEvent{
				IdentityID: identityID,
				CardHash:   cardHash,
				TargetType: models.TargetEvent,
				TargetID:   targetID,
				Action:     models.ActionDenied,
				Success:    false,
				Reason:     status.Reason(failure),
				ScannedAt:  scannedAt,
			})
		}

		identity, err := tx.FindIdentityByCard(ctx, cardID)
		if errors.Is(err, store.ErrNotFound) {
			return deny("", "", eventSlug, status.ErrUnknownCard)
		}
		if err != nil {
			return err
		}
		if identity.Revoked() {
			return deny(identity.ID, identity.CardHash, eventSlug, status.ErrUnknownCard)
		}
		username = identity.Username

		event, err := tx.FindEventBySlug(ctx, eventSlug)
		if errors.Is(err, store.ErrNotFound) {
			return deny(identity.ID, identity.CardHash, eventSlug, status.ErrEventNotFound)
		}
		if err != nil {
			return err
		}

		attendee, err := tx.FindAttendee(ctx, event.ID, identity.ID)
		if errors.Is(err, store.ErrNotFound) {
			return deny(identity.ID, identity.CardHash, event.ID, status.ErrNotRegistered)
		}
		if err != nil {
			return err
		}

		audit := &models.AccessEvent{
			IdentityID: identity.ID,
			CardHash:   identity.CardHash,
			TargetType: models.TargetEvent,
			TargetID:   event.ID,
			Success:    true,
			ScannedAt:  scannedAt,
		}

		open, err := tx.FindOpenSession(ctx, attendee.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Check-in: open a new session.
			session := &models.AttendanceSession{
				AttendeeID: attendee.ID,
				EnteredAt:  scannedAt,
			}
			if err := tx.SaveSession(ctx, session); err != nil {
				return err
			}
			audit.Action = models.ActionEnter
			audit.SessionID = session.ID
			if err := tx.AppendAccessEvent(ctx, audit); err != nil {
				return err
			}
			result = &models.ToggleResult{
				Action:       models.AttendanceCheckedIn,
				SessionID:    session.ID,
				TotalSeconds: attendee.TotalSeconds,
				TotalMinutes: attendee.TotalMinutes(),
				IsEligible:   attendee.IsEligible,
			}
			return nil
		}
		if err != nil {
			return err
		}

		// Check-out: close the open session.
		if scannedAt.Before(open.EnteredAt) {
			return deny(identity.ID, identity.CardHash, event.ID, status.ErrClockSkew)
		}

		duration := int64(scannedAt.Sub(open.EnteredAt).Seconds())
		open.ExitedAt = scannedAt
		open.DurationSeconds = duration
		if err := tx.SaveSession(ctx, open); err != nil {
			return err
		}

		wasEligible := attendee.IsEligible
		attendee.TotalSeconds += duration
		attendee.IsEligible = attendee.TotalSeconds >= int64(event.MinAttendanceMinutes)*60
		if err := tx.SaveAttendee(ctx, attendee); err != nil {
			return err
		}

		audit.Action = models.ActionExit
		audit.SessionID = open.ID
		audit.DurationSeconds = duration
		if err := tx.AppendAccessEvent(ctx, audit); err != nil {
			return err
		}

		s.monitor.TrackSessionDuration(event.Slug, time.Duration(duration)*time.Second)
		if attendee.IsEligible && !wasEligible {
			s.monitor.TrackEligibilityReached(event.Slug)
		}

		result = &models.ToggleResult{
			Action:       models.AttendanceCheckedOut,
			SessionID:    open.ID,
			TotalSeconds: attendee.TotalSeconds,
			TotalMinutes: attendee.TotalMinutes(),
			IsEligible:   attendee.IsEligible,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if denyErr != nil {
		s.monitor.TrackScan(string(models.TargetEvent), string(models.ActionDenied), "denied")
		return nil, denyErr
	}

	s.monitor.TrackScan(string(models.TargetEvent), string(models.ActionEnter), "ok")
	s.realtime.PublishAttendance(username, result)

	return result, nil
}

// Unregister removes an attendee from an event: every session row goes
// first, then the attendee row, all inside one transaction so a partial
// failure cannot leave orphaned sessions.
func (s *AttendanceService) Unregister(ctx context.Context, cardID, eventSlug string) error {
	return s.store.RunInTransaction(ctx, func(tx store.Store) error {
		identity, err := tx.FindIdentityByCard(ctx, cardID)
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrUnknownCard
		}
		if err != nil {
			return err
		}

		event, err := tx.FindEventBySlug(ctx, eventSlug)
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrEventNotFound
		}
		if err != nil {
			return err
		}

		attendee, err := tx.FindAttendee(ctx, event.ID, identity.ID)
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrNotRegistered
		}
		if err != nil {
			return err
		}

		if err := tx.DeleteSessions(ctx, attendee.ID); err != nil {
			return err
		}
		return tx.DeleteAttendee(ctx, attendee.ID)
	})
}

// Status reports an attendee's accumulated standing for an event.
func (s *AttendanceService) Status(ctx context.Context, eventSlug, username string) (*models.AttendanceStatus, error) {
	identity, err := s.store.FindIdentityByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}

	event, err := s.store.FindEventBySlug(ctx, eventSlug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	attendee, err := s.store.FindAttendee(ctx, event.ID, identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(ctx, attendee.ID)
	if err != nil {
		return nil, err
	}

	result := &models.AttendanceStatus{
		EventSlug:    eventSlug,
		Username:     username,
		TotalSeconds: attendee.TotalSeconds,
		TotalMinutes: attendee.TotalMinutes(),
		IsEligible:   attendee.IsEligible,
		Sessions:     sessions,
	}
	for _, sess := range sessions {
		if sess.Open() {
			result.OpenSession = sess
			break
		}
	}
	return result, nil
}

// Recompute rebuilds the attendee's cumulative total from the closed
// sessions. The stored total is a cache of the session log; this is the
// read-time fold used as a repair action when the two drift.
func (s *AttendanceService) Recompute(ctx context.Context, eventSlug, username string) (*models.Attendee, error) {
	identity, err := s.store.FindIdentityByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}

	event, err := s.store.FindEventBySlug(ctx, eventSlug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	var recomputed *models.Attendee
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		attendee, err := tx.FindAttendee(ctx, event.ID, identity.ID)
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrNotRegistered
		}
		if err != nil {
			return err
		}

		total, err := tx.SumClosedSessionSeconds(ctx, attendee.ID)
		if err != nil {
			return err
		}

		attendee.TotalSeconds = total
		attendee.IsEligible = total >= int64(event.MinAttendanceMinutes)*60
		if err := tx.SaveAttendee(ctx, attendee); err != nil {
			return err
		}
		recomputed = attendee
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recomputed, nil
}

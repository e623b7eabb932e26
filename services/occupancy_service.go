package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"community-system/internal/status"
	"community-system/models"
	"community-system/monitoring"
	"community-system/store"
	"community-system/utils"
)

// OccupancyService is the occupancy ledger: it resolves a card scan
// against a facility, toggles the occupant's presence state and keeps
// the denormalized snapshot consistent with the append-only log.
type OccupancyService struct {
	store    store.Store
	hasher   *utils.CardHasher
	cache    *OccupancyCache
	realtime *RealtimeService
	monitor  *monitoring.Monitor
}

func NewOccupancyService(
	st store.Store,
	hasher *utils.CardHasher,
	cache *OccupancyCache,
	realtime *RealtimeService,
	monitor *monitoring.Monitor,
) *OccupancyService {
	return &OccupancyService{
		store:    st,
		hasher:   hasher,
		cache:    cache,
		realtime: realtime,
		monitor:  monitor,
	}
}

// scanTime converts a device timestamp (unix seconds) to UTC, falling
// back to server time when the device sent none.
func scanTime(ts int64) time.Time {
	if ts == 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// RecordScan toggles the card holder's presence at a facility. The
// snapshot read, the state transition and the audit append run in one
// storage transaction; denied scans commit only their audit row.
func (s *OccupancyService) RecordScan(ctx context.Context, cardID, facilityID string, ts int64) (*models.ScanResult, error) {
	scannedAt := scanTime(ts)

	var (
		result  *models.ScanResult
		denyErr error
	)

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		deny := func(identityID, cardHash string, failure error) error {
			denyErr = failure
			return tx.AppendAccessEvent(ctx, &models.AccessEvent{
				IdentityID: identityID,
				CardHash:   cardHash,
				TargetType: models.TargetFacility,
				TargetID:   facilityID,
				Action:     models.ActionDenied,
				Success:    false,
				Reason:     status.Reason(failure),
				ScannedAt:  scannedAt,
			})
		}

		identity, err := tx.FindIdentityByCard(ctx, cardID)
		if errors.Is(err, store.ErrNotFound) {
			return deny("", s.hasher.Hash(cardID), status.ErrUnknownCard)
		}
		if err != nil {
			return err
		}
		if identity.Revoked() {
			return deny(identity.ID, identity.CardHash, status.ErrUnknownCard)
		}

		facility, err := tx.FindFacility(ctx, facilityID)
		if errors.Is(err, store.ErrNotFound) {
			return deny(identity.ID, identity.CardHash, status.ErrFacilityNotFound)
		}
		if err != nil {
			return err
		}
		if !facility.IsActive {
			return deny(identity.ID, identity.CardHash, status.ErrFacilityInactive)
		}

		snap, err := tx.GetSnapshot(ctx, facilityID)
		if errors.Is(err, store.ErrNotFound) {
			// First scan for this facility creates the projection.
			snap = &models.OccupancySnapshot{
				FacilityID:     facilityID,
				ActiveSessions: []models.ActiveSession{},
			}
		} else if err != nil {
			return err
		}

		_, action := snap.State(identity.ID).Toggle()

		event := &models.AccessEvent{
			IdentityID: identity.ID,
			CardHash:   identity.CardHash,
			TargetType: models.TargetFacility,
			TargetID:   facilityID,
			Action:     action,
			Success:    true,
			ScannedAt:  scannedAt,
		}

		switch action {
		case models.ActionEnter:
			if snap.Current >= facility.Capacity {
				return deny(identity.ID, identity.CardHash, status.ErrCapacityExceeded)
			}
			sessionID, err := utils.NewSessionID()
			if err != nil {
				return err
			}
			snap.ActiveSessions = append(snap.ActiveSessions, models.ActiveSession{
				IdentityID: identity.ID,
				Username:   identity.Username,
				SessionID:  sessionID,
				EnteredAt:  scannedAt,
			})
			event.SessionID = sessionID

		case models.ActionExit:
			idx := snap.FindSession(identity.ID)
			sess := snap.ActiveSessions[idx]
			duration := int64(scannedAt.Sub(sess.EnteredAt).Seconds())
			if duration < 0 {
				duration = 0
			}
			snap.ActiveSessions = append(snap.ActiveSessions[:idx], snap.ActiveSessions[idx+1:]...)
			event.SessionID = sess.SessionID
			event.DurationSeconds = duration
		}

		// Current is defined as the size of the active set.
		snap.Current = len(snap.ActiveSessions)
		snap.LastScanAt = scannedAt

		if err := tx.SaveSnapshot(ctx, snap); err != nil {
			return err
		}
		if err := tx.AppendAccessEvent(ctx, event); err != nil {
			return err
		}

		result = &models.ScanResult{
			Action:          action,
			Occupancy:       buildOccupancyStatus(facility, snap),
			AccessEvent:     event,
			SessionID:       event.SessionID,
			DurationSeconds: event.DurationSeconds,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if denyErr != nil {
		s.monitor.TrackScan(string(models.TargetFacility), string(models.ActionDenied), "denied")
		return nil, denyErr
	}

	s.monitor.TrackScan(string(models.TargetFacility), string(result.Action), "ok")
	s.monitor.TrackOccupancy(facilityID, result.Occupancy.Current)
	s.cache.Set(ctx, result.Occupancy)
	s.realtime.PublishOccupancy(facilityID, result.Occupancy)

	return result, nil
}

// GetOccupancy returns the facility's current occupancy read model.
// Read-only; served from the Redis cache when fresh.
func (s *OccupancyService) GetOccupancy(ctx context.Context, facilityID string) (*models.OccupancyStatus, error) {
	if cached, ok := s.cache.Get(ctx, facilityID); ok {
		return cached, nil
	}

	facility, err := s.store.FindFacility(ctx, facilityID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.ErrFacilityNotFound
	}
	if err != nil {
		return nil, err
	}

	snap, err := s.store.GetSnapshot(ctx, facilityID)
	if errors.Is(err, store.ErrNotFound) {
		snap = &models.OccupancySnapshot{
			FacilityID:     facilityID,
			ActiveSessions: []models.ActiveSession{},
		}
	} else if err != nil {
		return nil, err
	}

	occ := buildOccupancyStatus(facility, snap)
	s.cache.Set(ctx, occ)
	return occ, nil
}

// ListAccessEvents exposes the audit trail for a facility.
func (s *OccupancyService) ListAccessEvents(ctx context.Context, filter models.AccessEventFilter) ([]*models.AccessEvent, error) {
	return s.store.ListAccessEvents(ctx, filter)
}

func buildOccupancyStatus(facility *models.Facility, snap *models.OccupancySnapshot) *models.OccupancyStatus {
	percentage := 0.0
	if facility.Capacity > 0 {
		percentage = decimal.NewFromInt(int64(snap.Current)).
			Div(decimal.NewFromInt(int64(facility.Capacity))).
			Mul(decimal.NewFromInt(100)).
			Round(1).
			InexactFloat64()
	}

	available := facility.Capacity - snap.Current
	if available < 0 {
		available = 0
	}

	sessions := snap.ActiveSessions
	if sessions == nil {
		sessions = []models.ActiveSession{}
	}

	return &models.OccupancyStatus{
		FacilityID:     facility.ID,
		Current:        snap.Current,
		Max:            facility.Capacity,
		Available:      available,
		Percentage:     percentage,
		ActiveSessions: sessions,
		LastScanAt:     snap.LastScanAt,
	}
}

package services

import (
	"context"
	"errors"
	"time"

	"community-system/internal/status"
	"community-system/models"
	"community-system/store"
	"community-system/utils"
)

// IdentityService manages the card lifecycle: enrollment issues a card
// to a user, revocation clears it while keeping the identity row so
// historical audit entries still resolve.
type IdentityService struct {
	store  store.Store
	hasher *utils.CardHasher
}

func NewIdentityService(st store.Store, hasher *utils.CardHasher) *IdentityService {
	return &IdentityService{store: st, hasher: hasher}
}

func (s *IdentityService) Enroll(ctx context.Context, userID, username, cardID string) (*models.AccessIdentity, error) {
	var identity *models.AccessIdentity

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.FindIdentityByCard(ctx, cardID); err == nil {
			return status.ErrCardAlreadyIssued
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		// Re-enrolling a known member reuses the identity row.
		existing, err := tx.FindIdentityByUsername(ctx, username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if existing != nil {
			identity = existing
		} else {
			identity = &models.AccessIdentity{
				UserID:   userID,
				Username: username,
			}
		}
		identity.CardID = cardID
		identity.CardHash = s.hasher.Hash(cardID)
		identity.IsActive = true
		identity.IssuedAt = time.Now().UTC()

		return tx.SaveIdentity(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *IdentityService) Revoke(ctx context.Context, username string) (*models.AccessIdentity, error) {
	var identity *models.AccessIdentity

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		found, err := tx.FindIdentityByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return status.ErrIdentityNotFound
		}
		if err != nil {
			return err
		}

		found.CardID = ""
		found.IsActive = false
		identity = found

		return tx.SaveIdentity(ctx, found)
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

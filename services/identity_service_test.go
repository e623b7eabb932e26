package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-system/internal/status"
	"community-system/models"
	"community-system/store"
	"community-system/utils"
)

func setupIdentityService() (*IdentityService, *store.MemoryStore) {
	memStore := store.NewMemoryStore()
	return NewIdentityService(memStore, utils.NewCardHasher("test-salt")), memStore
}

func TestIdentityService_Enroll(t *testing.T) {
	service, memStore := setupIdentityService()
	ctx := context.Background()

	identity, err := service.Enroll(ctx, "usr_1", "alice", "CARD-A")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "CARD-A", identity.CardID)
	assert.NotEmpty(t, identity.CardHash)
	assert.True(t, identity.IsActive)
	assert.False(t, identity.IssuedAt.IsZero())

	found, err := memStore.FindIdentityByCard(ctx, "CARD-A")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, found.ID)
}

func TestIdentityService_Enroll_CardCollision(t *testing.T) {
	service, _ := setupIdentityService()
	ctx := context.Background()

	_, err := service.Enroll(ctx, "usr_1", "alice", "CARD-A")
	require.NoError(t, err)

	// The same card cannot be issued to a second user.
	_, err = service.Enroll(ctx, "usr_2", "bob", "CARD-A")
	assert.ErrorIs(t, err, status.ErrCardAlreadyIssued)
}

func TestIdentityService_Enroll_ReusesIdentityRow(t *testing.T) {
	service, _ := setupIdentityService()
	ctx := context.Background()

	first, err := service.Enroll(ctx, "usr_1", "alice", "CARD-A")
	require.NoError(t, err)

	_, err = service.Revoke(ctx, "alice")
	require.NoError(t, err)

	// Replacement card lands on the same identity row.
	second, err := service.Enroll(ctx, "usr_1", "alice", "CARD-A2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "CARD-A2", second.CardID)
	assert.True(t, second.IsActive)
}

func TestIdentityService_Revoke(t *testing.T) {
	service, memStore := setupIdentityService()
	ctx := context.Background()

	_, err := service.Enroll(ctx, "usr_1", "alice", "CARD-A")
	require.NoError(t, err)

	revoked, err := service.Revoke(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, revoked.CardID)
	assert.False(t, revoked.IsActive)
	assert.True(t, revoked.Revoked())

	// The row survives revocation so audit entries still resolve.
	row, err := memStore.FindIdentityByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, row.Revoked())

	// The old card no longer scans.
	_, err = memStore.FindIdentityByCard(ctx, "CARD-A")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentityService_Revoke_UnknownUser(t *testing.T) {
	service, _ := setupIdentityService()
	ctx := context.Background()

	_, err := service.Revoke(ctx, "nobody")
	assert.ErrorIs(t, err, status.ErrIdentityNotFound)

	// A failed revoke does not write anything.
	events, err := service.store.ListAccessEvents(ctx, models.AccessEventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

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

const baseTime = int64(1700000000)

func setupOccupancyService(capacity int) (*OccupancyService, *store.MemoryStore) {
	memStore := store.NewMemoryStore()
	memStore.AddFacility(&models.Facility{
		ID:       "fac_main",
		Name:     "Workshop",
		Slug:     "workshop",
		Capacity: capacity,
		IsActive: true,
	})
	memStore.AddIdentity(&models.AccessIdentity{
		ID:       "idt_alice",
		Username: "alice",
		CardID:   "CARD-A",
		CardHash: "hash-a",
		IsActive: true,
	})
	memStore.AddIdentity(&models.AccessIdentity{
		ID:       "idt_bob",
		Username: "bob",
		CardID:   "CARD-B",
		CardHash: "hash-b",
		IsActive: true,
	})

	hasher := utils.NewCardHasher("test-salt")
	service := NewOccupancyService(memStore, hasher, nil, nil, nil)
	return service, memStore
}

func TestOccupancyService_RecordScan_TogglesEnterExit(t *testing.T) {
	service, _ := setupOccupancyService(10)
	ctx := context.Background()

	// First scan enters.
	result, err := service.RecordScan(ctx, "CARD-A", "fac_main", baseTime)
	require.NoError(t, err)
	assert.Equal(t, models.ActionEnter, result.Action)
	assert.Equal(t, 1, result.Occupancy.Current)
	assert.NotEmpty(t, result.SessionID)

	// Second scan by the same card exits.
	result, err = service.RecordScan(ctx, "CARD-A", "fac_main", baseTime+600)
	require.NoError(t, err)
	assert.Equal(t, models.ActionExit, result.Action)
	assert.Equal(t, 0, result.Occupancy.Current)
	assert.Equal(t, int64(600), result.DurationSeconds)

	// Third scan enters again; state strictly alternates.
	result, err = service.RecordScan(ctx, "CARD-A", "fac_main", baseTime+900)
	require.NoError(t, err)
	assert.Equal(t, models.ActionEnter, result.Action)
	assert.Equal(t, 1, result.Occupancy.Current)
}

func TestOccupancyService_RecordScan_CapacityScenario(t *testing.T) {
	service, memStore := setupOccupancyService(1)
	ctx := context.Background()

	// A enters, facility is full.
	result, err := service.RecordScan(ctx, "CARD-A", "fac_main", baseTime)
	require.NoError(t, err)
	assert.Equal(t, models.ActionEnter, result.Action)
	assert.Equal(t, 1, result.Occupancy.Current)

	// B is rejected, occupancy unchanged.
	_, err = service.RecordScan(ctx, "CARD-B", "fac_main", baseTime+60)
	assert.ErrorIs(t, err, status.ErrCapacityExceeded)

	occ, err := service.GetOccupancy(ctx, "fac_main")
	require.NoError(t, err)
	assert.Equal(t, 1, occ.Current)

	// A exits, B can now enter.
	result, err = service.RecordScan(ctx, "CARD-A", "fac_main", baseTime+120)
	require.NoError(t, err)
	assert.Equal(t, models.ActionExit, result.Action)
	assert.Equal(t, 0, result.Occupancy.Current)

	result, err = service.RecordScan(ctx, "CARD-B", "fac_main", baseTime+180)
	require.NoError(t, err)
	assert.Equal(t, models.ActionEnter, result.Action)
	assert.Equal(t, 1, result.Occupancy.Current)

	// Even the denied scan is in the audit trail.
	var denied int
	for _, ev := range memStore.AccessLog() {
		if !ev.Success {
			denied++
			assert.Equal(t, status.ReasonCapacityExceeded, ev.Reason)
			assert.Equal(t, models.ActionDenied, ev.Action)
		}
	}
	assert.Equal(t, 1, denied)
}

func TestOccupancyService_RecordScan_UnknownCard(t *testing.T) {
	service, memStore := setupOccupancyService(10)
	ctx := context.Background()

	_, err := service.RecordScan(ctx, "CARD-NOPE", "fac_main", baseTime)
	assert.ErrorIs(t, err, status.ErrUnknownCard)

	log := memStore.AccessLog()
	require.Len(t, log, 1)
	assert.False(t, log[0].Success)
	assert.Equal(t, status.ReasonUnknownCard, log[0].Reason)
	assert.Empty(t, log[0].IdentityID)
	// The unresolved card id is only logged as a hash.
	assert.NotEmpty(t, log[0].CardHash)
	assert.NotContains(t, log[0].CardHash, "CARD-NOPE")
}

func TestOccupancyService_RecordScan_RevokedCard(t *testing.T) {
	service, memStore := setupOccupancyService(10)
	ctx := context.Background()

	memStore.AddIdentity(&models.AccessIdentity{
		ID:       "idt_eve",
		Username: "eve",
		CardID:   "CARD-E",
		CardHash: "hash-e",
		IsActive: false,
	})

	_, err := service.RecordScan(ctx, "CARD-E", "fac_main", baseTime)
	assert.ErrorIs(t, err, status.ErrUnknownCard)
}

func TestOccupancyService_RecordScan_InactiveFacility(t *testing.T) {
	service, memStore := setupOccupancyService(10)
	ctx := context.Background()

	memStore.AddFacility(&models.Facility{
		ID:       "fac_closed",
		Name:     "Old Lab",
		Capacity: 5,
		IsActive: false,
	})

	_, err := service.RecordScan(ctx, "CARD-A", "fac_closed", baseTime)
	assert.ErrorIs(t, err, status.ErrFacilityInactive)

	_, err = service.RecordScan(ctx, "CARD-A", "fac_missing", baseTime)
	assert.ErrorIs(t, err, status.ErrFacilityNotFound)
}

func TestOccupancyService_RecordScan_CurrentMatchesActiveSet(t *testing.T) {
	service, _ := setupOccupancyService(10)
	ctx := context.Background()

	result, err := service.RecordScan(ctx, "CARD-A", "fac_main", baseTime)
	require.NoError(t, err)
	assert.Equal(t, len(result.Occupancy.ActiveSessions), result.Occupancy.Current)

	result, err = service.RecordScan(ctx, "CARD-B", "fac_main", baseTime+10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Occupancy.Current)
	assert.Equal(t, len(result.Occupancy.ActiveSessions), result.Occupancy.Current)

	// No identity may appear twice in the active set.
	seen := map[string]bool{}
	for _, sess := range result.Occupancy.ActiveSessions {
		assert.False(t, seen[sess.IdentityID])
		seen[sess.IdentityID] = true
	}

	result, err = service.RecordScan(ctx, "CARD-A", "fac_main", baseTime+20)
	require.NoError(t, err)
	assert.Equal(t, models.ActionExit, result.Action)
	assert.Equal(t, 1, result.Occupancy.Current)
	assert.GreaterOrEqual(t, result.Occupancy.Current, 0)
}

func TestOccupancyService_GetOccupancy(t *testing.T) {
	service, _ := setupOccupancyService(4)
	ctx := context.Background()

	// Before the first scan the projection is empty, not missing.
	occ, err := service.GetOccupancy(ctx, "fac_main")
	require.NoError(t, err)
	assert.Equal(t, 0, occ.Current)
	assert.Equal(t, 4, occ.Max)
	assert.Equal(t, 4, occ.Available)
	assert.Equal(t, 0.0, occ.Percentage)

	_, err = service.RecordScan(ctx, "CARD-A", "fac_main", baseTime)
	require.NoError(t, err)

	occ, err = service.GetOccupancy(ctx, "fac_main")
	require.NoError(t, err)
	assert.Equal(t, 1, occ.Current)
	assert.Equal(t, 3, occ.Available)
	assert.Equal(t, 25.0, occ.Percentage)
	require.Len(t, occ.ActiveSessions, 1)
	assert.Equal(t, "alice", occ.ActiveSessions[0].Username)

	_, err = service.GetOccupancy(ctx, "fac_missing")
	assert.ErrorIs(t, err, status.ErrFacilityNotFound)
}

func TestOccupancyService_AuditTrailOrdering(t *testing.T) {
	service, memStore := setupOccupancyService(10)
	ctx := context.Background()

	for i := int64(0); i < 4; i++ {
		_, err := service.RecordScan(ctx, "CARD-A", "fac_main", baseTime+i*60)
		require.NoError(t, err)
	}

	log := memStore.AccessLog()
	require.Len(t, log, 4)
	expected := []models.AccessAction{
		models.ActionEnter, models.ActionExit,
		models.ActionEnter, models.ActionExit,
	}
	for i, ev := range log {
		assert.Equal(t, expected[i], ev.Action)
		assert.True(t, ev.Success)
	}
}

package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-system/models"
)

func setupTestOccupancyCache() (*OccupancyCache, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewOccupancyCache(db, 5*time.Second), mock
}

func TestOccupancyCache_GetHit(t *testing.T) {
	cache, mock := setupTestOccupancyCache()
	defer mock.ClearExpect()

	cached := &models.OccupancyStatus{
		FacilityID: "fac_main",
		Current:    3,
		Max:        10,
		Available:  7,
		Percentage: 30.0,
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("occupancy:fac_main").SetVal(string(data))

	got, ok := cache.Get(context.Background(), "fac_main")
	require.True(t, ok)
	assert.Equal(t, 3, got.Current)
	assert.Equal(t, 30.0, got.Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupancyCache_GetMiss(t *testing.T) {
	cache, mock := setupTestOccupancyCache()
	defer mock.ClearExpect()

	mock.ExpectGet("occupancy:fac_main").RedisNil()

	_, ok := cache.Get(context.Background(), "fac_main")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupancyCache_GetCorruptEntry(t *testing.T) {
	cache, mock := setupTestOccupancyCache()
	defer mock.ClearExpect()

	mock.ExpectGet("occupancy:fac_main").SetVal("{not json")

	_, ok := cache.Get(context.Background(), "fac_main")
	assert.False(t, ok)
}

func TestOccupancyCache_Set(t *testing.T) {
	cache, mock := setupTestOccupancyCache()
	defer mock.ClearExpect()

	status := &models.OccupancyStatus{
		FacilityID: "fac_main",
		Current:    1,
		Max:        4,
		Available:  3,
		Percentage: 25.0,
	}
	data, err := json.Marshal(status)
	require.NoError(t, err)
	mock.ExpectSet("occupancy:fac_main", data, 5*time.Second).SetVal("OK")

	cache.Set(context.Background(), status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupancyCache_Invalidate(t *testing.T) {
	cache, mock := setupTestOccupancyCache()
	defer mock.ClearExpect()

	mock.ExpectDel("occupancy:fac_main").SetVal(1)

	cache.Invalidate(context.Background(), "fac_main")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupancyCache_NilClientIsNoop(t *testing.T) {
	var cache *OccupancyCache

	_, ok := cache.Get(context.Background(), "fac_main")
	assert.False(t, ok)
	cache.Set(context.Background(), &models.OccupancyStatus{FacilityID: "fac_main"})
	cache.Invalidate(context.Background(), "fac_main")

	cache = &OccupancyCache{Redis: (*redis.Client)(nil)}
	_, ok = cache.Get(context.Background(), "fac_main")
	assert.False(t, ok)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"community-system/models"
)

// OccupancyCache is a short-TTL Redis projection of GetOccupancy
// responses. It is a pure cache of facts derivable from the snapshot
// rows; misses and Redis failures always fall through to the store.
type OccupancyCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewOccupancyCache(redisClient *redis.Client, ttl time.Duration) *OccupancyCache {
	return &OccupancyCache{Redis: redisClient, TTL: ttl}
}

func occupancyKey(facilityID string) string {
	return fmt.Sprintf("occupancy:%s", facilityID)
}

func (c *OccupancyCache) Get(ctx context.Context, facilityID string) (*models.OccupancyStatus, bool) {
	if c == nil || c.Redis == nil {
		return nil, false
	}

	raw, err := c.Redis.Get(ctx, occupancyKey(facilityID)).Result()
	if err != nil {
		return nil, false
	}

	var status models.OccupancyStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, false
	}
	return &status, true
}

func (c *OccupancyCache) Set(ctx context.Context, status *models.OccupancyStatus) {
	if c == nil || c.Redis == nil || status == nil {
		return
	}

	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	c.Redis.Set(ctx, occupancyKey(status.FacilityID), data, c.TTL)
}

func (c *OccupancyCache) Invalidate(ctx context.Context, facilityID string) {
	if c == nil || c.Redis == nil {
		return
	}
	c.Redis.Del(ctx, occupancyKey(facilityID))
}

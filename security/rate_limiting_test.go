package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestRateLimiter(limit int) (*RateLimiter, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewRateLimiter(db, limit, time.Minute), mock
}

func TestRateLimiter_Allow_FirstHitSetsExpiry(t *testing.T) {
	limiter, mock := setupTestRateLimiter(3)
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:scan:10.0.0.1").SetVal(1)
	mock.ExpectExpire("ratelimit:scan:10.0.0.1", time.Minute).SetVal(true)

	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_Allow_WithinWindow(t *testing.T) {
	limiter, mock := setupTestRateLimiter(3)
	defer mock.ClearExpect()

	// Second and third hits in the window stay under the limit.
	mock.ExpectIncr("ratelimit:scan:10.0.0.1").SetVal(2)
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))

	mock.ExpectIncr("ratelimit:scan:10.0.0.1").SetVal(3)
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_Allow_OverLimit(t *testing.T) {
	limiter, mock := setupTestRateLimiter(3)
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:scan:10.0.0.1").SetVal(4)

	assert.False(t, limiter.Allow(context.Background(), "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_Allow_FailsOpenOnRedisError(t *testing.T) {
	limiter, mock := setupTestRateLimiter(3)
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:scan:10.0.0.1").SetErr(errors.New("connection refused"))

	// A broken limiter must never block scans.
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))
}

func TestRateLimiter_Allow_DisabledLimiter(t *testing.T) {
	assert.True(t, (*RateLimiter)(nil).Allow(context.Background(), "10.0.0.1"))

	limiter, _ := setupTestRateLimiter(0)
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))
}

func TestRateLimiter_Allow_SeparateKeys(t *testing.T) {
	limiter, mock := setupTestRateLimiter(1)
	defer mock.ClearExpect()

	mock.ExpectIncr("ratelimit:scan:10.0.0.1").SetVal(2)
	mock.ExpectIncr("ratelimit:scan:10.0.0.2").SetVal(1)
	mock.ExpectExpire("ratelimit:scan:10.0.0.2", time.Minute).SetVal(true)

	assert.False(t, limiter.Allow(context.Background(), "10.0.0.1"))
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

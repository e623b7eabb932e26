package utils

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 16)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]+$`), code)

	// Codes are random, two draws must differ.
	other, err := GenerateCode(8)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestNewSessionID(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	assert.Len(t, id, 16)
}

func TestCardHasher_Hash(t *testing.T) {
	hasher := NewCardHasher("test-salt")

	first := hasher.Hash("CARD-A")
	assert.Len(t, first, 64)
	assert.Equal(t, first, hasher.Hash("CARD-A"))
	assert.NotEqual(t, first, hasher.Hash("CARD-B"))

	// A different salt yields a different digest for the same card.
	assert.NotEqual(t, first, NewCardHasher("other-salt").Hash("CARD-A"))

	assert.Empty(t, hasher.Hash(""))
}

func TestCircuitBreaker_TripsAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerSettings{
		MaxRequests:  2,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
	})
	ctx := context.Background()

	failing := func() (interface{}, error) {
		return nil, errors.New("upstream down")
	}

	_, err := cb.Execute(ctx, failing)
	assert.Error(t, err)
	assert.Equal(t, BreakerClosed, cb.State())

	_, err = cb.Execute(ctx, failing)
	assert.Error(t, err)
	assert.Equal(t, BreakerOpen, cb.State())

	// Open breaker rejects without calling through.
	called := false
	_, err = cb.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerSettings{
		MaxRequests:  2,
		Timeout:      20 * time.Millisecond,
		FailureRatio: 0.5,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		cb.Execute(ctx, func() (interface{}, error) {
			return nil, errors.New("upstream down")
		})
	}
	require.Equal(t, BreakerOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, cb.State())

	result, err := cb.Execute(ctx, func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_SuccessKeepsClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerSettings{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result, err := cb.Execute(ctx, func() (interface{}, error) {
			return i, nil
		})
		require.NoError(t, err)
		assert.Equal(t, i, result)
	}
	assert.Equal(t, BreakerClosed, cb.State())
}

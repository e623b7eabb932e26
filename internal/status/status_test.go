package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	cases := []struct {
		err    error
		reason string
	}{
		{ErrUnknownCard, ReasonUnknownCard},
		{ErrFacilityNotFound, ReasonFacilityNotFound},
		{ErrFacilityInactive, ReasonFacilityInactive},
		{ErrCapacityExceeded, ReasonCapacityExceeded},
		{ErrEventNotFound, ReasonEventNotFound},
		{ErrNotRegistered, ReasonNotRegistered},
		{ErrClockSkew, ReasonClockSkew},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.reason, Reason(tc.err))
	}

	// Wrapped errors still map.
	wrapped := fmt.Errorf("recording scan: %w", ErrCapacityExceeded)
	assert.Equal(t, ReasonCapacityExceeded, Reason(wrapped))

	// Errors outside the scan taxonomy carry no reason.
	assert.Empty(t, Reason(errors.New("disk full")))
	assert.Empty(t, Reason(ErrCardAlreadyIssued))
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"community-system/internal/status"
)

// toAPIError maps the service error taxonomy onto HTTP responses:
// not-found lookups to 404, conflicts to 409, policy violations to 403
// and invalid input to 400. Anything else stays a generic 400 so store
// internals never leak.
func toAPIError(err error) error {
	switch {
	case errors.Is(err, status.ErrUnknownCard),
		errors.Is(err, status.ErrFacilityNotFound),
		errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrAttendeeNotFound),
		errors.Is(err, status.ErrIdentityNotFound),
		errors.Is(err, status.ErrNotRegistered):
		return apis.NewNotFoundError(err.Error(), err)

	case errors.Is(err, status.ErrCardAlreadyIssued):
		return apis.NewApiError(http.StatusConflict, err.Error(), err)

	case errors.Is(err, status.ErrCapacityExceeded),
		errors.Is(err, status.ErrFacilityInactive):
		return apis.NewForbiddenError(err.Error(), err)

	case errors.Is(err, status.ErrClockSkew):
		return apis.NewBadRequestError(err.Error(), err)
	}

	return apis.NewBadRequestError("Request failed", err)
}

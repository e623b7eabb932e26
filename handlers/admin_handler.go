package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"community-system/models"
	"community-system/services"
)

type AdminHandler struct {
	app               *pocketbase.PocketBase
	identityService   *services.IdentityService
	occupancyService  *services.OccupancyService
	attendanceService *services.AttendanceService
}

func NewAdminHandler(
	app *pocketbase.PocketBase,
	identityService *services.IdentityService,
	occupancyService *services.OccupancyService,
	attendanceService *services.AttendanceService,
) *AdminHandler {
	return &AdminHandler{
		app:               app,
		identityService:   identityService,
		occupancyService:  occupancyService,
		attendanceService: attendanceService,
	}
}

func requireSuperuser(e *core.RequestEvent) error {
	if e.Auth == nil || !e.Auth.IsSuperuser() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	return nil
}

// EnrollCard - Issue a card to a user
func (h *AdminHandler) EnrollCard(e *core.RequestEvent) error {
	if err := requireSuperuser(e); err != nil {
		return err
	}

	var req struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		CardID   string `json:"card_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Username == "" || req.CardID == "" {
		return apis.NewBadRequestError("username and card_id are required", nil)
	}

	identity, err := h.identityService.Enroll(e.Request.Context(), req.UserID, req.Username, req.CardID)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, identity)
}

// RevokeCard - Clear a user's card while keeping the identity for audit
func (h *AdminHandler) RevokeCard(e *core.RequestEvent) error {
	if err := requireSuperuser(e); err != nil {
		return err
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Username == "" {
		return apis.NewBadRequestError("username is required", nil)
	}

	identity, err := h.identityService.Revoke(e.Request.Context(), req.Username)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, identity)
}

// ListAccessEvents - Paginated audit trail
func (h *AdminHandler) ListAccessEvents(e *core.RequestEvent) error {
	if err := requireSuperuser(e); err != nil {
		return err
	}

	query := e.Request.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	filter := models.AccessEventFilter{
		TargetType: models.TargetType(query.Get("target_type")),
		TargetID:   query.Get("target_id"),
		IdentityID: query.Get("identity"),
		Limit:      limit,
		Offset:     offset,
	}

	events, err := h.occupancyService.ListAccessEvents(e.Request.Context(), filter)
	if err != nil {
		return apis.NewBadRequestError("Failed to list access events", err)
	}

	return e.JSON(http.StatusOK, events)
}

// RecomputeAttendance - Rebuild an attendee's totals from the session log
func (h *AdminHandler) RecomputeAttendance(e *core.RequestEvent) error {
	if err := requireSuperuser(e); err != nil {
		return err
	}

	var req struct {
		EventSlug string `json:"event_slug"`
		Username  string `json:"username"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventSlug == "" || req.Username == "" {
		return apis.NewBadRequestError("event_slug and username are required", nil)
	}

	attendee, err := h.attendanceService.Recompute(e.Request.Context(), req.EventSlug, req.Username)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, attendee)
}

package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"community-system/services"
)

type AttendanceHandler struct {
	app               *pocketbase.PocketBase
	attendanceService *services.AttendanceService
}

func NewAttendanceHandler(app *pocketbase.PocketBase, attendanceService *services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{
		app:               app,
		attendanceService: attendanceService,
	}
}

// GetStatus - Accumulated attendance standing for one attendee
func (h *AttendanceHandler) GetStatus(e *core.RequestEvent) error {
	slug := e.Request.PathValue("slug")
	username := e.Request.PathValue("username")
	if slug == "" || username == "" {
		return apis.NewBadRequestError("Event slug and username required", nil)
	}

	result, err := h.attendanceService.Status(e.Request.Context(), slug, username)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// Unregister - Remove an attendee and cascade-delete their sessions
func (h *AttendanceHandler) Unregister(e *core.RequestEvent) error {
	slug := e.Request.PathValue("slug")
	if slug == "" {
		return apis.NewBadRequestError("Event slug required", nil)
	}

	var req struct {
		CardID string `json:"card_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.CardID == "" {
		return apis.NewBadRequestError("card_id is required", nil)
	}

	if err := h.attendanceService.Unregister(e.Request.Context(), req.CardID, slug); err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Unregistered from event",
	})
}

package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"community-system/models"
	"community-system/services"
)

// ScanHandler receives RFID taps from door and event scanners.
type ScanHandler struct {
	app               *pocketbase.PocketBase
	occupancyService  *services.OccupancyService
	attendanceService *services.AttendanceService
	deviceKey         string
}

func NewScanHandler(
	app *pocketbase.PocketBase,
	occupancyService *services.OccupancyService,
	attendanceService *services.AttendanceService,
	deviceKey string,
) *ScanHandler {
	return &ScanHandler{
		app:               app,
		occupancyService:  occupancyService,
		attendanceService: attendanceService,
		deviceKey:         deviceKey,
	}
}

// RequireDeviceKey gates the scan endpoints behind the shared device
// key. An empty configured key disables the check (dev environments).
func (h *ScanHandler) RequireDeviceKey(e *core.RequestEvent) error {
	if h.deviceKey == "" {
		return e.Next()
	}
	provided := e.Request.Header.Get("X-Device-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.deviceKey)) != 1 {
		return apis.NewUnauthorizedError("Unknown device", nil)
	}
	return e.Next()
}

// RecordScan - Toggle presence at a facility
func (h *ScanHandler) RecordScan(e *core.RequestEvent) error {
	var req models.ScanRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.CardID == "" || req.FacilityID == "" {
		return apis.NewBadRequestError("card_id and facility_id are required", nil)
	}

	result, err := h.occupancyService.RecordScan(e.Request.Context(), req.CardID, req.FacilityID, req.Timestamp)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// ToggleAttendance - Toggle an attendance session for an event
func (h *ScanHandler) ToggleAttendance(e *core.RequestEvent) error {
	var req models.AttendanceScanRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.CardID == "" || req.EventSlug == "" {
		return apis.NewBadRequestError("card_id and event_slug are required", nil)
	}

	result, err := h.attendanceService.ToggleSession(e.Request.Context(), req.CardID, req.EventSlug, req.Timestamp)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, result)
}

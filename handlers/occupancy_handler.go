package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"community-system/services"
)

type OccupancyHandler struct {
	app              *pocketbase.PocketBase
	occupancyService *services.OccupancyService
}

func NewOccupancyHandler(app *pocketbase.PocketBase, occupancyService *services.OccupancyService) *OccupancyHandler {
	return &OccupancyHandler{
		app:              app,
		occupancyService: occupancyService,
	}
}

// GetOccupancy - Current occupancy read model for a facility
func (h *OccupancyHandler) GetOccupancy(e *core.RequestEvent) error {
	facilityID := e.Request.PathValue("facilityId")
	if facilityID == "" {
		return apis.NewBadRequestError("Facility ID required", nil)
	}

	occupancy, err := h.occupancyService.GetOccupancy(e.Request.Context(), facilityID)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, occupancy)
}

package handlers

import (
	"net/http"
	"strings"

	"itinerary-service/internal/api/dto"
	"itinerary-service/internal/services"

	"github.com/go-chi/chi/v5"
)

// DayHandler edits one day of a trip's adopted plan. Every edit is saved as a
// new version and adopted.
type DayHandler struct {
	Planner *services.ItineraryPlanner
}

func (h *DayHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	day, ok := positiveParam(w, r, "day")
	if !ok {
		return
	}

	var req dto.AddStopRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.Planner.AddManualStop(r.Context(), id, day, services.NewStop{
		Name:         req.Name,
		Address:      req.Address,
		CategoryTags: req.CategoryTags,
		Coordinates:  req.Coordinates,
		Start:        req.Start,
		End:          req.End,
	})
	if err != nil {
		writeServiceError(w, r, err, msgSaveFailed)
		return
	}
	writeJSON(w, r, http.StatusCreated, snap)
}

func (h *DayHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	day, ok := positiveParam(w, r, "day")
	if !ok {
		return
	}
	stopID := strings.TrimSpace(chi.URLParam(r, "stopID"))

	snap, err := h.Planner.RemoveStop(r.Context(), id, day, stopID)
	if err != nil {
		writeServiceError(w, r, err, msgSaveFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *DayHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	day, ok := positiveParam(w, r, "day")
	if !ok {
		return
	}

	var req dto.RebuildDayRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.Planner.RebuildDay(r.Context(), id, day, req.Style)
	if err != nil {
		writeServiceError(w, r, err, msgSaveFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

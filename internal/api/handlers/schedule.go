package handlers

import (
	"net/http"
	"strings"

	"itinerary-service/internal/api/dto"
	"itinerary-service/internal/domain"
	"itinerary-service/internal/services"
)

type ScheduleHandler struct {
	Engine  *services.ReconciliationEngine
	Planner *services.ItineraryPlanner
}

// Reschedule repairs overlaps between the posted stops.
func (h *ScheduleHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req dto.RescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shift := true
	if req.EnableTimeShift != nil {
		shift = *req.EnableTimeShift
	}

	stops := h.Engine.Reconcile(r.Context(), req.Stops, services.ReconcileRequest{
		EnableTimeShift: shift,
		PinManual:       req.PinManual,
		LiveTravel:      req.LiveTravel,
		Mode:            domain.ParseTravelMode(req.Mode),
	})
	writeJSON(w, r, http.StatusOK, dto.StopsResponse{Stops: stops})
}

// Optimize reorders the posted stops by time of day and re-lays their times.
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stops := h.Planner.OptimizeDay(r.Context(), req.Stops, services.ReconcileRequest{EnableTimeShift: true})
	writeJSON(w, r, http.StatusOK, dto.StopsResponse{Stops: stops})
}

// Generate asks the suggestion source for a full plan.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	plan, err := h.Planner.Generate(r.Context(), strings.TrimSpace(req.Region), req.Days, req.Style)
	if err != nil {
		writeServiceError(w, r, err, msgLoadFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// Candidates builds one day from ranked catalog places.
func (h *ScheduleHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	var req dto.CandidatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	day := req.Day
	if day == 0 {
		day = 1
	}

	plan := h.Planner.BuildDayFromCandidates(r.Context(), day, req.Places, domain.ParseClock(req.DayStart), req.Limit)
	if req.Mode != "" {
		plan = h.Planner.WithLegs(r.Context(), plan, domain.ParseTravelMode(req.Mode))
	}
	writeJSON(w, r, http.StatusOK, plan)
}

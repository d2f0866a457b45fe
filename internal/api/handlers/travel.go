package handlers

import (
	"net/http"

	"itinerary-service/internal/api/dto"
	"itinerary-service/internal/domain"
	"itinerary-service/internal/services"
)

type TravelHandler struct {
	Travel *services.TravelTimeService
}

// Matrix returns the N x N travel-time matrix between the posted stops.
func (h *TravelHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	var req dto.MatrixRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mode := domain.ParseTravelMode(req.Mode)
	m := h.Travel.GetEtaMatrix(r.Context(), req.Stops, mode, req.WithDistance)
	writeJSON(w, r, http.StatusOK, dto.MatrixResponse{Mode: mode, Matrix: m})
}

// Legs returns travel times between consecutive posted stops.
func (h *TravelHandler) Legs(w http.ResponseWriter, r *http.Request) {
	var req dto.LegsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mode := domain.ParseTravelMode(req.Mode)
	legs := h.Travel.GetLegTimes(r.Context(), req.Stops, mode)
	writeJSON(w, r, http.StatusOK, dto.LegsResponse{Mode: mode, Legs: legs})
}

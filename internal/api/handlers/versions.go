package handlers

import (
	"net/http"

	"itinerary-service/internal/api/dto"
	"itinerary-service/internal/services"
)

type VersionHandler struct {
	Versions *services.PlanVersionStore
}

// Save stores a new version of the trip's plan and, unless adopt is false, adopts it.
func (h *VersionHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	var req dto.SaveVersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.SaveInput{GroupName: req.GroupName, Plan: req.Plan, Meta: req.Meta, Version: req.Version}
	adopt := req.Adopt == nil || *req.Adopt

	var (
		n   int
		err error
	)
	if adopt {
		n, err = h.Versions.SaveVersion(r.Context(), id, in)
	} else {
		n, err = h.Versions.SaveItineraryVersion(r.Context(), id, in)
	}
	if err != nil {
		writeServiceError(w, r, err, msgSaveFailed)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.SaveVersionResponse{TripID: id, Version: n, Adopted: adopt})
}

// List returns version summaries, newest first.
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	vs, err := h.Versions.ListVersions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, msgLoadFailed)
		return
	}

	res := dto.ListVersionsResponse{TripID: id, Versions: make([]dto.VersionSummary, 0, len(vs))}
	for _, v := range vs {
		res.Versions = append(res.Versions, dto.VersionSummary{Version: v.Version, Meta: v.Meta, CreatedAt: v.CreatedAt})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Adopt marks an existing version as the trip's current plan.
func (h *VersionHandler) Adopt(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	version, ok := positiveParam(w, r, "version")
	if !ok {
		return
	}

	adopted, err := h.Versions.Adopt(r.Context(), id, version)
	if err != nil {
		writeServiceError(w, r, err, msgSaveFailed)
		return
	}
	if !adopted {
		writeError(w, r, http.StatusNotFound, "version not found")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.AdoptResponse{TripID: id, Version: version})
}

// Adopted returns the trip's adopted snapshot.
func (h *VersionHandler) Adopted(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	snap, err := h.Versions.GetAdopted(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, msgLoadFailed)
		return
	}
	if snap == nil {
		writeError(w, r, http.StatusNotFound, "trip has no adopted itinerary")
		return
	}

	writeJSON(w, r, http.StatusOK, snap)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/davidweatherstone/move-my-pallets/internal/engine"
)

// ListLocationsHandler handles GET /api/locations for the caller's company.
func (h *Handler) ListLocationsHandler(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Engine.ListLocations(r.Context(), identityFrom(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func decodeLocationInput(w http.ResponseWriter, r *http.Request) (engine.LocationInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var in engine.LocationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return engine.LocationInput{}, false
	}
	return in, true
}

// CreateLocationHandler handles POST /api/locations.
func (h *Handler) CreateLocationHandler(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeLocationInput(w, r)
	if !ok {
		return
	}

	location, err := h.Engine.CreateLocation(r.Context(), identityFrom(r), in)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

// UpdateLocationHandler handles PUT /api/locations/{locationId}.
func (h *Handler) UpdateLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(r, "locationId")
	if !ok {
		http.Error(w, "Invalid locationId", http.StatusBadRequest)
		return
	}
	in, ok := decodeLocationInput(w, r)
	if !ok {
		return
	}

	location, err := h.Engine.UpdateLocation(r.Context(), identityFrom(r), id, in)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

// DeleteLocationHandler handles DELETE /api/locations/{locationId}.
func (h *Handler) DeleteLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(r, "locationId")
	if !ok {
		http.Error(w, "Invalid locationId", http.StatusBadRequest)
		return
	}

	if err := h.Engine.DeleteLocation(r.Context(), identityFrom(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

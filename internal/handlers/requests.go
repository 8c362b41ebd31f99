package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/davidweatherstone/move-my-pallets/internal/engine"
	"github.com/davidweatherstone/move-my-pallets/models"
)

const dateLayout = "2006-01-02"

type requestPayload struct {
	CollectionAddress string `json:"collectionAddress"`
	DeliveryAddress   string `json:"deliveryAddress"`
	CollectionDate    string `json:"collectionDate"`
	DeliveryDate      string `json:"deliveryDate"`
	Pallets           int    `json:"pallets"`
	Weight            int    `json:"weight"`
}

// toInput parses the wire dates; range and semantic checks stay with the
// engine.
func (p requestPayload) toInput() (engine.RequestInput, bool) {
	collect, err := time.Parse(dateLayout, p.CollectionDate)
	if err != nil {
		return engine.RequestInput{}, false
	}
	deliver, err := time.Parse(dateLayout, p.DeliveryDate)
	if err != nil {
		return engine.RequestInput{}, false
	}
	return engine.RequestInput{
		CollectionAddress: p.CollectionAddress,
		DeliveryAddress:   p.DeliveryAddress,
		CollectionDate:    collect,
		DeliveryDate:      deliver,
		Pallets:           p.Pallets,
		Weight:            p.Weight,
	}, true
}

// ListRequestsHandler handles GET /api/requests: the customer company's
// requests, newest first.
func (h *Handler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Engine.RequestsForCompany(r.Context(), identityFrom(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// CreateRequestHandler handles POST /api/requests.
func (h *Handler) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	in, ok := payload.toInput()
	if !ok {
		http.Error(w, "Dates must use the YYYY-MM-DD format", http.StatusBadRequest)
		return
	}

	request, err := h.Engine.CreateRequest(r.Context(), identityFrom(r), in)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// GetRequestHandler handles GET /api/requests/{requestId}: the request plus
// every bid against it, rejected ones included.
func (h *Handler) GetRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}

	request, bids, err := h.Engine.RequestBids(r.Context(), identityFrom(r), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Request *models.Request         `json:"request"`
		Bids    []models.BidWithCompany `json:"bids"`
	}{request, bids})
}

// UpdateRequestHandler handles PUT /api/requests/{requestId}.
func (h *Handler) UpdateRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	in, ok := payload.toInput()
	if !ok {
		http.Error(w, "Dates must use the YYYY-MM-DD format", http.StatusBadRequest)
		return
	}

	request, err := h.Engine.UpdateRequest(r.Context(), identityFrom(r), id, in)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// RemoveRequestHandler handles DELETE /api/requests/{requestId}. Complete
// requests cannot be removed.
func (h *Handler) RemoveRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}

	if err := h.Engine.CancelRequest(r.Context(), identityFrom(r), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

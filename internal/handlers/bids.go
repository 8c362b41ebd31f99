package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/davidweatherstone/move-my-pallets/models"
)

// SubmitBidHandler handles POST /api/requests/{requestId}/bids.
func (h *Handler) SubmitBidHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := urlParamInt(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	bid, err := h.Engine.SubmitBid(r.Context(), identityFrom(r), requestID, payload.Amount)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

// AcceptBidHandler handles POST /api/bids/{bidId}/accept.
func (h *Handler) AcceptBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := urlParamInt(r, "bidId")
	if !ok {
		http.Error(w, "Invalid bidId", http.StatusBadRequest)
		return
	}

	if err := h.Engine.AcceptBid(r.Context(), identityFrom(r), bidID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectBidHandler handles POST /api/bids/{bidId}/reject.
func (h *Handler) RejectBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := urlParamInt(r, "bidId")
	if !ok {
		http.Error(w, "Invalid bidId", http.StatusBadRequest)
		return
	}

	if err := h.Engine.RejectBid(r.Context(), identityFrom(r), bidID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyBidsHandler handles GET /api/bids/my for suppliers.
func (h *Handler) MyBidsHandler(w http.ResponseWriter, r *http.Request) {
	bids, err := h.Engine.MyBids(r.Context(), identityFrom(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// SupplierDashboardHandler handles GET /api/supplier/requests: the open, bid
// and won partitions.
func (h *Handler) SupplierDashboardHandler(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.Engine.SupplierDashboard(r.Context(), identityFrom(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// SupplierRequestHandler handles GET /api/supplier/requests/{requestId}: a
// request plus the caller company's own bid on it, when one exists.
func (h *Handler) SupplierRequestHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := urlParamInt(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}

	request, bid, err := h.Engine.SupplierRequestDetail(r.Context(), identityFrom(r), requestID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Request *models.Request `json:"request"`
		Bid     *models.Bid     `json:"bid,omitempty"`
	}{request, bid})
}

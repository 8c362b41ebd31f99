// Package handlers is the thin HTTP presentation layer: it resolves the
// caller's identity, parses and validates parameters, and invokes the
// lifecycle engine or its query views.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/davidweatherstone/move-my-pallets/internal/engine"
	"github.com/davidweatherstone/move-my-pallets/models"
)

const maxBodyBytes = 1048576

type Handler struct {
	Engine LifecycleEngine
	Users  UserStore
	Log    *zap.Logger
}

func NewHandler(eng LifecycleEngine, users UserStore, log *zap.Logger) *Handler {
	return &Handler{Engine: eng, Users: users, Log: log}
}

// Routes assembles the full router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ping", h.PingHandler)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.RegisterHandler)
		r.Post("/login", h.LoginHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.WithIdentity)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequestsHandler)
			r.Post("/", h.CreateRequestHandler)
			r.Get("/{requestId}", h.GetRequestHandler)
			r.Put("/{requestId}", h.UpdateRequestHandler)
			r.Delete("/{requestId}", h.RemoveRequestHandler)
			r.Post("/{requestId}/bids", h.SubmitBidHandler)
		})

		r.Route("/supplier", func(r chi.Router) {
			r.Get("/requests", h.SupplierDashboardHandler)
			r.Get("/requests/{requestId}", h.SupplierRequestHandler)
		})

		r.Route("/bids", func(r chi.Router) {
			r.Get("/my", h.MyBidsHandler)
			r.Post("/{bidId}/accept", h.AcceptBidHandler)
			r.Post("/{bidId}/reject", h.RejectBidHandler)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocationsHandler)
			r.Post("/", h.CreateLocationHandler)
			r.Put("/{locationId}", h.UpdateLocationHandler)
			r.Delete("/{locationId}", h.DeleteLocationHandler)
		})
	})

	return r
}

// PingHandler answers "ok" for liveness checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type identityKey struct{}

// WithIdentity resolves the caller from the X-User-Email header and places an
// explicit identity context on the request. Session management lives upstream;
// the gateway in front of this service sets the header after authenticating.
func (h *Handler) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get("X-User-Email")
		if email == "" {
			http.Error(w, "Missing X-User-Email header", http.StatusUnauthorized)
			return
		}
		u, err := h.Users.GetUserByEmail(r.Context(), email)
		if err != nil {
			http.Error(w, "Unknown user", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, u.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) models.Identity {
	id, _ := r.Context().Value(identityKey{}).(models.Identity)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.Log.Error("request failed", zap.Error(err))
		http.Error(w, "Temporary failure, please retry", http.StatusInternalServerError)
	}
}

func urlParamInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/davidweatherstone/move-my-pallets/db"
	"github.com/davidweatherstone/move-my-pallets/models"
)

type registerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
	UserType string `json:"userType"`
	FullName string `json:"fullName"`
}

func validateRegisterPayload(p *registerPayload) error {
	switch {
	case p.Email == "":
		return errors.New("email is required")
	case p.Password == "":
		return errors.New("password is required")
	case p.Company == "":
		return errors.New("company is required")
	case !models.UserType(p.UserType).Valid():
		return errors.New("userType must be Customer or Supplier")
	case p.FullName == "":
		return errors.New("fullName is required")
	}
	return nil
}

// RegisterHandler handles POST /auth/register.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if err := validateRegisterPayload(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	u := &models.User{
		Email:        payload.Email,
		PasswordHash: string(hash),
		Company:      payload.Company,
		UserType:     models.UserType(payload.UserType),
		FullName:     payload.FullName,
	}
	if err := h.Users.CreateUser(r.Context(), u); err != nil {
		if db.IsUniqueViolation(err) {
			http.Error(w, "User "+payload.Email+" is already registered", http.StatusConflict)
			return
		}
		h.Log.Error("register failed", zap.Error(err))
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// LoginHandler handles POST /auth/login. It verifies credentials and returns
// the user record; session issuance belongs to the gateway upstream.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	u, err := h.Users.GetUserByEmail(r.Context(), payload.Email)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Incorrect email or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.Log.Error("login failed", zap.Error(err))
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(payload.Password)) != nil {
		http.Error(w, "Incorrect email or password", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

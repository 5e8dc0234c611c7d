package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Paramfpv/lev/internal/log"
	"github.com/Paramfpv/lev/internal/storage"
)

// MaxCredentialLength bounds email and password fields.
const MaxCredentialLength = 256

// authHandler handles registration and login.
type authHandler struct {
	store  *storage.Store
	logger log.Logger
}

func (h *authHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("POST /login", h.login)
}

// credentialsRequest is the request body for /register and /login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req credentialsRequest) validate() error {
	if req.Email == "" || req.Password == "" {
		return errors.New("email and password are required")
	}
	if len(req.Email) > MaxCredentialLength || len(req.Password) > MaxCredentialLength {
		return errors.New("email or password too long")
	}
	return nil
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	user, err := h.store.Register(r.Context(), req.Email, req.Password)
	if errors.Is(err, storage.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email_taken", "email already registered", h.logger)
		return
	}
	if err != nil {
		h.logger.Error("registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "registration failed", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, user, h.logger)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	user, err := h.store.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, storage.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", h.logger)
		return
	}
	if err != nil {
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "login failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user, h.logger)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Paramfpv/lev/internal/log"
	"github.com/Paramfpv/lev/internal/storage"
)

// MaxQuestionLength bounds the question field.
const MaxQuestionLength = 4000

// chatHandler handles question answering, reset, and history.
type chatHandler struct {
	engines *Registry
	store   *storage.Store
	logger  log.Logger
}

func (h *chatHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.chat)
	mux.HandleFunc("POST /reset", h.reset)
	mux.HandleFunc("GET /history/{user_id}", h.history)
}

// chatRequest is the request body for /chat.
type chatRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

// chatResponse is the response body for /chat.
type chatResponse struct {
	Answer string `json:"answer"`
}

// chat answers one question on the caller's conversation. Retrieval and
// inference problems surface as answer text, never as an HTTP error.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if len(req.Question) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "question too long", h.logger)
		return
	}

	engine, err := h.engines.Get(req.UserID)
	if err != nil {
		h.logger.Error("failed to create chat engine", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create conversation", h.logger)
		return
	}

	answer := engine.Chat(r.Context(), req.Question)

	// Persist the exchange for registered users. A persistence failure is
	// logged; the answer is still returned.
	if req.UserID != "" && h.store != nil && strings.TrimSpace(req.Question) != "" {
		if err := h.store.AppendHistory(r.Context(), req.UserID, req.Question, answer); err != nil {
			h.logger.Error("failed to persist exchange", "user_id", req.UserID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{Answer: answer}, h.logger)
}

// resetRequest is the request body for /reset.
type resetRequest struct {
	UserID string `json:"user_id"`
}

// reset clears the caller's conversation memory. Persisted history is
// untouched.
func (h *chatHandler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	h.engines.Reset(req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"}, h.logger)
}

// history returns the user's persisted exchanges, newest first.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "history is not available", h.logger)
		return
	}

	userID := r.PathValue("user_id")
	history, err := h.store.History(r.Context(), userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user_not_found", "unknown user", h.logger)
		return
	}
	if err != nil {
		h.logger.Error("failed to load history", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history", h.logger)
		return
	}

	if history == nil {
		history = []storage.Exchange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history}, h.logger)
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/experiment"
	"github.com/xaenox/shopbot-experiment/internal/storage"
)

type Handler struct {
	service *experiment.Service
	logger  *zap.Logger
}

func NewHandler(service *experiment.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type CreateSessionRequest struct {
	ParticipantID string `json:"participant_id,omitempty"`
}

type PostMessageRequest struct {
	Msg string `json:"msg"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	// The body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.service.StartSession(r.Context(), req.ParticipantID)
	if err != nil {
		h.fail(w, r, err, "Failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.HandleMessage(r.Context(), sessionID, req.Msg)
	if err != nil {
		h.fail(w, r, err, "Failed to handle message")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		h.fail(w, r, err, "Failed to end session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.service.History(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err, "Failed to list turns")
		return
	}

	writeJSON(w, http.StatusOK, turns)
}

// fail maps service errors onto HTTP status codes
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, experiment.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, experiment.ErrSessionEnded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg,
			zap.Error(err),
			zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

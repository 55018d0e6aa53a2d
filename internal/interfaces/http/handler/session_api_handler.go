package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dreschagin/analytics-validator/internal/infrastructure/tracker"
	"github.com/dreschagin/analytics-validator/internal/interfaces/http/middleware"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

const maxIngestBodyBytes = 64 * 1024

// SessionAPIHandler принимает ingest-события от клиентских приложений
type SessionAPIHandler struct {
	tracker *tracker.SessionTracker
	logger  *logger.Logger
}

// NewSessionAPIHandler создает новый handler
func NewSessionAPIHandler(tracker *tracker.SessionTracker, log *logger.Logger) *SessionAPIHandler {
	return &SessionAPIHandler{
		tracker: tracker,
		logger:  log,
	}
}

type startSessionRequest struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

// StartSession начинает новую аналитическую сессию
// POST /api/v1/sessions/start
func (h *SessionAPIHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	sessionID := h.tracker.StartSession(strings.TrimSpace(req.UserID), strings.TrimSpace(req.UserType))

	h.logger.Info("Analytics session started",
		"session_id", sessionID,
		"user_type", req.UserType,
	)

	middleware.WriteJSON(w, http.StatusCreated, startSessionResponse{SessionID: sessionID})
}

type trackEventRequest struct {
	Action   string `json:"action"`
	Category string `json:"category"`
}

// TrackEvent регистрирует событие пользовательского пути
// POST /api/v1/sessions/events
func (h *SessionAPIHandler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trackEventRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if strings.TrimSpace(req.Action) == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "action is required",
		})
		return
	}

	if err := h.tracker.TrackAction(r.Context(), req.Action, req.Category); err != nil {
		h.logger.Error("Failed to track event", err, "action", req.Action)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to track event",
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(dest)
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"quickconnect/internal/chat"
	"quickconnect/internal/http/middleware"
	"quickconnect/internal/models"
	"quickconnect/internal/pricing"
	"quickconnect/internal/session"
)

// SessionHandlers drives the consultation lifecycle.
type SessionHandlers struct {
	flow   *session.Flow
	rooms  *chat.Manager
	logger *zap.Logger
}

// NewSessionHandlers builds the handler group.
func NewSessionHandlers(flow *session.Flow, rooms *chat.Manager, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{flow: flow, rooms: rooms, logger: logger}
}

// Create books a new session with the selected professional.
func (h *SessionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		Professional     models.Professional `json:"professional"`
		ConsultationType string              `json:"consultation_type"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Professional.ID == 0 {
		writeError(w, http.StatusBadRequest, "professional is required")
		return
	}

	s, err := h.flow.Create(r.Context(), creds.UpstreamToken, creds.UserID, body.Professional, body.ConsultationType)
	if err != nil {
		if errors.Is(err, session.ErrUnknownType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Warn("session create failed", zap.Int64("user_id", creds.UserID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "unable to create session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session": s,
		"split":   pricing.CostSplit(float64(s.Amount)),
	})
}

// Start moves a created session to active.
func (h *SessionHandlers) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.flow.Start)
}

// End completes an active session and tears down its chat room. The blocking
// confirmation lives in the UI; calling this endpoint is the confirmation.
func (h *SessionHandlers) End(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, token string, userID, sessionID int64) (*models.Session, error) {
		s, err := h.flow.End(ctx, token, userID, sessionID)
		if err != nil {
			return nil, err
		}
		if h.rooms != nil {
			h.rooms.CloseRoom(sessionID)
		}
		return s, nil
	})
}

// Rate submits a 1-5 star rating. Zero stars are rejected without touching
// the network; upstream submission failures do not block payment.
func (h *SessionHandlers) Rate(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var body struct {
		Rating int    `json:"rating"`
		Review string `json:"review"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.flow.Rate(r.Context(), creds.UpstreamToken, creds.UserID, id, body.Rating, body.Review)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s})
}

// Get returns the local projection.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	s, err := h.flow.Get(r.Context(), id)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	if s.UserID != creds.UserID {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": s,
		"split":   pricing.CostSplit(float64(s.Amount)),
	})
}

func (h *SessionHandlers) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, token string, userID, sessionID int64) (*models.Session, error)) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	s, err := fn(r.Context(), creds.UpstreamToken, creds.UserID, id)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s})
}

func (h *SessionHandlers) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Warn("session operation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "session operation failed")
	}
}

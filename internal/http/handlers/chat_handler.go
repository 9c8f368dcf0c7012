package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quickconnect/internal/chat"
	"quickconnect/internal/http/middleware"
	"quickconnect/internal/models"
	"quickconnect/internal/session"
)

// ChatHandler upgrades a session participant onto the chat relay.
type ChatHandler struct {
	flow     *session.Flow
	manager  *chat.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewChatHandler builds the websocket entry point.
func NewChatHandler(flow *session.Flow, manager *chat.Manager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		flow:    flow,
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Join verifies the caller is one of the session's two parties and the
// session is active, then upgrades the connection into the session room.
func (h *ChatHandler) Join(w http.ResponseWriter, r *http.Request) {
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

	sess, err := h.flow.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusBadGateway, "unable to load session")
		return
	}
	role, ok := participantRole(sess, creds.UserID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if sess.State != session.StateActive {
		writeError(w, http.StatusConflict, "session is not active")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Int64("session_id", id), zap.Error(err))
		return
	}

	conn := chat.NewConnection(sess.ID, role, ws, 10*time.Second, h.logger)
	h.manager.Join(conn)
	h.logger.Info("chat leg joined",
		zap.Int64("session_id", sess.ID),
		zap.String("role", role),
		zap.Int("room_size", h.manager.RoomSize(sess.ID)),
	)
	conn.Start(r.Context())
}

// participantRole maps the caller onto their side of the consultation.
// Anyone else is told the session does not exist.
func participantRole(sess *models.Session, userID int64) (string, bool) {
	switch userID {
	case sess.UserID:
		return "client", true
	case sess.ProfessionalID:
		return "professional", true
	}
	return "", false
}

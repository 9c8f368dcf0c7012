package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"quickconnect/internal/auth"
	"quickconnect/internal/http/middleware"
)

// AuthHandlers exposes the credential lifecycle.
type AuthHandlers struct {
	credentials *auth.Service
	logger      *zap.Logger
}

// NewAuthHandlers builds the handler group.
func NewAuthHandlers(credentials *auth.Service, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{credentials: credentials, logger: logger}
}

// Login proxies upstream authentication and issues a gateway token.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.credentials.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.logger.Warn("login failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Refresh re-issues the gateway token for a live credential session.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	token, err := h.credentials.Refresh(r.Context(), creds.UserID, creds.SessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout tears the credential session down.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.credentials.Logout(r.Context(), creds); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

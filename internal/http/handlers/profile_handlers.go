package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"quickconnect/internal/http/middleware"
	"quickconnect/internal/upstream"
)

// ProfileHandlers covers account, settings and payment-method reads that ride
// the endpoint resolver. Best-effort reads degrade to benign defaults rather
// than blocking the user.
type ProfileHandlers struct {
	client *upstream.Client
	logger *zap.Logger
}

// NewProfileHandlers builds the handler group.
func NewProfileHandlers(client *upstream.Client, logger *zap.Logger) *ProfileHandlers {
	return &ProfileHandlers{client: client, logger: logger}
}

// Profile fetches the caller's account from the upstream.
func (h *ProfileHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	profile, path, err := h.client.Profile(r.Context(), creds.UpstreamToken)
	if err != nil {
		h.logger.Warn("profile fetch failed", zap.Int64("user_id", creds.UserID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "unable to load profile")
		return
	}
	h.logger.Debug("profile resolved", zap.String("winning_path", path))
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile patches account fields upstream.
func (h *ProfileHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil || len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.client.UpdateProfile(r.Context(), creds.UpstreamToken, fields); err != nil {
		h.logger.Warn("profile update failed", zap.Int64("user_id", creds.UserID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "unable to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Settings fetches user preferences, substituting defaults when no route
// answers.
func (h *ProfileHandlers) Settings(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	settings, err := h.client.Settings(r.Context(), creds.UpstreamToken, creds.UserID)
	if err != nil {
		h.logger.Warn("settings fetch failed, serving defaults",
			zap.Int64("user_id", creds.UserID), zap.Error(err))
		enabled := true
		settings = &upstream.Settings{PushNotifications: &enabled, EmailUpdates: &enabled}
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSetting patches one preference key.
func (h *ProfileHandlers) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Key == "" {
		writeError(w, http.StatusBadRequest, "setting key is required")
		return
	}

	if err := h.client.UpdateSetting(r.Context(), creds.UpstreamToken, creds.UserID, body.Key, body.Value); err != nil {
		h.logger.Warn("setting update failed", zap.String("key", body.Key), zap.Error(err))
		writeError(w, http.StatusBadGateway, "unable to update setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// PaymentMethods lists stored instruments, falling back to the built-in set.
func (h *ProfileHandlers) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	methods, err := h.client.PaymentMethods(r.Context(), creds.UpstreamToken)
	if err != nil {
		if !errors.Is(err, upstream.ErrNoEndpoint) {
			h.logger.Warn("payment methods fetch failed", zap.Error(err))
		}
		methods = defaultPaymentMethods()
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": methods})
}

func defaultPaymentMethods() []upstream.PaymentMethodRecord {
	return []upstream.PaymentMethodRecord{
		{ID: 1, Type: "mpesa", Label: "M-Pesa", IsDefault: true},
		{ID: 2, Type: "card", Label: "Credit or Debit Card"},
		{ID: 3, Type: "bank", Label: "Bank Transfer"},
	}
}

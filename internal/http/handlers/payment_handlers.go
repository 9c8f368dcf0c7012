package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"quickconnect/internal/http/middleware"
	"quickconnect/internal/payments"
	"quickconnect/internal/phone"
	"quickconnect/internal/session"
)

// PaymentHandlers exposes the three payment flows.
type PaymentHandlers struct {
	payments *payments.Service
	logger   *zap.Logger
}

// NewPaymentHandlers builds the handler group.
func NewPaymentHandlers(svc *payments.Service, logger *zap.Logger) *PaymentHandlers {
	return &PaymentHandlers{payments: svc, logger: logger}
}

// MpesaInitiate validates the phone number and triggers the STK push.
func (h *PaymentHandlers) MpesaInitiate(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		SessionID int64  `json:"session_id"`
		Phone     string `json:"phone"`
	}
	if err := decodeJSON(r, &body); err != nil || body.SessionID <= 0 {
		writeError(w, http.StatusBadRequest, "session_id and phone are required")
		return
	}

	tx, err := h.payments.InitiateMpesa(r.Context(), creds.UpstreamToken, creds.UserID, body.SessionID, body.Phone)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"transaction": tx,
		"message":     "STK push sent. Enter your M-Pesa PIN on your phone.",
	})
}

// Confirm polls the backend for the authoritative payment state. The caller's
// assertion alone never settles a transaction.
func (h *PaymentHandlers) Confirm(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		CheckoutID string `json:"checkout_id"`
	}
	if err := decodeJSON(r, &body); err != nil || body.CheckoutID == "" {
		writeError(w, http.StatusBadRequest, "checkout_id is required")
		return
	}

	tx, err := h.payments.Confirm(r.Context(), creds.UpstreamToken, creds.UserID, body.CheckoutID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
	case errors.Is(err, payments.ErrVerificationPending):
		writeJSON(w, http.StatusAccepted, map[string]any{
			"transaction": tx,
			"message":     "Payment not verified yet. Try again shortly.",
		})
	case errors.Is(err, payments.ErrPaymentFailed):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"transaction": tx,
			"error":       "payment failed",
		})
	default:
		h.writePaymentError(w, err)
	}
}

// CardInitiate starts the card redirect flow.
func (h *PaymentHandlers) CardInitiate(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		SessionID int64  `json:"session_id"`
		Email     string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil || body.SessionID <= 0 {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	tx, redirectURL, err := h.payments.InitiateCard(r.Context(), creds.UpstreamToken, creds.UserID, body.SessionID, body.Email)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"transaction":  tx,
		"redirect_url": redirectURL,
	})
}

// BankConfirm records a manually confirmed bank transfer.
func (h *PaymentHandlers) BankConfirm(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		SessionID int64  `json:"session_id"`
		Reference string `json:"reference"`
	}
	if err := decodeJSON(r, &body); err != nil || body.SessionID <= 0 || body.Reference == "" {
		writeError(w, http.StatusBadRequest, "session_id and reference are required")
		return
	}

	tx, err := h.payments.ConfirmBank(r.Context(), creds.UserID, body.SessionID, body.Reference)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (h *PaymentHandlers) writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, phone.ErrInvalidNumber):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrNotPayable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, payments.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	default:
		h.logger.Warn("payment operation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "payment operation failed")
	}
}

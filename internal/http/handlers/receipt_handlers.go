package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"quickconnect/internal/http/middleware"
	"quickconnect/internal/payments"
	"quickconnect/internal/receipt"
	"quickconnect/internal/session"
	"quickconnect/internal/upstream"
)

// ReceiptHandlers issues and serves receipts for paid sessions.
type ReceiptHandlers struct {
	flow     *session.Flow
	payments *payments.Service
	store    *receipt.PostgresStore
	client   *upstream.Client
	logger   *zap.Logger
}

// NewReceiptHandlers builds the handler group.
func NewReceiptHandlers(flow *session.Flow, svc *payments.Service, store *receipt.PostgresStore, client *upstream.Client, logger *zap.Logger) *ReceiptHandlers {
	return &ReceiptHandlers{flow: flow, payments: svc, store: store, client: client, logger: logger}
}

// Get returns the receipt for a paid session, issuing it on first access.
// Export failures never roll payment state back.
func (h *ReceiptHandlers) Get(w http.ResponseWriter, r *http.Request) {
	rec, status, msg := h.resolve(r)
	if rec == nil {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": rec})
}

// Document renders the printable HTML receipt.
func (h *ReceiptHandlers) Document(w http.ResponseWriter, r *http.Request) {
	rec, status, msg := h.resolve(r)
	if rec == nil {
		writeError(w, status, msg)
		return
	}

	html, err := rec.RenderHTML()
	if err != nil {
		h.logger.Warn("receipt render failed", zap.String("number", rec.Number), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to render receipt")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// resolve loads or issues the receipt for the session in the path. A nil
// receipt means the error was already decided; status and msg describe it.
func (h *ReceiptHandlers) resolve(r *http.Request) (*receipt.Receipt, int, string) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		return nil, http.StatusUnauthorized, "not authenticated"
	}
	id, ok := pathID(r, "id")
	if !ok {
		return nil, http.StatusBadRequest, "invalid session id"
	}

	sess, err := h.flow.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, http.StatusNotFound, "session not found"
		}
		h.logger.Warn("receipt session lookup failed", zap.Int64("session_id", id), zap.Error(err))
		return nil, http.StatusBadGateway, "unable to load session"
	}
	if sess.UserID != creds.UserID {
		return nil, http.StatusNotFound, "session not found"
	}

	switch sess.State {
	case session.StateReceipted:
		rec, err := h.store.Get(r.Context(), sess.ID)
		if err == nil {
			return rec, 0, ""
		}
		if !errors.Is(err, receipt.ErrNotFound) {
			h.logger.Warn("stored receipt lookup failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		}
		// Fall back to re-issuing from the transaction.
	case session.StatePaid:
	default:
		return nil, http.StatusConflict, "session is not paid yet"
	}

	tx, err := h.payments.TransactionForSession(r.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, payments.ErrTransactionNotFound) {
			return nil, http.StatusConflict, "no completed payment for session"
		}
		h.logger.Warn("receipt transaction lookup failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		return nil, http.StatusBadGateway, "unable to load transaction"
	}

	rec := receipt.Build(sess, tx, h.clientName(r, creds.UpstreamToken), time.Now().UTC())
	if err := h.store.Save(r.Context(), sess.ID, rec); err != nil {
		h.logger.Warn("receipt save failed", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	if sess.State == session.StatePaid {
		if _, err := h.flow.MarkReceipted(r.Context(), sess.ID); err != nil {
			h.logger.Warn("failed to mark session receipted", zap.Int64("session_id", sess.ID), zap.Error(err))
		}
	}
	return &rec, 0, ""
}

func (h *ReceiptHandlers) clientName(r *http.Request, token string) string {
	profile, _, err := h.client.Profile(r.Context(), token)
	if err != nil {
		return "Valued Client"
	}
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		name = profile.Username
	}
	if name == "" {
		return "Valued Client"
	}
	return name
}

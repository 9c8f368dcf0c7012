package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"quickconnect/internal/history"
	"quickconnect/internal/http/middleware"
	"quickconnect/internal/models"
	"quickconnect/internal/session"
	"quickconnect/internal/upstream"
)

const historyLimit = 100

// HistoryHandlers serves past sessions and the aggregate dashboard numbers.
// The upstream is authoritative; local projections fill in when it is down.
type HistoryHandlers struct {
	client *upstream.Client
	flow   *session.Flow
	logger *zap.Logger
}

// NewHistoryHandlers builds the handler group.
func NewHistoryHandlers(client *upstream.Client, flow *session.Flow, logger *zap.Logger) *HistoryHandlers {
	return &HistoryHandlers{client: client, flow: flow, logger: logger}
}

// List returns the caller's session history.
func (h *HistoryHandlers) List(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	records, source, err := h.load(r, creds.UpstreamToken, creds.UserID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "unable to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": records,
		"source":   source,
	})
}

// Stats returns the aggregate totals for the dashboard.
func (h *HistoryHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	records, _, err := h.load(r, creds.UpstreamToken, creds.UserID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "unable to load history")
		return
	}
	writeJSON(w, http.StatusOK, history.Compute(records))
}

// load fetches upstream history, falling back to the local projection when
// no route answers.
func (h *HistoryHandlers) load(r *http.Request, token string, userID int64) ([]upstream.SessionRecord, string, error) {
	records, err := h.client.SessionHistory(r.Context(), token)
	if err == nil {
		return records, "upstream", nil
	}
	h.logger.Warn("upstream history unavailable, serving local projection",
		zap.Int64("user_id", userID), zap.Error(err))

	local, err := h.flow.ListByUser(r.Context(), userID, historyLimit)
	if err != nil {
		return nil, "", err
	}

	records = make([]upstream.SessionRecord, 0, len(local))
	for _, s := range local {
		records = append(records, localRecord(s))
	}
	return records, "local", nil
}

func localRecord(s models.Session) upstream.SessionRecord {
	rec := upstream.SessionRecord{
		ID:               s.ID,
		ProfessionalName: s.ProfessionalName,
		SessionType:      string(s.Type),
		Status:           s.State,
		Cost:             float64(s.Amount),
		Rate:             s.RateSnapshot,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
	}
	if !s.EndedAt.IsZero() {
		rec.EndedAt = s.EndedAt.Format(time.RFC3339)
		if !s.StartedAt.IsZero() {
			rec.Duration = s.EndedAt.Sub(s.StartedAt).Minutes()
		}
	}
	return rec
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"quickconnect/internal/auth"
	"quickconnect/internal/chat"
	"quickconnect/internal/http/middleware"
	"quickconnect/internal/models"
	"quickconnect/internal/session"
	"quickconnect/internal/upstream"
)

type stubUpstream struct{}

func (stubUpstream) CreateSession(context.Context, string, upstream.CreateSessionInput) (int64, error) {
	return 1, nil
}

func (stubUpstream) UpdateSession(context.Context, string, int64, string, string) error { return nil }

func (stubUpstream) EndSession(context.Context, string, int64, string) error { return nil }

func (stubUpstream) RateSession(context.Context, string, int64, int, string) error { return nil }

func (stubUpstream) Availability(context.Context, string, int64, models.ConsultationType) (bool, error) {
	return true, nil
}

type stubStore struct {
	sessions map[int64]*models.Session
}

func newStubStore(sessions ...*models.Session) *stubStore {
	s := &stubStore{sessions: make(map[int64]*models.Session)}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	return s
}

func (s *stubStore) Create(_ context.Context, sess *models.Session) error {
	s.sessions[sess.ID] = sess
	return nil
}

func (s *stubStore) Get(_ context.Context, id int64) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *stubStore) Update(_ context.Context, sess *models.Session) error {
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *stubStore) ListByUser(context.Context, int64, int) ([]models.Session, error) {
	return nil, nil
}

func activeSession() *models.Session {
	return &models.Session{
		ID:             10,
		UpstreamID:     110,
		UserID:         1,
		ProfessionalID: 7,
		Type:           models.TypeChat,
		State:          session.StateActive,
		StartedAt:      time.Now().Add(-time.Minute),
	}
}

func authedRequest(method, target string, userID, sessionID int64) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.SetPathValue("id", strconv.FormatInt(sessionID, 10))
	creds := &auth.Credentials{UserID: userID, UpstreamToken: "tok"}
	return r.WithContext(middleware.WithCredentials(r.Context(), creds))
}

func TestParticipantRole(t *testing.T) {
	sess := activeSession()

	role, ok := participantRole(sess, sess.UserID)
	if !ok || role != "client" {
		t.Fatalf("owner: got %q ok=%v", role, ok)
	}
	role, ok = participantRole(sess, sess.ProfessionalID)
	if !ok || role != "professional" {
		t.Fatalf("professional: got %q ok=%v", role, ok)
	}
	if _, ok := participantRole(sess, 999); ok {
		t.Fatal("stranger should not resolve to a role")
	}
}

func TestEndTearsDownChatRoom(t *testing.T) {
	flow := session.NewFlow(stubUpstream{}, newStubStore(activeSession()), nil, zap.NewNop())
	manager := chat.NewManager(time.Minute, zap.NewNop())
	h := NewSessionHandlers(flow, manager, zap.NewNop())

	manager.Join(chat.NewConnection(10, "client", nil, time.Second, zap.NewNop()))
	if got := manager.RoomSize(10); got != 1 {
		t.Fatalf("room size before end: got %d", got)
	}

	rec := httptest.NewRecorder()
	h.End(rec, authedRequest(http.MethodPost, "/api/sessions/10/end", 1, 10))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if got := manager.RoomSize(10); got != 0 {
		t.Fatalf("room should be closed after end, size %d", got)
	}
}

func TestEndByOtherUserLeavesRoomIntact(t *testing.T) {
	flow := session.NewFlow(stubUpstream{}, newStubStore(activeSession()), nil, zap.NewNop())
	manager := chat.NewManager(time.Minute, zap.NewNop())
	h := NewSessionHandlers(flow, manager, zap.NewNop())

	manager.Join(chat.NewConnection(10, "client", nil, time.Second, zap.NewNop()))

	rec := httptest.NewRecorder()
	h.End(rec, authedRequest(http.MethodPost, "/api/sessions/10/end", 999, 10))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	if got := manager.RoomSize(10); got != 1 {
		t.Fatalf("room must survive a stranger's end attempt, size %d", got)
	}
}

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"quickconnect/internal/models"
	"quickconnect/internal/upstream"
)

type fakeUpstream struct {
	createID    int64
	createErr   error
	available   bool
	availErr    error
	updateErr   error
	endErr      error
	rateErr     error
	updateCalls int
	rateCalls   int
	availCalls  int
	lastAction  string
	lastEndedAt string
	lastRating  int
	lastReview  string
}

func (f *fakeUpstream) CreateSession(_ context.Context, _ string, _ upstream.CreateSessionInput) (int64, error) {
	return f.createID, f.createErr
}

func (f *fakeUpstream) UpdateSession(_ context.Context, _ string, _ int64, _, action string) error {
	f.updateCalls++
	f.lastAction = action
	return f.updateErr
}

func (f *fakeUpstream) EndSession(_ context.Context, _ string, _ int64, endedAt string) error {
	f.lastEndedAt = endedAt
	return f.endErr
}

func (f *fakeUpstream) RateSession(_ context.Context, _ string, _ int64, rating int, review string) error {
	f.rateCalls++
	f.lastRating = rating
	f.lastReview = review
	return f.rateErr
}

func (f *fakeUpstream) Availability(_ context.Context, _ string, _ int64, _ models.ConsultationType) (bool, error) {
	f.availCalls++
	return f.available, f.availErr
}

type fakeStore struct {
	nextID   int64
	sessions map[int64]*models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[int64]*models.Session)}
}

func (f *fakeStore) Create(_ context.Context, s *models.Session) error {
	f.nextID++
	s.ID = f.nextID
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) Update(_ context.Context, s *models.Session) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID int64, _ int) ([]models.Session, error) {
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func newTestFlow(up *fakeUpstream, store *fakeStore) *Flow {
	return NewFlow(up, store, nil, zap.NewNop())
}

func seedSession(t *testing.T, store *fakeStore, state string, consultationType models.ConsultationType) *models.Session {
	t.Helper()
	s := &models.Session{
		UpstreamID:     100,
		UserID:         1,
		ProfessionalID: 7,
		Type:           consultationType,
		State:          state,
		RateSnapshot:   1000,
		Amount:         1000,
	}
	if err := store.Create(context.Background(), s); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func TestCreateSnapshotsRateAndAmount(t *testing.T) {
	up := &fakeUpstream{createID: 42}
	store := newFakeStore()
	flow := newTestFlow(up, store)

	prof := models.Professional{ID: 7, Name: "Dr. A", Category: "legal", Rate: 1500}
	s, err := flow.Create(context.Background(), "tok", 1, prof, "video")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.State != StateCreated {
		t.Fatalf("state: got %s, want created", s.State)
	}
	if s.UpstreamID != 42 {
		t.Fatalf("upstream id: got %d", s.UpstreamID)
	}
	if s.RateSnapshot != 1500 {
		t.Fatalf("rate snapshot: got %v", s.RateSnapshot)
	}
	if s.Amount != 3000 {
		t.Fatalf("amount: got %d, want 3000", s.Amount)
	}
}

func TestCreateNormalizesVoiceAlias(t *testing.T) {
	up := &fakeUpstream{createID: 1}
	flow := newTestFlow(up, newFakeStore())

	s, err := flow.Create(context.Background(), "tok", 1, models.Professional{ID: 7, Rate: 1000}, "voice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.Type != models.TypeAudio {
		t.Fatalf("type: got %s, want audio", s.Type)
	}
	if s.Amount != 1500 {
		t.Fatalf("amount: got %d, want 1500", s.Amount)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	up := &fakeUpstream{}
	flow := newTestFlow(up, newFakeStore())

	_, err := flow.Create(context.Background(), "tok", 1, models.Professional{ID: 7}, "hologram")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestCreateDefaultsMissingRate(t *testing.T) {
	up := &fakeUpstream{createID: 1}
	flow := newTestFlow(up, newFakeStore())

	s, err := flow.Create(context.Background(), "tok", 1, models.Professional{ID: 7}, "chat")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.RateSnapshot != 1000 || s.Amount != 1000 {
		t.Fatalf("defaults not applied: rate=%v amount=%d", s.RateSnapshot, s.Amount)
	}
}

func TestStartChatSkipsAvailabilityCheck(t *testing.T) {
	up := &fakeUpstream{}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateCreated, models.TypeChat)

	s, err := flow.Start(context.Background(), "tok", 1, seeded.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if up.availCalls != 0 {
		t.Fatalf("chat start should not check availability, got %d calls", up.availCalls)
	}
	if s.State != StateActive {
		t.Fatalf("state: got %s", s.State)
	}
	if up.lastAction != "start_chat" {
		t.Fatalf("action: got %s", up.lastAction)
	}
	if s.StartedAt.IsZero() {
		t.Fatal("started_at not recorded")
	}
}

func TestStartVideoBlockedWhenUnavailable(t *testing.T) {
	up := &fakeUpstream{available: false}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateCreated, models.TypeVideo)

	_, err := flow.Start(context.Background(), "tok", 1, seeded.ID)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if up.updateCalls != 0 {
		t.Fatal("session should not start upstream when unavailable")
	}
}

func TestStartVoiceUsesVoiceAction(t *testing.T) {
	up := &fakeUpstream{available: true}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateCreated, models.TypeAudio)

	if _, err := flow.Start(context.Background(), "tok", 1, seeded.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if up.lastAction != "start_voice" {
		t.Fatalf("action: got %s, want start_voice", up.lastAction)
	}
}

func TestStartRejectsWrongState(t *testing.T) {
	up := &fakeUpstream{}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateEnded, models.TypeChat)

	_, err := flow.Start(context.Background(), "tok", 1, seeded.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestEndClampsTimestampToStart(t *testing.T) {
	up := &fakeUpstream{}
	store := newFakeStore()
	flow := newTestFlow(up, store)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seeded := seedSession(t, store, StateActive, models.TypeChat)
	seeded.StartedAt = started
	if err := store.Update(context.Background(), seeded); err != nil {
		t.Fatalf("seed update: %v", err)
	}

	original := now
	now = func() time.Time { return started.Add(-5 * time.Minute) }
	t.Cleanup(func() { now = original })

	s, err := flow.End(context.Background(), "tok", 1, seeded.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if s.EndedAt.Before(s.StartedAt) {
		t.Fatalf("ended_at %v precedes started_at %v", s.EndedAt, s.StartedAt)
	}
	if up.lastEndedAt != started.Format(time.RFC3339) {
		t.Fatalf("upstream ended_at: got %s, want %s", up.lastEndedAt, started.Format(time.RFC3339))
	}
}

func TestRateRejectsOutOfRangeWithoutNetwork(t *testing.T) {
	up := &fakeUpstream{}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateEnded, models.TypeChat)

	for _, stars := range []int{0, -1, 6} {
		if _, err := flow.Rate(context.Background(), "tok", 1, seeded.ID, stars, ""); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: expected ErrInvalidRating, got %v", stars, err)
		}
	}
	if up.rateCalls != 0 {
		t.Fatalf("invalid ratings must not reach the upstream, got %d calls", up.rateCalls)
	}
}

func TestRateSurvivesUpstreamFailure(t *testing.T) {
	up := &fakeUpstream{rateErr: errors.New("boom")}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateEnded, models.TypeChat)

	s, err := flow.Rate(context.Background(), "tok", 1, seeded.ID, 4, "helpful")
	if err != nil {
		t.Fatalf("rate should tolerate upstream failure, got %v", err)
	}
	if s.State != StateRated || s.Rating != 4 || s.Review != "helpful" {
		t.Fatalf("rating not recorded locally: %+v", s)
	}
}

func TestLifecycleTransitionsToReceipted(t *testing.T) {
	up := &fakeUpstream{}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateEnded, models.TypeChat)

	if _, err := flow.MarkPaid(context.Background(), seeded.ID); err != nil {
		t.Fatalf("mark paid from ended: %v", err)
	}
	s, err := flow.MarkReceipted(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("mark receipted: %v", err)
	}
	if s.State != StateReceipted {
		t.Fatalf("state: got %s", s.State)
	}

	if _, err := flow.MarkPaid(context.Background(), seeded.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double pay, got %v", err)
	}
}

func TestTransitionsHiddenFromOtherUsers(t *testing.T) {
	up := &fakeUpstream{available: true}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateCreated, models.TypeChat)

	if _, err := flow.Start(context.Background(), "tok", 999, seeded.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("start by stranger: expected ErrNotFound, got %v", err)
	}
	if _, err := flow.End(context.Background(), "tok", 999, seeded.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("end by stranger: expected ErrNotFound, got %v", err)
	}
	if _, err := flow.Rate(context.Background(), "tok", 999, seeded.ID, 5, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rate by stranger: expected ErrNotFound, got %v", err)
	}
	if up.updateCalls != 0 || up.rateCalls != 0 {
		t.Fatalf("stranger calls must not reach the upstream: updates=%d rates=%d", up.updateCalls, up.rateCalls)
	}
}

func TestRatedSessionCanStillBePaid(t *testing.T) {
	up := &fakeUpstream{}
	store := newFakeStore()
	flow := newTestFlow(up, store)
	seeded := seedSession(t, store, StateRated, models.TypeChat)

	s, err := flow.MarkPaid(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("mark paid from rated: %v", err)
	}
	if s.State != StatePaid {
		t.Fatalf("state: got %s", s.State)
	}
}

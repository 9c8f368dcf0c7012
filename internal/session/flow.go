// Package session drives a consultation through its fixed lifecycle:
// created, active, ended, optionally rated, paid, receipted. Transitions are
// guarded; an abandoned session simply stays where it was and its active
// cache entry ages out.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quickconnect/internal/models"
	"quickconnect/internal/pricing"
	"quickconnect/internal/upstream"
)

// Lifecycle states.
const (
	StateCreated   = "created"
	StateActive    = "active"
	StateEnded     = "ended"
	StateRated     = "rated"
	StatePaid      = "paid"
	StateReceipted = "receipted"
)

var (
	// ErrInvalidTransition is returned when an operation does not apply to
	// the session's current state.
	ErrInvalidTransition = errors.New("session: invalid state transition")
	// ErrInvalidRating rejects ratings outside 1..5 before any network call.
	ErrInvalidRating = errors.New("session: rating must be between 1 and 5")
	// ErrUnavailable blocks voice/video starts when the professional is not
	// reachable for calls.
	ErrUnavailable = errors.New("session: professional not available for calls")
	// ErrUnknownType rejects consultation types outside chat/audio/video.
	ErrUnknownType = errors.New("session: unknown consultation type")
)

var transitions = map[string][]string{
	StateCreated: {StateActive},
	StateActive:  {StateEnded},
	StateEnded:   {StateRated, StatePaid},
	StateRated:   {StatePaid},
	StatePaid:    {StateReceipted},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// now is a seam for tests.
var now = func() time.Time { return time.Now().UTC() }

// Upstream is the subset of backend operations the flow needs.
type Upstream interface {
	CreateSession(ctx context.Context, token string, in upstream.CreateSessionInput) (int64, error)
	UpdateSession(ctx context.Context, token string, sessionID int64, status, action string) error
	EndSession(ctx context.Context, token string, sessionID int64, endedAt string) error
	RateSession(ctx context.Context, token string, sessionID int64, rating int, review string) error
	Availability(ctx context.Context, token string, professionalID int64, t models.ConsultationType) (bool, error)
}

// Store persists session projections.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id int64) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
}

// Flow coordinates lifecycle transitions between the upstream backend and
// the local projection.
type Flow struct {
	upstream Upstream
	store    Store
	active   *ActiveStore
	logger   *zap.Logger
}

// NewFlow builds the lifecycle coordinator. active may be nil.
func NewFlow(up Upstream, store Store, active *ActiveStore, logger *zap.Logger) *Flow {
	return &Flow{upstream: up, store: store, active: active, logger: logger}
}

// Create registers a session upstream and stores the local projection in the
// created state. The consultation type and rate snapshot are fixed here; a
// different type means a new session.
func (f *Flow) Create(ctx context.Context, token string, userID int64, prof models.Professional, rawType string) (*models.Session, error) {
	consultationType := models.NormalizeType(rawType)
	if !models.KnownType(consultationType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, rawType)
	}

	rate := prof.Rate
	if rate <= 0 {
		rate = pricing.DefaultRate
	}
	amount := pricing.Amount(prof.Rate, consultationType)

	upstreamID, err := f.upstream.CreateSession(ctx, token, upstream.CreateSessionInput{
		ProfessionalID: prof.ID,
		ClientID:       userID,
		SessionType:    string(consultationType),
		Category:       prof.Category,
		Rate:           rate,
	})
	if err != nil {
		return nil, fmt.Errorf("session: upstream create: %w", err)
	}

	s := &models.Session{
		UpstreamID:       upstreamID,
		UserID:           userID,
		ProfessionalID:   prof.ID,
		ProfessionalName: prof.Name,
		Category:         prof.Category,
		Type:             consultationType,
		State:            StateCreated,
		RateSnapshot:     rate,
		Amount:           amount,
	}
	if err := f.store.Create(ctx, s); err != nil {
		return nil, err
	}

	f.cacheActive(ctx, s)
	f.logger.Info("session created",
		zap.Int64("session_id", s.ID),
		zap.Int64("professional_id", prof.ID),
		zap.String("type", string(consultationType)),
		zap.Int64("amount", amount),
	)
	return s, nil
}

// Start moves a created session to active. Voice and video starts require
// the professional to report available. Only the session's owner may start it.
func (f *Flow) Start(ctx context.Context, token string, userID, sessionID int64) (*models.Session, error) {
	s, err := f.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !canTransition(s.State, StateActive) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateActive)
	}

	if s.Type != models.TypeChat {
		available, err := f.upstream.Availability(ctx, token, s.ProfessionalID, s.Type)
		if err != nil {
			return nil, fmt.Errorf("session: availability check: %w", err)
		}
		if !available {
			return nil, ErrUnavailable
		}
	}

	if err := f.upstream.UpdateSession(ctx, token, s.UpstreamID, StateActive, startAction(s.Type)); err != nil {
		return nil, fmt.Errorf("session: upstream start: %w", err)
	}

	s.State = StateActive
	s.StartedAt = now()
	if err := f.store.Update(ctx, s); err != nil {
		return nil, err
	}

	f.cacheActive(ctx, s)
	return s, nil
}

// End moves an active session to ended, recording an end timestamp never
// earlier than the start timestamp.
func (f *Flow) End(ctx context.Context, token string, userID, sessionID int64) (*models.Session, error) {
	s, err := f.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !canTransition(s.State, StateEnded) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateEnded)
	}

	endedAt := now()
	if endedAt.Before(s.StartedAt) {
		endedAt = s.StartedAt
	}

	if err := f.upstream.EndSession(ctx, token, s.UpstreamID, endedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("session: upstream end: %w", err)
	}

	s.State = StateEnded
	s.EndedAt = endedAt
	if err := f.store.Update(ctx, s); err != nil {
		return nil, err
	}

	f.dropActive(ctx, s)
	return s, nil
}

// Rate records a 1-5 star rating with an optional review. A zero rating is
// rejected locally with no network call. Upstream submission failures are
// non-fatal: the rating is an enhancement, not a payment gate.
func (f *Flow) Rate(ctx context.Context, token string, userID, sessionID int64, stars int, review string) (*models.Session, error) {
	if stars < 1 || stars > 5 {
		return nil, ErrInvalidRating
	}

	s, err := f.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !canTransition(s.State, StateRated) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateRated)
	}

	if err := f.upstream.RateSession(ctx, token, s.UpstreamID, stars, review); err != nil {
		f.logger.Warn("rating submission failed, continuing to payment",
			zap.Int64("session_id", s.ID), zap.Error(err))
	}

	s.State = StateRated
	s.Rating = stars
	s.Review = review
	if err := f.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkPaid moves an ended or rated session to paid once a payment completes.
func (f *Flow) MarkPaid(ctx context.Context, sessionID int64) (*models.Session, error) {
	return f.advance(ctx, sessionID, StatePaid)
}

// MarkReceipted finalizes the session after its receipt was generated.
func (f *Flow) MarkReceipted(ctx context.Context, sessionID int64) (*models.Session, error) {
	return f.advance(ctx, sessionID, StateReceipted)
}

// Get returns the local projection.
func (f *Flow) Get(ctx context.Context, sessionID int64) (*models.Session, error) {
	return f.store.Get(ctx, sessionID)
}

// getOwned loads a projection and hides it from anyone but its owner. A
// mismatch reads the same as a missing session.
func (f *Flow) getOwned(ctx context.Context, userID, sessionID int64) (*models.Session, error) {
	s, err := f.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrNotFound
	}
	return s, nil
}

// ListByUser returns the user's local session projections.
func (f *Flow) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	return f.store.ListByUser(ctx, userID, limit)
}

func (f *Flow) advance(ctx context.Context, sessionID int64, to string) (*models.Session, error) {
	s, err := f.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canTransition(s.State, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	if err := f.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func startAction(t models.ConsultationType) string {
	switch t {
	case models.TypeAudio:
		return "start_voice"
	case models.TypeVideo:
		return "start_video"
	default:
		return "start_chat"
	}
}

func (f *Flow) cacheActive(ctx context.Context, s *models.Session) {
	if f.active == nil {
		return
	}
	if err := f.active.Save(ctx, ActiveSession{
		SessionID:      s.ID,
		UserID:         s.UserID,
		ProfessionalID: s.ProfessionalID,
		Type:           string(s.Type),
		State:          s.State,
	}); err != nil {
		f.logger.Warn("failed to cache active session", zap.Int64("session_id", s.ID), zap.Error(err))
	}
}

func (f *Flow) dropActive(ctx context.Context, s *models.Session) {
	if f.active == nil {
		return
	}
	if err := f.active.Delete(ctx, s.ID); err != nil {
		f.logger.Warn("failed to drop active session cache", zap.Int64("session_id", s.ID), zap.Error(err))
	}
}

// Package payments runs the three payment flows (M-Pesa STK push, card
// redirect, bank transfer) and keeps the local transaction projection. The
// user's "I've paid" assertion is only a hint: the authoritative state is
// always polled from the backend.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickconnect/internal/models"
	"quickconnect/internal/phone"
	"quickconnect/internal/pricing"
	"quickconnect/internal/session"
	"quickconnect/internal/upstream"
)

var (
	// ErrPaymentFailed is returned when the backend reports a failed payment.
	ErrPaymentFailed = errors.New("payments: payment failed")
	// ErrVerificationPending means the poll budget expired with the payment
	// still unverified. The transaction stays pending.
	ErrVerificationPending = errors.New("payments: verification still pending")
	// ErrNotPayable blocks payment initiation for sessions that have not
	// ended yet or are already settled.
	ErrNotPayable = errors.New("payments: session is not awaiting payment")
)

// Upstream is the subset of backend calls the payment flows need.
type Upstream interface {
	InitiateSTKPush(ctx context.Context, token string, in upstream.STKPushInput) (*upstream.STKPushResult, error)
	InitiateCardPayment(ctx context.Context, token string, in upstream.CardPaymentInput) (*upstream.CardPaymentResult, error)
	PaymentStatus(ctx context.Context, token, checkoutID string) (string, error)
}

// Store persists transaction projections.
type Store interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, tx *models.Transaction) error
	GetByCheckout(ctx context.Context, checkoutID string) (*models.Transaction, error)
	GetBySession(ctx context.Context, sessionID int64) (*models.Transaction, error)
}

// Lifecycle is the session flow subset used to settle sessions.
type Lifecycle interface {
	Get(ctx context.Context, sessionID int64) (*models.Session, error)
	MarkPaid(ctx context.Context, sessionID int64) (*models.Session, error)
}

// now is a seam for tests.
var now = func() time.Time { return time.Now().UTC() }

// Service drives payment flows.
type Service struct {
	upstream     Upstream
	store        Store
	flow         Lifecycle
	currency     string
	pollInterval time.Duration
	pollBudget   time.Duration
	logger       *zap.Logger
}

// NewService builds the payment service.
func NewService(up Upstream, store Store, flow Lifecycle, currency string, pollInterval, pollBudget time.Duration, logger *zap.Logger) *Service {
	if currency == "" {
		currency = "KES"
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if pollBudget <= 0 {
		pollBudget = 30 * time.Second
	}
	return &Service{
		upstream:     up,
		store:        store,
		flow:         flow,
		currency:     currency,
		pollInterval: pollInterval,
		pollBudget:   pollBudget,
		logger:       logger,
	}
}

// InitiateMpesa validates the phone number locally, then asks the backend to
// trigger an STK push. An invalid number blocks the flow with no network call.
func (s *Service) InitiateMpesa(ctx context.Context, token string, userID, sessionID int64, rawPhone string) (*models.Transaction, error) {
	msisdn, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	sess, err := s.payableSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	amount := pricing.Amount(sess.RateSnapshot, sess.Type)
	result, err := s.upstream.InitiateSTKPush(ctx, token, upstream.STKPushInput{
		PhoneNumber:      msisdn,
		Amount:           amount,
		ProfessionalID:   sess.ProfessionalID,
		SessionID:        sess.UpstreamID,
		ConsultationType: string(sess.Type),
		AccountReference: fmt.Sprintf("CONSULT_%d", sess.ProfessionalID),
		TransactionDesc:  fmt.Sprintf("Consultation with %s", sess.ProfessionalName),
	})
	if err != nil {
		return nil, err
	}

	tx := s.newTransaction(sess, models.MethodMpesa, amount)
	tx.CheckoutID = result.CheckoutRequestID
	if err := s.store.Create(ctx, tx); err != nil {
		s.logger.Warn("failed to record mpesa transaction", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	return tx, nil
}

// Confirm handles the user's payment assertion by polling the backend for
// the authoritative payment state until it settles or the budget expires.
// Only the transaction's owner may confirm it.
func (s *Service) Confirm(ctx context.Context, token string, userID int64, checkoutID string) (*models.Transaction, error) {
	tx, err := s.store.GetByCheckout(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, ErrTransactionNotFound
	}

	deadline := now().Add(s.pollBudget)
	for {
		status, err := s.upstream.PaymentStatus(ctx, token, checkoutID)
		if err != nil {
			s.logger.Warn("payment status poll failed", zap.String("checkout_id", checkoutID), zap.Error(err))
		} else {
			switch status {
			case models.TxCompleted:
				return s.settle(ctx, tx)
			case models.TxFailed:
				tx.Status = models.TxFailed
				if err := s.store.Update(ctx, tx); err != nil {
					s.logger.Warn("failed to record failed payment", zap.String("tx_id", tx.ID), zap.Error(err))
				}
				return tx, ErrPaymentFailed
			}
		}

		if now().Add(s.pollInterval).After(deadline) {
			return tx, ErrVerificationPending
		}
		select {
		case <-ctx.Done():
			return tx, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// InitiateCard starts the card redirect flow and records a pending
// transaction under the gateway reference.
func (s *Service) InitiateCard(ctx context.Context, token string, userID, sessionID int64, email string) (*models.Transaction, string, error) {
	sess, err := s.payableSession(ctx, userID, sessionID)
	if err != nil {
		return nil, "", err
	}

	amount := pricing.Amount(sess.RateSnapshot, sess.Type)
	result, err := s.upstream.InitiateCardPayment(ctx, token, upstream.CardPaymentInput{
		Amount:         amount,
		ProfessionalID: sess.ProfessionalID,
		SessionID:      sess.UpstreamID,
		Email:          email,
	})
	if err != nil {
		return nil, "", err
	}

	tx := s.newTransaction(sess, models.MethodCard, amount)
	tx.CheckoutID = result.Reference
	if tx.CheckoutID == "" {
		tx.CheckoutID = tx.ID
	}
	if err := s.store.Create(ctx, tx); err != nil {
		s.logger.Warn("failed to record card transaction", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	return tx, result.RedirectURL, nil
}

// ConfirmBank records a manually confirmed bank transfer. The money already
// moved outside the platform, so recording failures degrade to a synthesized
// local record instead of a hard error.
func (s *Service) ConfirmBank(ctx context.Context, userID, sessionID int64, reference string) (*models.Transaction, error) {
	sess, err := s.payableSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	amount := pricing.Amount(sess.RateSnapshot, sess.Type)
	tx := s.newTransaction(sess, models.MethodBank, amount)
	tx.CheckoutID = reference
	tx.Status = models.TxCompleted
	if err := s.store.Create(ctx, tx); err != nil {
		s.logger.Warn("failed to record bank transaction, synthesizing local record",
			zap.Int64("session_id", sess.ID), zap.Error(err))
		tx = s.synthesize(sess, models.MethodBank, reference, amount)
	}

	if _, err := s.flow.MarkPaid(ctx, sess.ID); err != nil {
		s.logger.Warn("failed to mark session paid", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	return tx, nil
}

// TransactionForSession returns the session's transaction projection.
func (s *Service) TransactionForSession(ctx context.Context, sessionID int64) (*models.Transaction, error) {
	return s.store.GetBySession(ctx, sessionID)
}

// settle finalizes a verified payment. The external payment already
// succeeded at this point, so projection failures are downgraded to a
// synthesized record: the user is never shown a hard error after paying.
func (s *Service) settle(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	tx.Status = models.TxCompleted
	if err := s.store.Update(ctx, tx); err != nil {
		s.logger.Warn("failed to record completed payment, synthesizing local record",
			zap.String("tx_id", tx.ID), zap.Error(err))
		synthesized := *tx
		synthesized.ID = fmt.Sprintf("fallback_%d", now().UnixMilli())
		synthesized.Synthesized = true
		tx = &synthesized
	}

	if _, err := s.flow.MarkPaid(ctx, tx.SessionID); err != nil {
		s.logger.Warn("failed to mark session paid", zap.Int64("session_id", tx.SessionID), zap.Error(err))
	}

	s.logger.Info("payment settled",
		zap.String("tx_id", tx.ID),
		zap.Int64("session_id", tx.SessionID),
		zap.Int64("amount", tx.Amount),
		zap.String("method", string(tx.Method)),
	)
	return tx, nil
}

func (s *Service) payableSession(ctx context.Context, userID, sessionID int64) (*models.Session, error) {
	sess, err := s.flow.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, session.ErrNotFound
	}
	if sess.State != session.StateEnded && sess.State != session.StateRated {
		return nil, fmt.Errorf("%w: state %s", ErrNotPayable, sess.State)
	}
	return sess, nil
}

func (s *Service) newTransaction(sess *models.Session, method models.PaymentMethod, amount int64) *models.Transaction {
	return &models.Transaction{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		ProfessionalID: sess.ProfessionalID,
		Amount:         amount,
		Currency:       s.currency,
		Method:         method,
		Status:         models.TxPending,
		CreatedAt:      now(),
	}
}

func (s *Service) synthesize(sess *models.Session, method models.PaymentMethod, checkoutID string, amount int64) *models.Transaction {
	return &models.Transaction{
		ID:             fmt.Sprintf("fallback_%d", now().UnixMilli()),
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		ProfessionalID: sess.ProfessionalID,
		Amount:         amount,
		Currency:       s.currency,
		Method:         method,
		Status:         models.TxCompleted,
		CheckoutID:     checkoutID,
		Synthesized:    true,
		CreatedAt:      now(),
	}
}

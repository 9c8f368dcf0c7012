package payments

import (
	"context"
	"database/sql"
	"errors"

	"quickconnect/internal/models"
)

// ErrTransactionNotFound indicates a missing transaction projection.
var ErrTransactionNotFound = errors.New("payments: transaction not found")

// PostgresStore persists transaction projections.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns the transactions repository.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new transaction.
func (r *PostgresStore) Create(ctx context.Context, tx *models.Transaction) error {
	const query = `
		INSERT INTO payment_transactions
			(id, session_id, user_id, professional_id, amount, currency, method,
			 status, checkout_id, synthesized, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.SessionID,
		tx.UserID,
		tx.ProfessionalID,
		tx.Amount,
		tx.Currency,
		tx.Method,
		tx.Status,
		tx.CheckoutID,
		tx.Synthesized,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
}

// Update writes status changes back.
func (r *PostgresStore) Update(ctx context.Context, tx *models.Transaction) error {
	const query = `
		UPDATE payment_transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, tx.ID, tx.Status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// GetByCheckout loads a transaction by its gateway checkout reference.
func (r *PostgresStore) GetByCheckout(ctx context.Context, checkoutID string) (*models.Transaction, error) {
	return r.getWhere(ctx, "checkout_id = $1", checkoutID)
}

// GetBySession loads the latest transaction for a session.
func (r *PostgresStore) GetBySession(ctx context.Context, sessionID int64) (*models.Transaction, error) {
	return r.getWhere(ctx, "session_id = $1", sessionID)
}

func (r *PostgresStore) getWhere(ctx context.Context, where string, arg any) (*models.Transaction, error) {
	query := `
		SELECT id, session_id, user_id, professional_id, amount, currency, method,
		       status, checkout_id, synthesized, created_at, updated_at
		FROM payment_transactions
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT 1
	`
	var tx models.Transaction
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&tx.ID,
		&tx.SessionID,
		&tx.UserID,
		&tx.ProfessionalID,
		&tx.Amount,
		&tx.Currency,
		&tx.Method,
		&tx.Status,
		&tx.CheckoutID,
		&tx.Synthesized,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

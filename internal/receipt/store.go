package receipt

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound indicates no stored receipt for the session.
var ErrNotFound = errors.New("receipt: not found")

// PostgresStore keeps issued receipts so a user can re-fetch them.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns the receipts repository.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save stores one receipt per session; re-issuing overwrites.
func (r *PostgresStore) Save(ctx context.Context, sessionID int64, rec Receipt) error {
	const query = `
		INSERT INTO receipts
			(session_id, number, issued_date, issued_time, client_name,
			 professional_name, service, amount, currency, transaction_id, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			number = EXCLUDED.number,
			issued_date = EXCLUDED.issued_date,
			issued_time = EXCLUDED.issued_time,
			amount = EXCLUDED.amount,
			transaction_id = EXCLUDED.transaction_id,
			method = EXCLUDED.method
	`
	_, err := r.db.ExecContext(ctx, query,
		sessionID,
		rec.Number,
		rec.Date,
		rec.Time,
		rec.ClientName,
		rec.ProfessionalName,
		rec.Service,
		rec.Amount,
		rec.Currency,
		rec.TransactionID,
		rec.Method,
	)
	return err
}

// Get loads the receipt issued for a session.
func (r *PostgresStore) Get(ctx context.Context, sessionID int64) (*Receipt, error) {
	const query = `
		SELECT number, issued_date, issued_time, client_name, professional_name,
		       service, amount, currency, transaction_id, method
		FROM receipts
		WHERE session_id = $1
	`
	var rec Receipt
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.Number,
		&rec.Date,
		&rec.Time,
		&rec.ClientName,
		&rec.ProfessionalName,
		&rec.Service,
		&rec.Amount,
		&rec.Currency,
		&rec.TransactionID,
		&rec.Method,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

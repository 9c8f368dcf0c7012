package session

import (
	"context"
	"database/sql"
	"errors"

	"quickconnect/internal/models"
)

// ErrNotFound indicates a missing session projection.
var ErrNotFound = errors.New("session: not found")

// PostgresStore persists session projections.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns the sessions repository.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new projection and fills the generated id.
func (r *PostgresStore) Create(ctx context.Context, s *models.Session) error {
	const query = `
		INSERT INTO consultation_sessions
			(upstream_id, user_id, professional_id, professional_name, category,
			 consultation_type, state, rate_snapshot, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		s.UpstreamID,
		s.UserID,
		s.ProfessionalID,
		s.ProfessionalName,
		s.Category,
		s.Type,
		s.State,
		s.RateSnapshot,
		s.Amount,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Get loads one projection by id.
func (r *PostgresStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	const query = `
		SELECT id, upstream_id, user_id, professional_id, professional_name, category,
		       consultation_type, state, rate_snapshot, amount, rating, review,
		       COALESCE(started_at, 'epoch'::timestamptz),
		       COALESCE(ended_at, 'epoch'::timestamptz),
		       created_at, updated_at
		FROM consultation_sessions
		WHERE id = $1
	`
	var s models.Session
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.UpstreamID,
		&s.UserID,
		&s.ProfessionalID,
		&s.ProfessionalName,
		&s.Category,
		&s.Type,
		&s.State,
		&s.RateSnapshot,
		&s.Amount,
		&s.Rating,
		&s.Review,
		&s.StartedAt,
		&s.EndedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update writes the mutable lifecycle fields back.
func (r *PostgresStore) Update(ctx context.Context, s *models.Session) error {
	const query = `
		UPDATE consultation_sessions
		SET state = $2,
		    rating = $3,
		    review = $4,
		    started_at = NULLIF($5, 'epoch'::timestamptz),
		    ended_at = NULLIF($6, 'epoch'::timestamptz),
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.State,
		s.Rating,
		s.Review,
		s.StartedAt,
		s.EndedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns the user's latest projections.
func (r *PostgresStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, upstream_id, user_id, professional_id, professional_name, category,
		       consultation_type, state, rate_snapshot, amount, rating, review,
		       COALESCE(started_at, 'epoch'::timestamptz),
		       COALESCE(ended_at, 'epoch'::timestamptz),
		       created_at, updated_at
		FROM consultation_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(
			&s.ID,
			&s.UpstreamID,
			&s.UserID,
			&s.ProfessionalID,
			&s.ProfessionalName,
			&s.Category,
			&s.Type,
			&s.State,
			&s.RateSnapshot,
			&s.Amount,
			&s.Rating,
			&s.Review,
			&s.StartedAt,
			&s.EndedAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

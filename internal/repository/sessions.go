package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aphexes/flaskblog/internal/models"
)

// CreateSession persists a new login session
func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, remember, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, session.ID, session.UserID, session.Remember, session.ExpiresAt).
		Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindSession retrieves a session by id
func (r *Repository) FindSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	query := `
		SELECT id, user_id, remember, expires_at, created_at
		FROM sessions
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&session.ID, &session.UserID, &session.Remember, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session by id. Deleting an absent session is not
// an error, which keeps logout idempotent.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were purged.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return n, nil
}

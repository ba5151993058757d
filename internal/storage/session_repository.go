package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/packing-audit/internal/models"
)

// SessionRepository handles login session persistence
type SessionRepository struct {
	db *PostgresDB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *PostgresDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ReplaceForUser deletes every session of the user and inserts session in
// the same transaction, leaving exactly one session per user.
func (r *SessionRepository) ReplaceForUser(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, session.UserID); err != nil {
			return fmt.Errorf("failed to delete previous sessions: %w", err)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, session_token, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5)`,
			session.ID, session.UserID, session.SessionToken, session.CreatedAt, session.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a session
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.Pool().QueryRow(ctx,
		`SELECT id, user_id, session_token, created_at, expires_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.SessionToken, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Rotate replaces the token hash and expiry of a session
func (r *SessionRepository) Rotate(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE sessions SET session_token = $2, expires_at = $3 WHERE id = $1`,
		id, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID removes every session of a user
func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// CountByUserID counts the sessions of a user
func (r *SessionRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

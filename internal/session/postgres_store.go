package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists sessions to Postgres so they survive gateway restarts.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a store backed by sqlx.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts the session keyed by token hash.
func (s *PostgresStore) Save(ctx context.Context, sess Session) error {
	const query = `
INSERT INTO sessions (id, token_hash, user_data, refresh_token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (token_hash) DO UPDATE
SET user_data = EXCLUDED.user_data,
    refresh_token = EXCLUDED.refresh_token,
    expires_at = EXCLUDED.expires_at`

	if _, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.TokenHash, []byte(sess.User), sess.RefreshToken, sess.CreatedAt, sess.ExpiresAt,
	); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns the session for the token hash, or nil when absent or expired.
func (s *PostgresStore) Get(ctx context.Context, tokenHash string) (*Session, error) {
	const query = `
SELECT id, token_hash, user_data, refresh_token, created_at, expires_at
FROM sessions
WHERE token_hash = $1 AND expires_at > now()`

	var row struct {
		ID           string `db:"id"`
		TokenHash    string `db:"token_hash"`
		UserData     []byte `db:"user_data"`
		RefreshToken string `db:"refresh_token"`
		CreatedAt    sql.NullTime
		ExpiresAt    sql.NullTime
	}

	var sess Session
	err := s.db.QueryRowxContext(ctx, query, tokenHash).Scan(
		&sess.ID, &sess.TokenHash, &row.UserData, &sess.RefreshToken, &row.CreatedAt, &row.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess.User = row.UserData
	if row.CreatedAt.Valid {
		sess.CreatedAt = row.CreatedAt.Time
	}
	if row.ExpiresAt.Valid {
		sess.ExpiresAt = row.ExpiresAt.Time
	}
	return &sess, nil
}

// Delete removes the session for the token hash.
func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and reports how many were evicted.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokedToken is a persisted revocation entry.
type RevokedToken struct {
	JTI       string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// RevocationRepository persists revocation entries so a restart does not
// resurrect logged-out tokens.
type RevocationRepository interface {
	// Revoke records jti. Revoking an existing jti is not an error.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	ListActive(ctx context.Context, now time.Time) ([]RevokedToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SQLiteRevocationRepository implements RevocationRepository using SQLite.
type SQLiteRevocationRepository struct {
	db *sql.DB
}

// NewRevocationRepository creates a new SQLite-backed revocation repository.
func NewRevocationRepository(db *sql.DB) *SQLiteRevocationRepository {
	return &SQLiteRevocationRepository{db: db}
}

// Revoke inserts or extends a revocation entry.
func (r *SQLiteRevocationRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at, revoked_at) VALUES (?, ?, ?)
		 ON CONFLICT (jti) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`,
		jti, formatTime(expiresAt), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// ListActive returns entries that have not expired at now.
func (r *SQLiteRevocationRepository) ListActive(ctx context.Context, now time.Time) ([]RevokedToken, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT jti, expires_at, revoked_at FROM revoked_tokens WHERE expires_at >= ? ORDER BY expires_at",
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("listing revoked tokens: %w", err)
	}
	defer rows.Close()

	var tokens []RevokedToken
	for rows.Next() {
		var t RevokedToken
		var expiresAt, revokedAt string
		if err := rows.Scan(&t.JTI, &expiresAt, &revokedAt); err != nil {
			return nil, fmt.Errorf("scanning revoked token: %w", err)
		}
		t.ExpiresAt = parseTime(expiresAt)
		t.RevokedAt = parseTime(revokedAt)
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating revoked tokens: %w", err)
	}
	return tokens, nil
}

// DeleteExpired removes entries that expired before now.
func (r *SQLiteRevocationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?", formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired revocations: %w", err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return n, nil
}

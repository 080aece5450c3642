// Package pgstore implements the auth repositories on PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/itz-ankit01/inbotiq-core/internal/auth"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/postgres"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

// UserRepository implements auth.UserRepository.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a PostgreSQL-backed user repository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user. The unique index on email maps to auth.ErrEmailExists.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = auth.RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), now, now,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return auth.ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by normalised email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	var u auth.User
	var role string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

// RevocationRepository implements auth.RevocationRepository.
type RevocationRepository struct {
	db DBTX
}

// NewRevocationRepository creates a PostgreSQL-backed revocation repository.
func NewRevocationRepository(db DBTX) *RevocationRepository {
	return &RevocationRepository{db: db}
}

// Revoke inserts jti or extends its expiry.
func (r *RevocationRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		 ON CONFLICT (jti) DO UPDATE SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// ListActive returns entries not yet expired at now.
func (r *RevocationRepository) ListActive(ctx context.Context, now time.Time) ([]auth.RevokedToken, error) {
	rows, err := r.db.Query(ctx,
		`SELECT jti, expires_at, revoked_at FROM revoked_tokens WHERE expires_at >= $1 ORDER BY expires_at`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing revoked tokens: %w", err)
	}
	defer rows.Close()

	var tokens []auth.RevokedToken
	for rows.Next() {
		var t auth.RevokedToken
		if err := rows.Scan(&t.JTI, &t.ExpiresAt, &t.RevokedAt); err != nil {
			return nil, fmt.Errorf("scanning revoked token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating revoked tokens: %w", err)
	}
	return tokens, nil
}

// DeleteExpired removes entries that expired before now.
func (r *RevocationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ auth.UserRepository       = (*UserRepository)(nil)
	_ auth.RevocationRepository = (*RevocationRepository)(nil)
)

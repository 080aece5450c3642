package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores audit entries in PostgreSQL.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a PostgreSQL-backed audit repository.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func pgPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// Create inserts a new entry. ID, CreatedAt and Source are generated if empty.
func (r *PostgresRepository) Create(ctx context.Context, e *Entry) error {
	prepare(e)

	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs (id, action, outcome, user_id, role, reason, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Action, e.Outcome,
		nullableString(e.UserID), nullableString(e.Role), nullableString(e.Reason),
		e.Source, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// List returns entries matching filter, most recent first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.normalise()
	where, args := filter.where(pgPlaceholder)

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	n := len(args)
	query := "SELECT id, action, outcome, COALESCE(user_id, ''), COALESCE(role, ''), COALESCE(reason, ''), source, created_at FROM audit_logs " +
		where + " ORDER BY created_at DESC, id LIMIT " + pgPlaceholder(n+1) + " OFFSET " + pgPlaceholder(n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Outcome,
			&e.UserID, &e.Role, &e.Reason, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Package postgres provides the PostgreSQL connection pool and schema
// migrations used when DATABASE_URL points at a postgres:// server.
//
// Connections use pgx/v5's pgxpool. Migrations run through golang-migrate
// with an io/fs source, so the SQL is embedded in the binary by the
// migrations package and nothing is read from disk at startup.
//
// Usage:
//
//	pool, err := postgres.Open(ctx, postgres.Config{DSN: dsn, MaxConns: 10})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	m, err := postgres.NewMigrator(dsn)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//	return m.Up()
package postgres

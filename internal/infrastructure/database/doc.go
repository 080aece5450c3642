// Package database provides SQLite connectivity for Inbotiq Core.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Embedded, versioned schema migrations
//   - Health checks and lifecycle management
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions because it holds password hashes.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.SQLitePath()})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in migrations/sqlite and are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional matching .down.sql.
package database

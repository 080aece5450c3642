// Package migrations embeds SQL migration files into the binary.
//
// SQLite files follow the YYYYMMDD_HHMMSS_description.(up|down).sql naming
// used by the database package. PostgreSQL files follow golang-migrate's
// NNNNNN_description.(up|down).sql naming.
package migrations

import (
	"embed"

	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/database"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/postgres"
)

//go:embed sqlite/*.sql
var sqliteFS embed.FS

//go:embed postgres/*.sql
var postgresFS embed.FS

func init() {
	database.MigrationsFS = sqliteFS
	database.MigrationsDir = "sqlite"

	postgres.MigrationsFS = postgresFS
	postgres.MigrationsDir = "postgres"
}

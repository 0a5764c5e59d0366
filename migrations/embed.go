// Package migrations embeds the SQL migration files into the binary so the
// metadata store schema can be applied without files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

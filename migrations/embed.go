// Package migrations embeds the SQL schema for the activity archive.
//
// Importing it registers the files with the database package, so
// database.Migrate works without the files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.RegisterMigrations(files)
}

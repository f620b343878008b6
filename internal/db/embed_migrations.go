package db

import "embed"

// MigrationFS embeds the session and data-stream table migrations applied by cmd/migrate
// and, when RUN_MIGRATIONS is set, by the bridge at startup.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

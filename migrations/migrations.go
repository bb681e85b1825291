// Package migrations embeds the per-driver schema migrations applied by
// internal/core/db.
package migrations

import "embed"

// Embedded migration files bundled at compile time, one directory per driver.
// File names sort in application order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS

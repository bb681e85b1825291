package db

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/linewarden/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   string
	ExecutionMs int64
}

// migration is one parsed migration file.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp applies all pending migrations for the connection's driver.
// Checksums of applied migrations are verified first; an edited migration
// aborts the run before anything is executed.
func MigrateUp(ctx context.Context, db *sqlx.DB) error {
	migrations, err := prepare(ctx, db)
	if err != nil {
		return err
	}
	if err := validateChecksums(ctx, db, migrations); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}

	for _, m := range migrations {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists every embedded migration with its applied state.
func MigrateStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := prepare(ctx, db)
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

// prepare ensures the tracking table exists and loads the driver's migrations.
func prepare(ctx context.Context, db *sqlx.DB) ([]migration, error) {
	fsys, dir, err := migrationSource(db.DriverName())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}
	return migrations, nil
}

func migrationSource(driver string) (fs.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// applied_at is RFC3339 text on both drivers so status output is identical.
const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TEXT NOT NULL,
		execution_ms INTEGER NOT NULL
	)`

// parseMigrationFiles returns the .sql files of dir ordered by file name.
func parseMigrationFiles(fsys fs.FS, dir string) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		migrations = append(migrations, migration{
			ID:       path.Base(p),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

func appliedMigrations(ctx context.Context, db *sqlx.DB) (map[string]MigrationStatus, error) {
	var rows []struct {
		ID          string `db:"migration_id"`
		Checksum    string `db:"checksum"`
		AppliedAt   string `db:"applied_at"`
		ExecutionMs int64  `db:"execution_ms"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, err
	}

	applied := make(map[string]MigrationStatus, len(rows))
	for _, r := range rows {
		applied[r.ID] = MigrationStatus{
			ID:          r.ID,
			Checksum:    r.Checksum,
			Applied:     true,
			AppliedAt:   r.AppliedAt,
			ExecutionMs: r.ExecutionMs,
		}
	}
	return applied, nil
}

// validateChecksums verifies that applied migrations still match the embedded files.
func validateChecksums(ctx context.Context, db *sqlx.DB, migrations []migration) error {
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	embedded := make(map[string]string, len(migrations))
	for _, m := range migrations {
		embedded[m.ID] = m.Checksum
	}

	for id, status := range applied {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if status.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, status.Checksum)
		}
	}
	return nil
}

// applyMigration runs one migration and records it in the same transaction.
func applyMigration(ctx context.Context, db *sqlx.DB, m migration) error {
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}
	defer tx.Rollback()

	// lib/pq does not accept several statements in one Exec.
	for _, stmt := range strings.Split(m.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") && !strings.Contains(stmt, "\n") {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		"INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC().Format(time.RFC3339), time.Since(start).Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

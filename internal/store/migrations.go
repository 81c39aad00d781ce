// internal/store/migrations.go
package store

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetsight/watchtower/migrations"
)

/*
 * Schema migrations.
 *
 * Migration files are embedded per driver and applied in filename order.
 * Each applied migration is recorded with a SHA256 checksum; a checksum
 * mismatch on a later run means an applied file was edited after the fact,
 * which aborts the migration rather than silently diverging schemas.
 */

// MigrationStatus reports one migration's applied state.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp applies all pending migrations for the connected driver.
func MigrateUp(db *sqlx.DB) error {
	pending, err := loadMigrations(db.DriverName())
	if err != nil {
		return err
	}
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	if err := validateChecksums(db, pending); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}

	for _, m := range pending {
		if applied[m.ID] {
			continue
		}

		start := time.Now()

		// Apply and record in one transaction so a failed recording never
		// leaves an applied-but-untracked migration behind.
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
		}
		if err := applyMigration(tx, m); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		if err := recordMigration(tx, m, time.Since(start)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
		}
	}

	return nil
}

// MigrateStatus returns applied and pending migrations in order.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	pending, err := loadMigrations(db.DriverName())
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationsTable(db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.Queryx("SELECT migration_id, checksum, applied_at, execution_ms FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]MigrationStatus)
	for rows.Next() {
		var status MigrationStatus
		var appliedAt string
		if err := rows.Scan(&status.ID, &status.Checksum, &appliedAt, &status.ExecutionMs); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, appliedAt); err == nil {
			status.AppliedAt = &ts
		}
		status.Applied = true
		applied[status.ID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(pending))
	for _, m := range pending {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

func loadMigrations(driver string) ([]migration, error) {
	var fsys embed.FS
	var dir string
	switch driver {
	case "sqlite3":
		fsys = migrations.SqliteMigrations
		dir = "sqlite"
	case "postgres":
		fsys = migrations.PostgresMigrations
		dir = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	var out []migration
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		out = append(out, migration{
			ID:       filepath.Base(path),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func ensureMigrationsTable(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum     TEXT NOT NULL,
			applied_at   TEXT NOT NULL,
			execution_ms INTEGER NOT NULL
		)
	`)
	return err
}

func appliedMigrations(db *sqlx.DB) (map[string]bool, error) {
	var ids []string
	if err := db.Select(&ids, "SELECT migration_id FROM migrations"); err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}
	return applied, nil
}

func validateChecksums(db *sqlx.DB, pending []migration) error {
	expected := make(map[string]string, len(pending))
	for _, m := range pending {
		expected[m.ID] = m.Checksum
	}

	rows, err := db.Queryx("SELECT migration_id, checksum FROM migrations")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, got string
		if err := rows.Scan(&id, &got); err != nil {
			return err
		}
		want, ok := expected[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if got != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, got)
		}
	}
	return rows.Err()
}

// applyMigration runs each statement separately; lib/pq rejects multiple
// statements per Exec. Comment lines are stripped first so a statement that
// begins with a comment still executes.
func applyMigration(tx *sqlx.Tx, m migration) error {
	for _, stmt := range strings.Split(m.SQL, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt = strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	return nil
}

func recordMigration(tx *sqlx.Tx, m migration, took time.Duration) error {
	query := tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)")
	_, err := tx.Exec(query, m.ID, m.Checksum, time.Now().UTC().Format(time.RFC3339), took.Milliseconds())
	return err
}

// Command migrate applies the SQL migrations under migrations/ to a
// PostgreSQL database. Applied versions are tracked in a
// schema_migrations table so reruns only apply what is missing.
//
// Usage:
//
//	migrate [flags] up      apply all pending migrations
//	migrate [flags] down    roll back the most recent migration
//	migrate [flags] status  show which migrations have been applied
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

type migration struct {
	version  int64
	name     string
	upFile   string
	downFile string
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		dir         = flag.String("dir", "migrations", "Directory containing migration files")
	)
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	migrations, err := loadMigrations(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if len(migrations) == 0 {
		fmt.Fprintf(os.Stderr, "no migrations found in %s\n", *dir)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}

	if err := ensureVersionTable(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	switch command {
	case "up":
		err = migrateUp(ctx, db, migrations)
	case "down":
		err = migrateDown(ctx, db, migrations)
	case "status":
		err = printStatus(ctx, db, migrations)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q; use up, down, or status\n", command)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadMigrations pairs NNNNNN_name.up.sql and NNNNNN_name.down.sql files
// and returns them sorted by version.
func loadMigrations(dir string) ([]*migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, name, direction, err := parseFilename(entry.Name())
		if err != nil {
			return nil, err
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{version: version, name: name}
			byVersion[version] = m
		}
		if m.name != name {
			return nil, fmt.Errorf("version %d has conflicting names %q and %q", version, m.name, name)
		}

		path := filepath.Join(dir, entry.Name())
		if direction == "up" {
			m.upFile = path
		} else {
			m.downFile = path
		}
	}

	migrations := make([]*migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.upFile == "" {
			return nil, fmt.Errorf("migration %06d_%s has no up file", m.version, m.name)
		}
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })

	return migrations, nil
}

func parseFilename(filename string) (version int64, name, direction string, err error) {
	base := filename
	switch {
	case strings.HasSuffix(base, ".up.sql"):
		direction = "up"
		base = strings.TrimSuffix(base, ".up.sql")
	case strings.HasSuffix(base, ".down.sql"):
		direction = "down"
		base = strings.TrimSuffix(base, ".down.sql")
	default:
		return 0, "", "", fmt.Errorf("unexpected migration file %s", filename)
	}

	versionStr, rest, ok := strings.Cut(base, "_")
	if !ok {
		return 0, "", "", fmt.Errorf("unexpected migration file %s", filename)
	}
	version, err = strconv.ParseInt(versionStr, 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("unexpected migration file %s", filename)
	}

	return version, rest, direction, nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int64]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migrateUp(ctx context.Context, db *sql.DB, migrations []*migration) error {
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		fmt.Printf("applied %06d_%s\n", m.version, m.name)
		count++
	}

	if count == 0 {
		fmt.Println("database is up to date")
	}
	return nil
}

// applyMigration runs one up migration and records it in the same
// transaction, so a failed migration leaves no partial state behind.
func applyMigration(ctx context.Context, db *sql.DB, m *migration) error {
	contents, err := os.ReadFile(m.upFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", m.upFile, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply %06d_%s: %w", m.version, m.name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name); err != nil {
		return fmt.Errorf("record %06d_%s: %w", m.version, m.name, err)
	}
	return tx.Commit()
}

func migrateDown(ctx context.Context, db *sql.DB, migrations []*migration) error {
	var version int64
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		fmt.Println("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("query schema_migrations: %w", err)
	}

	var target *migration
	for _, m := range migrations {
		if m.version == version {
			target = m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("version %d is applied but has no migration file", version)
	}
	if target.downFile == "" {
		return fmt.Errorf("migration %06d_%s has no down file", target.version, target.name)
	}

	contents, err := os.ReadFile(target.downFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", target.downFile, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		return fmt.Errorf("roll back %06d_%s: %w", target.version, target.name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", target.version); err != nil {
		return fmt.Errorf("unrecord %06d_%s: %w", target.version, target.name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Printf("rolled back %06d_%s\n", target.version, target.name)
	return nil
}

func printStatus(ctx context.Context, db *sql.DB, migrations []*migration) error {
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		state := "pending"
		if applied[m.version] {
			state = "applied"
		}
		fmt.Printf("%06d_%s  %s\n", m.version, m.name, state)
	}
	return nil
}

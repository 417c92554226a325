// Package db opens the libsql database backing the conversation store and
// brings its schema up to date with goose.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Config holds connection settings for the conversation database.
type Config struct {
	DSN     string // "file:<path>" for embedded, libsql:// or https:// for remote
	DataDir string // Created before opening embedded databases
}

// Connect opens the database, applies pragmas for embedded files and runs
// all pending migrations.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	embedded := strings.HasPrefix(cfg.DSN, "file:")
	if embedded {
		if err := ensureDir(cfg); err != nil {
			return nil, err
		}
	}

	logger.Debug().Str("dsn", redactDSN(cfg.DSN)).Msg("connecting to libsql")

	db, err := sql.Open("libsql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if embedded {
		// A single writer keeps the read-modify-write append serialized.
		db.SetMaxOpenConns(1)
		if err := configurePragmas(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	migrations, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectTurso, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	for _, r := range results {
		logger.Info().
			Int64("version", r.Source.Version).
			Dur("duration", r.Duration).
			Msg("applied migration")
	}
	return nil
}

func ensureDir(cfg Config) error {
	path := strings.TrimPrefix(cfg.DSN, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dirs := []string{cfg.DataDir}
	if path != "" && !strings.HasPrefix(path, ":memory:") {
		dirs = append(dirs, filepath.Dir(path))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create database directory %s: %w", dir, err)
		}
	}
	return nil
}

func configurePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"busy_timeout", "5000"},
		{"synchronous", "NORMAL"},
	}
	for _, p := range pragmas {
		// Some PRAGMA statements return a row, so read it instead of Exec.
		query := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", p.name, err)
		}
		rows.Close()
	}
	return nil
}

// redactDSN drops query parameters, which carry auth tokens for remote databases.
func redactDSN(dsn string) string {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		return dsn[:i] + "?…"
	}
	return dsn
}

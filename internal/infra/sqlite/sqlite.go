package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // remote libSQL / Turso
	_ "modernc.org/sqlite"                               // embedded SQLite
)

const defaultDialTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS links (
	id              TEXT    PRIMARY KEY,
	target_url      TEXT    NOT NULL,
	count_redirects INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT    NOT NULL,
	updated_at      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at);
`

// DriverName picks the database/sql driver for dsn.
func DriverName(dsn string) string {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		return "libsql"
	}
	return "sqlite"
}

// Open connects to dsn, verifies connectivity and ensures the links table exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	driver := DriverName(dsn)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// A single connection keeps ":memory:" databases shared and
		// serialises writers on file databases.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the links table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

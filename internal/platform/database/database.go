package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"docketflow/internal/platform/config"
)

var (
	// ErrNotConfigured is returned when no database URL was provided at boot.
	ErrNotConfigured = errors.New("database not configured")
	// ErrUnreachable is returned alongside a usable handle when the initial
	// ping fails.
	ErrUnreachable = errors.New("database unreachable")
)

// Open connects to the configured database. With an empty URL it returns
// ErrNotConfigured so callers can boot without a backend. A failed ping
// still returns the handle together with ErrUnreachable so health checks
// can report the outage.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	driver, dsn := resolveDriver(cfg.Driver, cfg.URL)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		return db, fmt.Errorf("ping %s: %w: %w", driver, ErrUnreachable, err)
	}

	return db, nil
}

func resolveDriver(driver, url string) (string, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url
	case strings.HasPrefix(url, "file:"):
		return "sqlite3", strings.TrimPrefix(url, "file:")
	case driver == "":
		return "postgres", url
	}
	return driver, url
}

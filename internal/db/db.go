package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS photos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	object_key TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	caption TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photos_object_key ON photos (object_key);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS photos (
	id BIGSERIAL PRIMARY KEY,
	object_key TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	caption TEXT,
	created_at TEXT NOT NULL
);
`

// Open connects to the metadata database. Postgres URLs go through the pgx
// driver; anything else is treated as a SQLite file path.
func Open(databaseURL string) (*sql.DB, error) {
	var pool *sql.DB
	var err error

	if IsPostgres(databaseURL) {
		pool, err = sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		pool.SetMaxOpenConns(10)
		pool.SetConnMaxLifetime(time.Hour)
	} else {
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		pool, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := pool.Exec(pragma); execErr != nil {
				_ = pool.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(pool, databaseURL); err != nil {
		_ = pool.Close()
		return nil, err
	}

	log.Printf("Connected to database (%s)", driverName(databaseURL))
	return pool, nil
}

// Migrate ensures the photos table exists.
func Migrate(pool *sql.DB, databaseURL string) error {
	ddl := schema
	if IsPostgres(databaseURL) {
		ddl = postgresSchema
	}
	if _, err := pool.Exec(ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// IsPostgres reports whether the URL selects the pgx driver.
func IsPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") ||
		strings.HasPrefix(databaseURL, "postgresql://")
}

func driverName(databaseURL string) string {
	if IsPostgres(databaseURL) {
		return "pgx"
	}
	return "sqlite"
}

package db

import (
	"path/filepath"
	"testing"
)

func TestIsPostgres(t *testing.T) {
	for url, want := range map[string]bool{
		"postgres://localhost/captioner":   true,
		"postgresql://localhost/captioner": true,
		"photos.db":                        false,
		"sqlite:///var/lib/photos.db":      false,
		"/var/lib/captioner/photos.db":     false,
	} {
		if got := IsPostgres(url); got != want {
			t.Fatalf("IsPostgres(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photos.db")

	pool, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	// Schema must be in place and idempotent.
	if err := Migrate(pool, path); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	if err := pool.QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&count); err != nil {
		t.Fatalf("query photos table: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d rows", count)
	}
}

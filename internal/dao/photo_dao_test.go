package dao

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"captioner-backend/internal/db"

	_ "modernc.org/sqlite"
)

func testDAO(t *testing.T) *PhotoDAO {
	t.Helper()
	pool, err := sql.Open("sqlite", "file:"+t.TempDir()+"/photos.db")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := db.Migrate(pool, "photos.db"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPhotoDAO(pool, false)
}

func TestCreateAndGet(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	caption := "a sunset"
	created, err := photoDAO.Create(ctx, "photos/sunset.jpg", "sunset.jpg", &caption)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected a non-zero id")
	}

	got, err := photoDAO.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ObjectKey != "photos/sunset.jpg" || got.Filename != "sunset.jpg" {
		t.Fatalf("unexpected photo: %+v", got)
	}
	if got.Caption == nil || *got.Caption != "a sunset" {
		t.Fatalf("expected caption %q, got %v", "a sunset", got.Caption)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestGetNotFound(t *testing.T) {
	photoDAO := testDAO(t)
	if _, err := photoDAO.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByKey(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	if _, err := photoDAO.Create(ctx, "photos/cat.png", "cat.png", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := photoDAO.GetByKey(ctx, "photos/cat.png")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if got.Caption != nil {
		t.Fatalf("expected nil caption, got %q", *got.Caption)
	}

	if _, err := photoDAO.GetByKey(ctx, "photos/dog.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDuplicateKeyFails(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	if _, err := photoDAO.Create(ctx, "photos/a.jpg", "a.jpg", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := photoDAO.Create(ctx, "photos/a.jpg", "a.jpg", nil); err == nil {
		t.Fatal("expected duplicate object_key to fail")
	}
}

func TestListPagination(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	keys := []string{"photos/1.jpg", "photos/2.jpg", "photos/3.jpg", "photos/4.jpg"}
	for _, key := range keys {
		if _, err := photoDAO.Create(ctx, key, key, nil); err != nil {
			t.Fatalf("Create %s failed: %v", key, err)
		}
	}

	page, err := photoDAO.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(page))
	}
	if page[0].ObjectKey != "photos/2.jpg" || page[1].ObjectKey != "photos/3.jpg" {
		t.Fatalf("unexpected page order: %s, %s", page[0].ObjectKey, page[1].ObjectKey)
	}

	empty, err := photoDAO.List(ctx, 10, 100)
	if err != nil {
		t.Fatalf("List past the end failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d photos", len(empty))
	}
}

func TestListKeys(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	if _, err := photoDAO.Create(ctx, "photos/a.jpg", "a.jpg", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := photoDAO.Create(ctx, "photos/b.jpg", "b.jpg", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	keys, err := photoDAO.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 2 || !keys["photos/a.jpg"] || !keys["photos/b.jpg"] {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestUpdateCaption(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	created, err := photoDAO.Create(ctx, "photos/a.jpg", "a.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := photoDAO.UpdateCaption(ctx, created.ID, "new caption")
	if err != nil {
		t.Fatalf("UpdateCaption failed: %v", err)
	}
	if updated.Caption == nil || *updated.Caption != "new caption" {
		t.Fatalf("expected caption to be updated, got %v", updated.Caption)
	}

	if _, err := photoDAO.UpdateCaption(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	photoDAO := testDAO(t)
	ctx := context.Background()

	created, err := photoDAO.Create(ctx, "photos/a.jpg", "a.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := photoDAO.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := photoDAO.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected photo to be gone, got %v", err)
	}
	if err := photoDAO.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

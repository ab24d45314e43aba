package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"captioner-backend/internal/models"
)

// ErrNotFound is returned when no photo matches the requested id or key.
var ErrNotFound = errors.New("photo not found")

// PhotoDAO wraps the metadata queries for the photos table.
type PhotoDAO struct {
	db       *sql.DB
	postgres bool
}

func NewPhotoDAO(db *sql.DB, postgres bool) *PhotoDAO {
	return &PhotoDAO{db: db, postgres: postgres}
}

// rebind converts ? placeholders to $n for the pgx driver.
func (d *PhotoDAO) rebind(query string) string {
	if !d.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *PhotoDAO) Get(ctx context.Context, id int64) (*models.Photo, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(
		`SELECT id, object_key, filename, caption, created_at FROM photos WHERE id = ?`), id)
	return scanPhoto(row)
}

func (d *PhotoDAO) GetByKey(ctx context.Context, objectKey string) (*models.Photo, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(
		`SELECT id, object_key, filename, caption, created_at FROM photos WHERE object_key = ?`), objectKey)
	return scanPhoto(row)
}

// List returns photos ordered by id.
func (d *PhotoDAO) List(ctx context.Context, limit, offset int) ([]*models.Photo, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(
		`SELECT id, object_key, filename, caption, created_at FROM photos ORDER BY id LIMIT ? OFFSET ?`),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// ListKeys returns every object key currently known to the database.
func (d *PhotoDAO) ListKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT object_key FROM photos`)
	if err != nil {
		return nil, fmt.Errorf("list object keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan object key: %w", err)
		}
		keys[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list object keys: %w", err)
	}
	return keys, nil
}

func (d *PhotoDAO) Create(ctx context.Context, objectKey, filename string, caption *string) (*models.Photo, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	if d.postgres {
		var id int64
		err := d.db.QueryRowContext(ctx, d.rebind(
			`INSERT INTO photos (object_key, filename, caption, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
			objectKey, filename, caption, timestamp).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert photo: %w", err)
		}
		return &models.Photo{ID: id, ObjectKey: objectKey, Filename: filename, Caption: caption, CreatedAt: now}, nil
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT INTO photos (object_key, filename, caption, created_at) VALUES (?, ?, ?, ?)`,
		objectKey, filename, caption, timestamp)
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("photo insert id: %w", err)
	}
	return &models.Photo{ID: id, ObjectKey: objectKey, Filename: filename, Caption: caption, CreatedAt: now}, nil
}

// UpdateCaption sets the caption and returns the updated photo.
func (d *PhotoDAO) UpdateCaption(ctx context.Context, id int64, caption string) (*models.Photo, error) {
	res, err := d.db.ExecContext(ctx, d.rebind(
		`UPDATE photos SET caption = ? WHERE id = ?`), caption, id)
	if err != nil {
		return nil, fmt.Errorf("update caption: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update caption: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return d.Get(ctx, id)
}

func (d *PhotoDAO) Delete(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`DELETE FROM photos WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var photo models.Photo
	var caption sql.NullString
	var createdAt string

	err := row.Scan(&photo.ID, &photo.ObjectKey, &photo.Filename, &caption, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan photo: %w", err)
	}

	if caption.Valid {
		photo.Caption = &caption.String
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	photo.CreatedAt = parsed
	return &photo, nil
}

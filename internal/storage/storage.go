package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"captioner-backend/internal/config"
)

var (
	// ErrNotFound means the backend has no object under the requested key.
	ErrNotFound = errors.New("object not found")
	// ErrNotImplemented marks operations a backend does not support yet.
	ErrNotImplemented = errors.New("not implemented")
	// ErrMissingCredentials means the backend's auth env vars are not set.
	ErrMissingCredentials = errors.New("storage credentials are not set")
)

// BackendError wraps a failure reported by the backing store or its API.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// PhotoStorage is the capability interface every backend implements.
type PhotoStorage interface {
	// ListPhotos returns the keys of stored photos (jpg/jpeg/png).
	ListPhotos(ctx context.Context) ([]string, error)
	// GetPhoto returns the raw bytes stored under key.
	GetPhoto(ctx context.Context, key string) ([]byte, error)
	// SavePhoto stores data under key and returns the resolved location.
	SavePhoto(ctx context.Context, key string, data []byte) (string, error)
	// DeletePhoto removes the object stored under key.
	DeletePhoto(ctx context.Context, key string) error
}

// CaptionStore is an optional capability for backends that can attach a
// caption to a stored object (Dropbox file properties).
type CaptionStore interface {
	GetCaption(ctx context.Context, key string) (string, error)
	SetCaption(ctx context.Context, key, caption string) error
	DeleteCaption(ctx context.Context, key string) error
}

// IsImageKey reports whether key names a photo the backends should surface.
func IsImageKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png")
}

// NewBackend selects a backend from cfg.StorageBackend. The empty value and
// "dropbox" both select Dropbox; anything unrecognised is a config error.
func NewBackend(cfg *config.Config) (PhotoStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "filesystem":
		return NewFileSystemStorage(cfg.PhotosDir), nil
	case "s3":
		return NewS3Storage(cfg.S3Bucket), nil
	case "", "dropbox":
		return NewDropboxStorage(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

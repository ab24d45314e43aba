package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystemStorage keeps photos under a base directory on local disk.
type FileSystemStorage struct {
	basePath string
}

func NewFileSystemStorage(basePath string) *FileSystemStorage {
	if basePath == "" {
		basePath = "."
	}
	return &FileSystemStorage{basePath: basePath}
}

// ListPhotos walks the base directory and returns image keys relative to it.
// A missing base directory yields an empty list, not an error.
func (s *FileSystemStorage) ListPhotos(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsImageKey(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, &BackendError{Backend: "filesystem", Op: "list", Err: err}
	}
	return keys, nil
}

func (s *FileSystemStorage) GetPhoto(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &BackendError{Backend: "filesystem", Op: "get", Err: err}
	}
	return data, nil
}

func (s *FileSystemStorage) SavePhoto(ctx context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &BackendError{Backend: "filesystem", Op: "save", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &BackendError{Backend: "filesystem", Op: "save", Err: err}
	}
	return path, nil
}

func (s *FileSystemStorage) DeletePhoto(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return &BackendError{Backend: "filesystem", Op: "delete", Err: err}
	}
	return nil
}

var _ PhotoStorage = (*FileSystemStorage)(nil)

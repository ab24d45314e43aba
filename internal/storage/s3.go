package storage

import "context"

// S3Storage is recognised by the factory but not implemented yet; every
// operation reports ErrNotImplemented until the backend lands.
type S3Storage struct {
	bucket string
}

func NewS3Storage(bucket string) *S3Storage {
	return &S3Storage{bucket: bucket}
}

func (s *S3Storage) ListPhotos(ctx context.Context) ([]string, error) {
	return nil, &BackendError{Backend: "s3", Op: "list", Err: ErrNotImplemented}
}

func (s *S3Storage) GetPhoto(ctx context.Context, key string) ([]byte, error) {
	return nil, &BackendError{Backend: "s3", Op: "get", Err: ErrNotImplemented}
}

func (s *S3Storage) SavePhoto(ctx context.Context, key string, data []byte) (string, error) {
	return "", &BackendError{Backend: "s3", Op: "save", Err: ErrNotImplemented}
}

func (s *S3Storage) DeletePhoto(ctx context.Context, key string) error {
	return &BackendError{Backend: "s3", Op: "delete", Err: ErrNotImplemented}
}

var _ PhotoStorage = (*S3Storage)(nil)

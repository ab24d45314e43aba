package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ThumbnailService derives bounded JPEG thumbnails from photo bytes and
// caches them on local disk, keyed by object key and dimensions.
type ThumbnailService struct {
	cacheDir string
}

func NewThumbnailService(cacheDir string) *ThumbnailService {
	return &ThumbnailService{cacheDir: cacheDir}
}

// Thumbnail returns a JPEG that fits within width x height, preserving
// aspect ratio. Cached copies are reused.
func (s *ThumbnailService) Thumbnail(key string, data []byte, width, height int) ([]byte, error) {
	cachePath := s.cachePath(key, width, height)
	if cached, err := os.ReadFile(cachePath); err == nil {
		return cached, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fit(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	if err := os.MkdirAll(s.cacheDir, 0o755); err == nil {
		// Cache write failures are not fatal; the thumbnail was derived.
		_ = os.WriteFile(cachePath, buf.Bytes(), 0o644)
	}

	return buf.Bytes(), nil
}

func (s *ThumbnailService) cachePath(key string, width, height int) string {
	sum := sha256.Sum256([]byte(key))
	name := fmt.Sprintf("%s_%dx%d.jpg", hex.EncodeToString(sum[:8]), width, height)
	return filepath.Join(s.cacheDir, name)
}

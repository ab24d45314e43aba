package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/disintegration/imaging"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailFitsBounds(t *testing.T) {
	svc := NewThumbnailService(t.TempDir())

	thumb, err := svc.Thumbnail("photos/test.png", testPNG(t, 640, 480), 100, 100)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() > 100 || bounds.Dy() > 100 {
		t.Fatalf("thumbnail %dx%d does not fit 100x100", bounds.Dx(), bounds.Dy())
	}
	// Aspect ratio preserved: 640x480 into 100x100 is 100x75.
	if bounds.Dx() != 100 || bounds.Dy() != 75 {
		t.Fatalf("expected 100x75 thumbnail, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnailUsesCache(t *testing.T) {
	cacheDir := t.TempDir()
	svc := NewThumbnailService(cacheDir)

	first, err := svc.Thumbnail("photos/test.png", testPNG(t, 200, 200), 64, 64)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cached thumbnail, found %d", len(entries))
	}

	// Second call must serve the cached bytes even with different source data.
	second, err := svc.Thumbnail("photos/test.png", testPNG(t, 500, 500), 64, 64)
	if err != nil {
		t.Fatalf("Thumbnail failed on cached path: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected the cached thumbnail to be reused")
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	svc := NewThumbnailService(t.TempDir())
	if _, err := svc.Thumbnail("photos/bad.jpg", []byte("not an image"), 64, 64); err == nil {
		t.Fatal("expected decode error for non-image bytes")
	}
}

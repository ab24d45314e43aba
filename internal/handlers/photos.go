package handlers

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"captioner-backend/internal/dao"
	"captioner-backend/internal/models"
	"captioner-backend/internal/services"
	"captioner-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	// Window the shuffled endpoint draws from before truncating to limit.
	shuffleWindow = 1000

	defaultThumbWidth  = 320
	defaultThumbHeight = 320
)

// ListPhotosHandler returns photo ids ordered by id, paginated.
func ListPhotosHandler(photoDAO *dao.PhotoDAO) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultListLimit)
		offset := c.QueryInt("offset", 0)
		if limit < 1 || limit > maxListLimit || offset < 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid pagination"})
		}

		photos, err := photoDAO.List(c.Context(), limit, offset)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(models.PhotoListResponse{PhotoIDs: photoIDs(photos)})
	}
}

// ShuffledPhotosHandler returns up to limit photo ids drawn from the first
// shuffleWindow photos, in random order.
func ShuffledPhotosHandler(photoDAO *dao.PhotoDAO) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultListLimit)
		if limit < 1 || limit > maxListLimit {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid limit"})
		}

		photos, err := photoDAO.List(c.Context(), shuffleWindow, 0)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		ids := photoIDs(photos)
		rand.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
		if len(ids) > limit {
			ids = ids[:limit]
		}

		return c.JSON(models.PhotoListResponse{PhotoIDs: ids})
	}
}

// GetPhotoHandler returns one photo's metadata.
func GetPhotoHandler(photoDAO *dao.PhotoDAO) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := photoID(c)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid photo id"})
		}

		photo, err := photoDAO.Get(c.Context(), id)
		if errors.Is(err, dao.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
		}
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(photo)
	}
}

// GetPhotoImageHandler streams the photo bytes from the storage backend.
func GetPhotoImageHandler(photoDAO *dao.PhotoDAO, backend storage.PhotoStorage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := photoID(c)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid photo id"})
		}

		photo, err := photoDAO.Get(c.Context(), id)
		if errors.Is(err, dao.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
		}
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		data, err := backend.GetPhoto(c.Context(), photo.ObjectKey)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo object not found"})
		}
		if err != nil {
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		c.Set(fiber.HeaderContentType, contentTypeForKey(photo.ObjectKey))
		return c.Send(data)
	}
}

// GetThumbnailHandler returns a cached JPEG thumbnail of the photo.
func GetThumbnailHandler(photoDAO *dao.PhotoDAO, backend storage.PhotoStorage, thumbs *services.ThumbnailService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := photoID(c)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid photo id"})
		}

		width := c.QueryInt("width", defaultThumbWidth)
		height := c.QueryInt("height", defaultThumbHeight)
		if width < 1 || height < 1 || width > 2048 || height > 2048 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid thumbnail size"})
		}

		photo, err := photoDAO.Get(c.Context(), id)
		if errors.Is(err, dao.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
		}
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		data, err := backend.GetPhoto(c.Context(), photo.ObjectKey)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo object not found"})
		}
		if err != nil {
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		thumb, err := thumbs.Thumbnail(photo.ObjectKey, data, width, height)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		c.Set(fiber.HeaderContentType, "image/jpeg")
		return c.Send(thumb)
	}
}

// UpdateCaptionHandler sets the caption on a photo.
func UpdateCaptionHandler(photoDAO *dao.PhotoDAO) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := photoID(c)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid photo id"})
		}

		var req models.CaptionUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}

		photo, err := photoDAO.UpdateCaption(c.Context(), id, req.Caption)
		if errors.Is(err, dao.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
		}
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(photo)
	}
}

// UploadPhotoHandler stores an uploaded image and records its metadata.
// The multipart field name is "photo".
func UploadPhotoHandler(photoDAO *dao.PhotoDAO, backend storage.PhotoStorage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("photo")
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type"})
		}

		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read upload"})
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read upload"})
		}

		key := fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)
		if _, err := backend.SavePhoto(c.Context(), key, data); err != nil {
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		photo, err := photoDAO.Create(c.Context(), key, fileHeader.Filename, nil)
		if err != nil {
			// Roll back the stored object when the insert fails.
			_ = backend.DeletePhoto(c.Context(), key)
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(http.StatusCreated).JSON(photo)
	}
}

// DeletePhotoHandler removes the stored object, then the metadata row.
func DeletePhotoHandler(photoDAO *dao.PhotoDAO, backend storage.PhotoStorage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := photoID(c)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid photo id"})
		}

		photo, err := photoDAO.Get(c.Context(), id)
		if errors.Is(err, dao.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
		}
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		// A missing object is fine; the row is stale and goes away anyway.
		if err := backend.DeletePhoto(c.Context(), photo.ObjectKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		if err := photoDAO.Delete(c.Context(), id); err != nil && !errors.Is(err, dao.ErrNotFound) {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.SendStatus(http.StatusNoContent)
	}
}

func photoID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("photo_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid photo id")
	}
	return id, nil
}

func photoIDs(photos []*models.Photo) []int64 {
	ids := make([]int64, 0, len(photos))
	for _, photo := range photos {
		ids = append(ids, photo.ID)
	}
	return ids
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

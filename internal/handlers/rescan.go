package handlers

import (
	"errors"
	"log"
	"net/http"
	"path"

	"captioner-backend/internal/dao"
	"captioner-backend/internal/models"
	"captioner-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// RescanHandler lists the storage backend and inserts rows for any keys the
// database does not know yet. When the backend can store captions, newly
// discovered photos get theirs seeded from it.
func RescanHandler(photoDAO *dao.PhotoDAO, backend storage.PhotoStorage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		keys, err := backend.ListPhotos(c.Context())
		if err != nil {
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		known, err := photoDAO.ListKeys(c.Context())
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		captions, _ := backend.(storage.CaptionStore)

		numNew := 0
		for _, key := range keys {
			if known[key] {
				continue
			}

			var caption *string
			if captions != nil {
				text, err := captions.GetCaption(c.Context(), key)
				if err == nil && text != "" {
					caption = &text
				} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
					log.Printf("rescan: caption lookup failed for %s: %v", key, err)
				}
			}

			if _, err := photoDAO.Create(c.Context(), key, path.Base(key), caption); err != nil {
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			numNew++
		}

		return c.JSON(models.RescanResponse{Status: "ok", NumNewPhotos: numNew})
	}
}

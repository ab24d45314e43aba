package app

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captioner-backend/internal/config"
	"captioner-backend/internal/dao"
	"captioner-backend/internal/db"
	"captioner-backend/internal/handlers"
	"captioner-backend/internal/services"
	"captioner-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// New builds the Fiber app with all routes wired. Split from Run so tests
// can drive it through app.Test.
func New(cfg *config.Config, pool *sql.DB, backend storage.PhotoStorage) *fiber.App {
	photoDAO := dao.NewPhotoDAO(pool, db.IsPostgres(cfg.DatabaseURL))
	tokenService := services.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenTTL)*time.Minute)
	authService := services.NewAuthService(cfg.BackendPassword, cfg.BackendPasswordHash, tokenService)
	thumbService := services.NewThumbnailService(cfg.ThumbnailDir)

	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Public routes
	app.Post("/login", handlers.LoginHandler(authService))
	app.Get("/photos", handlers.ListPhotosHandler(photoDAO))
	app.Get("/photos/shuffled", handlers.ShuffledPhotosHandler(photoDAO))
	app.Get("/photos/:photo_id", handlers.GetPhotoHandler(photoDAO))
	app.Get("/photos/:photo_id/image", handlers.GetPhotoImageHandler(photoDAO, backend))
	app.Get("/photos/:photo_id/thumbnail", handlers.GetThumbnailHandler(photoDAO, backend, thumbService))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Protected routes
	auth := handlers.NewAuthMiddleware(tokenService)
	app.Post("/photos", auth, handlers.UploadPhotoHandler(photoDAO, backend))
	app.Patch("/photos/:photo_id/caption", auth, handlers.UpdateCaptionHandler(photoDAO))
	app.Delete("/photos/:photo_id", auth, handlers.DeletePhotoHandler(photoDAO, backend))
	app.Post("/rescan", auth, handlers.RescanHandler(photoDAO, backend))

	return app
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	backend, err := storage.NewBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to configure storage backend: %v", err)
	}

	app := New(cfg, pool, backend)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Everything comes from environment
// variables; no secrets are baked into the binary.
type Config struct {
	Port        string `env:"PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"photos.db"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"dropbox"`
	PhotosDir      string `env:"PHOTOS_DIR" envDefault:"photos"`
	ThumbnailDir   string `env:"THUMBNAIL_DIR" envDefault:"thumbnails"`

	JWTSecret      string `env:"JWT_SECRET_KEY"`
	AccessTokenTTL int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`

	BackendPassword     string `env:"BACKEND_PASSWORD"`
	BackendPasswordHash string `env:"BACKEND_PASSWORD_HASH"`

	DropboxAppKey       string `env:"DROPBOX_APP_KEY"`
	DropboxAppSecret    string `env:"DROPBOX_APP_SECRET"`
	DropboxRefreshToken string `env:"DROPBOX_REFRESH_TOKEN"`
	DropboxRootPath     string `env:"DROPBOX_ROOT_PATH"`

	S3Bucket string `env:"S3_BUCKET"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine in production; real env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Package bootstrap wires the process-wide runtime shared by the commands.
package bootstrap

import (
	"fmt"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the connections a command needs.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Covers *storage.CoverStore
}

// InitRuntime connects to the database and Redis and opens the upload directory.
// Redis is optional; when it is unreachable Runtime.Redis is nil.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	covers, err := storage.NewCoverStore(cfg.UploadDir, cfg.UploadMaxBytes())
	if err != nil {
		return nil, fmt.Errorf("upload directory: %w", err)
	}

	return &Runtime{
		DB:     db,
		Redis:  cache.GetClient(),
		Covers: covers,
	}, nil
}

package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/venturematch/venture-match/internal/cache"
	"github.com/venturematch/venture-match/internal/config"
	"github.com/venturematch/venture-match/internal/notify"
)

// AppContext holds shared dependencies (DB, Redis, Logger, event bus, config).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Publisher  notify.Publisher
	Config     *config.Config
}

// New creates a new AppContext. A nil publisher falls back to a no-op.
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, pub notify.Publisher, cfg *config.Config) *AppContext {
	if pub == nil {
		pub = notify.NopPublisher{}
	}
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Publisher:  pub,
		Config:     cfg,
	}
}

package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/recipebox/internal/auth"
	"github.com/oggyb/recipebox/internal/cache"
	"github.com/oggyb/recipebox/internal/clock"
	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/validation"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Clock      clock.Clock
	Hasher     auth.Hasher
	Validator  *validation.Validator
}

// New creates a new AppContext with the wall clock and a bcrypt hasher at
// the configured cost. Tests swap Clock and Hasher after construction.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Clock:      clock.Real{},
		Hasher:     auth.NewBcryptHasher(cfg.Identity.BcryptCost),
		Validator:  validation.New(),
	}
}

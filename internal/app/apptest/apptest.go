// Package apptest wires an AppContext over in-memory SQLite, miniredis and a
// fake clock for service tests.
package apptest

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/cache"
	"github.com/oggyb/recipebox/internal/clock"
	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/db/dbtest"
	"github.com/oggyb/recipebox/internal/logger"
)

// Start is the fake clock's initial instant.
var Start = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type Env struct {
	App   *app.AppContext
	Redis *miniredis.Miniredis
	Clock *clock.Fake
}

// Config returns the settings services are tested with.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.Identity.CodeTTL = 5 * time.Minute
	cfg.Identity.PendingRetention = 7 * 24 * time.Hour
	cfg.Identity.BcryptCost = bcrypt.MinCost
	cfg.Jobs.ReconcileInterval = 2 * time.Hour
	cfg.Jobs.SweepInterval = 24 * time.Hour
	cfg.Jobs.LeaseTTL = 10 * time.Minute
	cfg.Cache.ProfileTTL = time.Minute
	cfg.GRPC.RateLimitRPS = 1000
	cfg.GRPC.RateLimitBurst = 1000
	return cfg
}

// New returns an isolated environment private to t.
func New(t *testing.T) *Env {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := Config()
	cfg.Redis.Addr = mr.Addr()

	rdb := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rdb.Close() })

	appCtx := app.New(cfg, dbtest.Open(t), rdb, logger.Discard())
	fake := clock.NewFake(Start)
	appCtx.Clock = fake

	return &Env{App: appCtx, Redis: mr, Clock: fake}
}

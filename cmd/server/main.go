package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/cache"
	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/jobs"
	"github.com/oggyb/recipebox/internal/logger"
	"github.com/oggyb/recipebox/internal/mail"
	"github.com/oggyb/recipebox/internal/server"
	"github.com/oggyb/recipebox/internal/service/engagement"
	"github.com/oggyb/recipebox/internal/service/identity"
	"github.com/oggyb/recipebox/internal/service/media"
	"github.com/oggyb/recipebox/internal/service/recipes"
	"github.com/oggyb/recipebox/internal/storage"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis; without it profiles are uncached and every replica runs jobs
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisCache(cfg)
		if err := redisCache.Ping(ctx); err != nil {
			log.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		defer func() { _ = redisCache.Close() }()
	}

	appCtx := app.New(cfg, database, redisCache, log)

	var dispatcher mail.Dispatcher = mail.LogDispatcher{Log: log}
	if cfg.AMQP.URL != "" {
		dispatcher = mail.NewQueueDispatcher(cfg.AMQP.URL, cfg.AMQP.VerificationQueue)
	}

	var store storage.ObjectStore = storage.NewMemoryStore()
	if cfg.S3.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Error("failed to init object storage", "err", err)
			os.Exit(1)
		}
		store = s3Store
	} else {
		log.Warn("no S3 bucket configured, images are kept in memory")
	}

	limiter := server.NewLimiter(cfg)

	scheduler := jobs.NewScheduler(appCtx.Clock, log, redisCache, cfg.Jobs.LeaseTTL)
	jobs.Register(scheduler, appCtx)
	// peer buckets are process-local, so this one runs on every replica
	scheduler.EveryLocal("prune-rate-limits", 10*time.Minute, func(context.Context) error {
		if n := limiter.Prune(30 * time.Minute); n > 0 {
			log.Debug("idle rate limit buckets dropped", "count", n)
		}
		return nil
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	registrars := []server.Registrar{
		identity.NewRegistrar(appCtx, dispatcher, store),
		recipes.NewRegistrar(appCtx, store),
		engagement.NewRegistrar(appCtx),
		media.NewRegistrar(appCtx, store),
	}
	grpcServer := server.NewGRPCServer(log, limiter, registrars...)

	log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
	if err := server.Serve(ctx, cfg, grpcServer, 10*time.Second); err != nil {
		log.Error("gRPC server stopped", "err", err)
		return
	}
	log.Info("shutdown complete")
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/ratelimit"
)

// NewLimiter builds the per-peer limiter from config. The caller owns
// pruning idle peers.
func NewLimiter(cfg *config.Config) *ratelimit.KeyedRateLimiter {
	return ratelimit.New(cfg.GRPC.RateLimitRPS, cfg.GRPC.RateLimitBurst)
}

// NewGRPCServer builds a server with the logging and rate limit
// interceptors and registers all provided services.
func NewGRPCServer(log *slog.Logger, limiter *ratelimit.KeyedRateLimiter, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(log),
			RateLimitInterceptor(limiter),
		),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}
	return grpcServer
}

// Serve listens on the configured address and blocks until ctx is done,
// then drains in-flight calls for up to drainTimeout before forcing a stop.
func Serve(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server, drainTimeout time.Duration) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- grpcServer.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(drainTimeout):
		grpcServer.Stop()
	}
	return nil
}

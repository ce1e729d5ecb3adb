// Package servertest runs registrars on an in-memory gRPC listener.
package servertest

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/logger"
	"github.com/oggyb/recipebox/internal/server"
)

// Dial starts a server with the production interceptors over bufconn and
// returns a client connection that speaks the JSON codec.
func Dial(t *testing.T, cfg *config.Config, registrars ...server.Registrar) *grpc.ClientConn {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{}
		cfg.GRPC.RateLimitRPS = 1000
		cfg.GRPC.RateLimitBurst = 1000
	}

	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer(logger.Discard(), server.NewLimiter(cfg), registrars...)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(server.ContentSubtype)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Call invokes method and decodes the reply into a fresh Resp.
func Call[Resp any](ctx context.Context, conn *grpc.ClientConn, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := conn.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Package cli implements recipectl, the maintenance command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/cache"
	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/logger"
)

// Opener builds the application context a command runs against. The
// returned func releases it.
type Opener func(ctx context.Context) (*app.AppContext, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	Open   Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. A nil open connects using the
// environment configuration.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenFromEnv
	}
	opts := &RootOptions{Open: open}

	cmd := &cobra.Command{
		Use:           "recipectl",
		Short:         "Maintenance commands for recipebox",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewTagsCommand(opts))
	return cmd
}

// OpenFromEnv connects to the database and, when configured, Redis.
func OpenFromEnv(ctx context.Context) (*app.AppContext, func(), error) {
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init db: %w", err)
	}
	var rdb *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rdb = cache.NewRedisCache(cfg)
		if err := rdb.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, cache will not be flushed", "err", err)
			_ = rdb.Close()
			rdb = nil
		}
	}

	closeFn := func() {
		_ = rdb.Close()
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return app.New(cfg, database, rdb, logger.L()), closeFn, nil
}

// output writes v as JSON, or text via the given func.
func output(w io.Writer, format string, v any, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

package jobs

import (
	"context"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/repository"
	"github.com/oggyb/recipebox/internal/service/identity"
)

const (
	ReconcileName = "reconcile"
	SweepName     = "sweep-pending"
)

// Reconcile rebuilds every denormalized counter from the fact tables, then
// drops cached profiles since their counters may have moved.
func Reconcile(appCtx *app.AppContext) Job {
	return func(ctx context.Context) error {
		_, err := RunReconcile(ctx, appCtx)
		return err
	}
}

// RunReconcile is one reconciliation pass.
func RunReconcile(ctx context.Context, appCtx *app.AppContext) (repository.ReconcileStats, error) {
	stats, err := repository.NewAggregateRepository(appCtx.DB).ReconcileAll(ctx)
	if err != nil {
		return stats, err
	}
	dropped, err := appCtx.RedisCache.InvalidateAllProfiles(ctx)
	if err != nil {
		appCtx.Logger.Warn("profile cache flush failed", "err", err)
	}
	appCtx.Logger.Info("counters reconciled",
		"recipes", stats.Recipes, "accounts", stats.Accounts, "profiles_dropped", dropped)
	return stats, nil
}

// Sweep deletes pending accounts past the retention window.
func Sweep(appCtx *app.AppContext) Job {
	svc := identity.NewService(appCtx)
	return func(ctx context.Context) error {
		n, err := svc.SweepExpiredPending(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			appCtx.Logger.Info("stale pending accounts removed", "count", n)
		}
		return nil
	}
}

// Register installs the standard jobs on s with the configured intervals.
// Reconciliation also runs once at start.
func Register(s *Scheduler, appCtx *app.AppContext) {
	cfg := appCtx.Config.Jobs
	s.Every(ReconcileName, cfg.ReconcileInterval, true, Reconcile(appCtx))
	s.Every(SweepName, cfg.SweepInterval, false, Sweep(appCtx))
}

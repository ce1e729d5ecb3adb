package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oggyb/recipebox/internal/jobs"
	"github.com/oggyb/recipebox/internal/repository"
	"github.com/oggyb/recipebox/internal/service/identity"
)

// NewReconcileCommand recomputes every denormalized counter once.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute likes, ratings and account counters from the fact tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCtx, closeFn, err := opts.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := jobs.RunReconcile(cmd.Context(), appCtx)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return output(cmd.OutOrStdout(), opts.Format, stats, func(w io.Writer) {
				fmt.Fprintf(w, "reconciled %d recipes and %d accounts\n", stats.Recipes, stats.Accounts)
			})
		},
	}
}

// NewSweepCommand deletes pending accounts past the retention window.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete unverified accounts older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCtx, closeFn, err := opts.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := identity.NewService(appCtx).SweepExpiredPending(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			return output(cmd.OutOrStdout(), opts.Format, map[string]int64{"removed": n}, func(w io.Writer) {
				fmt.Fprintf(w, "removed %d pending accounts\n", n)
			})
		},
	}
}

// NewTagsCommand prints the tag vocabulary.
func NewTagsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tag vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCtx, closeFn, err := opts.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			tags, err := repository.NewRecipeRepository(appCtx.DB).ListTags(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tags: %w", err)
			}
			return output(cmd.OutOrStdout(), opts.Format, tags, func(w io.Writer) {
				for _, t := range tags {
					fmt.Fprintln(w, t)
				}
			})
		},
	}
}

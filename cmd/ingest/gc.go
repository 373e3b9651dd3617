package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lyzr/catalog-ingest/cmd/ingest/repository"
	"github.com/lyzr/catalog-ingest/common/bootstrap"
)

type gcOptions struct {
	dryRun bool
	grace  time.Duration
}

func newGCCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &gcOptions{}

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Reclaim rows left behind by failed submissions",
		Long: `Deletes artifacts that no version row commits and that are older than the
grace period, together with their files, links, aliases and tag references.
The tag dictionary is never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := bootstrap.Setup(ctx, serviceName,
				bootstrap.WithConfigFile(rootOpts.configFile),
				bootstrap.WithoutRedis(),
			)
			if err != nil {
				return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
			}
			defer components.Shutdown(ctx)

			grace := components.Config.GC.OrphanGrace
			if cmd.Flags().Changed("grace") {
				grace = opts.grace
			}

			return runGC(ctx, repository.NewOrphanRepository(components.Store), grace, opts.dryRun, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "count orphans without deleting them")
	cmd.Flags().DurationVar(&opts.grace, "grace", 0, "minimum orphan age (default ORPHAN_GRACE)")

	return cmd
}

func runGC(ctx context.Context, orphans *repository.OrphanRepository, grace time.Duration, dryRun bool, out io.Writer) error {
	if grace <= 0 {
		return fmt.Errorf("grace must be positive, got %s", grace)
	}

	if dryRun {
		n, err := orphans.Count(ctx, grace)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d orphaned artifacts older than %s\n", n, grace)
		return nil
	}

	n, err := orphans.Reclaim(ctx, grace)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reclaimed %d orphaned artifacts\n", n)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lyzr/catalog-ingest/common/bootstrap"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the store schema",
		Long:  "Creates every catalog table and index that does not exist yet. Safe to run repeatedly.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := bootstrap.Setup(ctx, serviceName,
				bootstrap.WithConfigFile(opts.configFile),
				bootstrap.WithoutRedis(),
			)
			if err != nil {
				return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
			}
			defer components.Shutdown(ctx)

			if components.Config.Store.Migrate {
				// Already applied during setup.
				return nil
			}
			return components.Store.Migrate(ctx)
		},
	}
}

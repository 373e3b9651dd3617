package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "ingest"

// rootOptions holds global flags for all commands
type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Catalog artifact ingestion service",
		Long: `Accepts artifact submissions over HTTP and records each one as a new,
append-only version in the catalog store.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overridden by environment)")

	// Add subcommands
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newGCCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// Package cli implements the jobboard command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCommand builds the jobboard command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobboard",
		Short: "Job board service and terminal browser",
		Long: `jobboard serves the job board API and browses postings from the terminal.

Configuration is read from configs/config.yaml or ./config.yaml, a local .env
file and JOBBOARD_* environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newBrowseCommand())
	rootCmd.AddCommand(newSaveCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "jobboard "+Version)
		},
	}
}

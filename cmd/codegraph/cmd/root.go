// Package cmd provides the codegraph CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/pkg/version"
)

var noColor bool

// NewRootCmd creates the root command for the codegraph CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "codegraph",
		Short:   "Local code-intelligence CLI",
		Long:    `codegraph indexes a codebase and answers search, definition, reference, and statistics queries against it, entirely on disk.`,
		Version: version.Short(),
	}
	cmd.SetVersionTemplate("codegraph version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored/styled output")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDefineCmd())
	cmd.AddCommand(newRefsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

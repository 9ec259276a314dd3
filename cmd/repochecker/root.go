package main

import (
	"github.com/spf13/cobra"
)

// rootCommand assembles the CLI, grounded on the teacher's
// migrations.CLI.GetRootCommand shape: one root command, each verb its own
// file, RunE returning wrapped errors rather than calling os.Exit directly.
func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "repochecker",
		Short: "Repository-closure audit daemon",
		Long:  "repochecker periodically audits a set of package repositories for unsatisfiable runtime dependencies and serves the results over HTTP.",
	}

	root.AddCommand(serveCommand())
	root.AddCommand(validateCommand())

	return root
}

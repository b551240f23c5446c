package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "incidentctl",
		Short: "Operator tooling for the incident service",
		Long: `incidentctl applies database migrations and exposes the priority matrix,
SLA deadline calculator and development token minting from the command line.

Configuration is read from the same environment variables as the API server.`,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newPriorityCmd(), newDeadlineCmd(), newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

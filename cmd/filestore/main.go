package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "filestore",
		Short:        "file association registry and object storage gateway",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newBucketCommand(),
		newStatsCommand(),
		newSweepCommand(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

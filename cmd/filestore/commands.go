package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal"
	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/application/services"
	"lego-filestore/internal/domain/storage"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API, event workers and scheduled sweep",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	app, err := internal.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("init app failed", zap.Error(err))
		return err
	}
	defer app.Close()

	app.InitControllers()

	if err = app.Run(ctx); err != nil {
		app.Logger().Sugar().Errorf("filestore stopped with error: %v", err)
		return err
	}
	return nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return internal.Migrate(cfg, logger)
		},
	}
}

func newBucketCommand() *cobra.Command {
	bucket := &cobra.Command{
		Use:   "bucket",
		Short: "bucket maintenance",
	}
	bucket.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "create the configured bucket if missing and make it publicly readable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gateway, logger, err := setupGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err = gateway.EnsureBucket(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "bucket ready")
			return nil
		},
	})
	return bucket
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "print object count and size per file type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gateway, logger, err := setupGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()

			stats, err := gateway.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), stats)
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "remove dangling associations and, with SWEEP_ORPHAN_AGE set, unreferenced files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			// one-shot runs do not publish events
			cfg.MQ.Host = ""

			app, err := internal.NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			rep, err := app.Sweeper().Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"dangling associations removed: %d\norphaned files removed: %d\nfailures: %d\n",
				rep.DanglingAssociations, rep.OrphanedFiles, rep.Failed,
			)
			return nil
		},
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := internal.NewLogger(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func setupGateway(ctx context.Context) (ports.StorageGateway, *zap.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	gateway, err := internal.NewGateway(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return gateway, logger, nil
}

func printStats(w io.Writer, stats *storage.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TYPE\tCOUNT\tSIZE\n")
	for _, t := range services.SortedTypes(stats) {
		ts := stats.ByType[t]
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t, ts.Count, humanize.IBytes(uint64(ts.Size)))
	}
	fmt.Fprintf(tw, "total\t%d\t%s\n", stats.Objects, stats.TotalSizeHuman)
	if err := tw.Flush(); err != nil {
		return err
	}
	if stats.Truncated {
		_, err := fmt.Fprintln(w, "listing truncated; totals cover the first objects only")
		return err
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/spdata"
	"github.com/hupe1980/spdata/internal/config"
)

func newProcessCmd(a *app) *cobra.Command {
	var (
		workers     int
		cacheDir    string
		backend     string
		compression string
		featureDim  int
		pathPrefix  string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Parse and featurize every dataset entry into cached bundles",
		Long: `process builds the bundle of every manifest entry that is not cached yet.
Entries that fail (missing or malformed matrix files) are listed and do not
stop the others; the command exits non-zero if any entry failed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcess(cmd.Context(), a, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&workers, "workers", "w", 0, "concurrent builds (default GOMAXPROCS)")
	f.StringVar(&cacheDir, "cache-dir", "", "local bundle directory (default <root>/processed/<name>)")
	f.StringVar(&backend, "backend", "", "bundle store backend (local, minio, s3)")
	f.StringVar(&compression, "compression", "", "bundle compression (none, lz4, zstd)")
	f.IntVar(&featureDim, "feature-dim", 0, "node feature dimension")
	f.StringVar(&pathPrefix, "path-prefix", "", "matrix path prefix to re-root under --root")

	a.onSetup(cmd, func(flags *pflag.FlagSet, cfg *config.Config) {
		overlay(flags.Changed("workers"), &cfg.Cache.Workers, workers)
		overlay(flags.Changed("cache-dir"), &cfg.Cache.Dir, cacheDir)
		overlay(flags.Changed("backend"), &cfg.Cache.Backend, backend)
		overlay(flags.Changed("compression"), &cfg.Cache.Compression, compression)
		overlay(flags.Changed("feature-dim"), &cfg.Features.Dim, featureDim)
		overlay(flags.Changed("path-prefix"), &cfg.Dataset.PathPrefix, pathPrefix)
	})
	return cmd
}

func runProcess(ctx context.Context, a *app, w io.Writer) error {
	opts, err := a.datasetOptions(ctx)
	if err != nil {
		return err
	}

	ds, err := spdata.Open(ctx, a.manifestPath(), opts...)
	if err != nil {
		return err
	}

	report, err := ds.Process(ctx)
	if report != nil {
		fmt.Fprintf(w, "entries: %d\nbuilt: %d\ncached: %d\nfailed: %d\n",
			report.Total, report.Built, report.Cached, report.Failed)
		for i, e := range report.Errors {
			if i == maxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(report.Errors)-maxListed)
				break
			}
			fmt.Fprintf(w, "  %v\n", e)
		}
		fmt.Fprintf(w, "elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d entries failed", report.Failed, report.Total)
	}
	return nil
}

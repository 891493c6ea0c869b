package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/spdata/codec"
	"github.com/hupe1980/spdata/generator"
	"github.com/hupe1980/spdata/internal/config"
	"github.com/hupe1980/spdata/manifest"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		trials       int
		workers      int
		seed         uint64
		rateLimit    float64
		command      string
		codecName    string
		preset       string
		extremeCases bool
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "generate [-- generator args...]",
		Short: "Run the matrix generator and write the dataset manifest",
		Long: `generate runs the configured number of generator trials in parallel and
writes <root>/csv/<name>.csv once all trials have finished. Failed trials
are reported and left out of the manifest. Interrupting the run writes
nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.cfg.Generation.Args = args
			}
			return runGenerate(cmd.Context(), a, quiet, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&trials, "trials", "n", 0, "number of generator trials")
	f.IntVarP(&workers, "workers", "w", 0, "concurrent trials (default GOMAXPROCS)")
	f.Uint64Var(&seed, "seed", 0, "base seed for parameter sampling")
	f.Float64Var(&rateLimit, "rate-limit", 0, "maximum trials started per second (0 = unlimited)")
	f.StringVar(&command, "command", "", "path to the generator executable")
	f.StringVar(&codecName, "codec", "", "decoder for generator output: go-json or json")
	f.StringVar(&preset, "preset", "", "sampling preset: wider-range, extreme-cases or vector-products")
	f.BoolVar(&extremeCases, "extreme-cases", false, "sample small sizes from a fixed set of sparsity levels")
	f.BoolVarP(&quiet, "quiet", "q", false, "do not print progress")

	a.onSetup(cmd, func(flags *pflag.FlagSet, cfg *config.Config) {
		overlay(flags.Changed("trials"), &cfg.Generation.Trials, trials)
		overlay(flags.Changed("workers"), &cfg.Generation.Workers, workers)
		overlay(flags.Changed("seed"), &cfg.Generation.Seed, seed)
		overlay(flags.Changed("rate-limit"), &cfg.Generation.RateLimit, rateLimit)
		overlay(flags.Changed("command"), &cfg.Generation.Command, command)
		overlay(flags.Changed("codec"), &cfg.Generation.Codec, codecName)
		overlay(flags.Changed("preset"), &cfg.Generation.Preset, preset)
		overlay(flags.Changed("extreme-cases"), &cfg.Generation.ExtremeCases, extremeCases)
	})
	return cmd
}

func runGenerate(ctx context.Context, a *app, quiet bool, w io.Writer) error {
	g := a.cfg.Generation

	rules, err := a.cfg.Rules()
	if err != nil {
		return err
	}
	sampler, err := generator.NewSampler(rules, g.Seed)
	if err != nil {
		return err
	}

	gen := generator.NewCommand(g.Command, g.Args...)
	gen.Codec, _ = codec.ByName(g.Codec)

	opts := []generator.Option{
		generator.WithSampler(sampler),
		generator.WithOutputDir(filepath.Join(a.cfg.Dataset.Root, a.cfg.Dataset.Name)),
		generator.WithRateLimit(g.RateLimit),
		generator.WithLogger(a.logger.WithDataset(a.cfg.Dataset.Name).Logger),
		generator.WithMetrics(a.metrics),
	}
	if g.Workers > 0 {
		opts = append(opts, generator.WithWorkers(g.Workers))
	}
	if !quiet {
		opts = append(opts, generator.WithProgress(progressPrinter(w, g.Trials)))
	}

	store := manifest.NewStore(a.manifestPath(), manifest.WithLogger(a.logger.Logger))
	coord, err := generator.New(gen, store, opts...)
	if err != nil {
		return err
	}

	report, err := coord.Run(ctx, g.Trials)
	if report != nil {
		printReport(w, report)
	}
	return err
}

const maxListed = 5

// progressPrinter prints roughly every percent of completed trials.
func progressPrinter(w io.Writer, total int) generator.ProgressFunc {
	step := max(total/100, 1)
	return func(done, total int) {
		if done%step == 0 || done == total {
			fmt.Fprintf(w, "\r%d/%d trials", done, total)
			if done == total {
				fmt.Fprintln(w)
			}
		}
	}
}

func printReport(w io.Writer, r *generator.Report) {
	fmt.Fprintf(w, "succeeded: %d\nfailed: %d\n", r.Succeeded, r.Failed)
	for i, err := range r.Failures {
		if i == maxListed {
			fmt.Fprintf(w, "  ... and %d more\n", len(r.Failures)-maxListed)
			break
		}
		fmt.Fprintf(w, "  %v\n", err)
	}
	if r.Abandoned > 0 {
		fmt.Fprintf(w, "abandoned: %d\n", r.Abandoned)
	}
	if r.Duplicates > 0 {
		fmt.Fprintf(w, "duplicate deliveries: %d\n", r.Duplicates)
	}
	if r.DuplicateNames > 0 {
		fmt.Fprintf(w, "duplicate timestamps: %d\n", r.DuplicateNames)
	}
	if r.ManifestPath != "" {
		fmt.Fprintf(w, "manifest: %s\n", r.ManifestPath)
	}
	fmt.Fprintf(w, "elapsed: %s\n", r.Elapsed.Round(time.Millisecond))
}

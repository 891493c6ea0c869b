package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/spdata"
	"github.com/hupe1980/spdata/internal/config"
	spprom "github.com/hupe1980/spdata/metrics/prometheus"
)

// app is the state shared by all subcommands.
type app struct {
	configPath string
	flags      rootFlags
	overlays   map[*cobra.Command]func(*pflag.FlagSet, *config.Config)

	cfg     config.Config
	logger  *spdata.Logger
	metrics spdata.MetricsCollector
	server  *http.Server
}

type rootFlags struct {
	root        string
	name        string
	logLevel    string
	logFormat   string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "spdata",
		Short: "Generate and process sparse matrix product datasets",
		Long: `spdata drives an external matrix generator to build datasets of sparse
matrix pairs with their product, and turns them into featurized graph
bundles for density prediction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&a.flags.root, "root", "", "dataset root directory")
	pf.StringVar(&a.flags.name, "name", "", "dataset name")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(
		newGenerateCmd(a),
		newProcessCmd(a),
		newInspectCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// setup loads the config, overlays changed flags and builds the logger and
// metrics collector.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overlay(flags.Changed("root"), &cfg.Dataset.Root, a.flags.root)
	overlay(flags.Changed("name"), &cfg.Dataset.Name, a.flags.name)
	overlay(flags.Changed("log-level"), &cfg.Log.Level, a.flags.logLevel)
	overlay(flags.Changed("log-format"), &cfg.Log.Format, a.flags.logFormat)
	overlay(flags.Changed("metrics-addr"), &cfg.Metrics.Addr, a.flags.metricsAddr)
	if fn := a.overlays[cmd]; fn != nil {
		fn(flags, &cfg)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		a.logger = spdata.NewLogger(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		a.logger = spdata.NewLogger(slog.NewTextHandler(os.Stderr, opts))
	}

	a.metrics = spdata.NoopMetricsCollector{}
	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cmd.Context(), cfg.Metrics.Addr); err != nil {
			return err
		}
	}
	return nil
}

func overlay[T any](changed bool, dst *T, v T) {
	if changed {
		*dst = v
	}
}

// onSetup registers a flag overlay that runs when cmd is executed.
func (a *app) onSetup(cmd *cobra.Command, fn func(*pflag.FlagSet, *config.Config)) {
	if a.overlays == nil {
		a.overlays = make(map[*cobra.Command]func(*pflag.FlagSet, *config.Config))
	}
	a.overlays[cmd] = fn
}

func (a *app) serveMetrics(ctx context.Context, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = spprom.NewCollector(reg)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

func (a *app) manifestPath() string {
	return spdata.ManifestPath(a.cfg.Dataset.Root, a.cfg.Dataset.Name)
}

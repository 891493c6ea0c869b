package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/hupe1980/spdata/manifest"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/resource"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called by the collector after each recorded trial.
type ProgressFunc func(completed, total int)

// Metrics receives generation events. spdata.MetricsCollector satisfies it.
type Metrics interface {
	RecordTrial(d time.Duration, err error)
	RecordRun(total, failed int, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordTrial(time.Duration, error)  {}
func (noopMetrics) RecordRun(int, int, time.Duration) {}

// Report summarizes a run.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	// Abandoned counts trials that were never recorded because the run was
	// canceled.
	Abandoned int
	// Duplicates counts deliveries for a trial that was already recorded.
	Duplicates int
	// DuplicateNames counts successful trials whose timestamp replaced an
	// earlier one.
	DuplicateNames int
	Failures       []error
	Elapsed        time.Duration
	// ManifestPath is empty unless the manifest was written.
	ManifestPath string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers sets the worker pool size. Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithSampler sets the parameter sampler. Defaults to DefaultRules with seed 0.
func WithSampler(s *Sampler) Option {
	return func(c *Coordinator) {
		c.sampler = s
	}
}

// WithOutputDir sets the directory passed to the generator for matrix files.
func WithOutputDir(dir string) Option {
	return func(c *Coordinator) {
		c.outputDir = dir
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Coordinator) {
		c.progress = fn
	}
}

// WithRateLimit caps how many trials are started per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Coordinator) {
		c.ratePerSecond = perSecond
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Coordinator runs generation trials and writes the manifest.
type Coordinator struct {
	gen           Generator
	store         *manifest.Store
	sampler       *Sampler
	outputDir     string
	workers       int
	ratePerSecond float64
	progress      ProgressFunc
	logger        *slog.Logger
	metrics       Metrics
}

// New creates a Coordinator that records results in store.
func New(gen Generator, store *manifest.Store, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		gen:     gen,
		store:   store,
		workers: runtime.GOMAXPROCS(0),
		logger:  discardLogger(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if gen == nil {
		return nil, &model.ConfigError{Field: "generator", Value: nil, Reason: "is required"}
	}
	if store == nil {
		return nil, &model.ConfigError{Field: "manifest", Value: nil, Reason: "is required"}
	}
	if c.workers <= 0 {
		return nil, &model.ConfigError{Field: "workers", Value: c.workers, Reason: "must be positive"}
	}
	if c.ratePerSecond < 0 {
		return nil, &model.ConfigError{Field: "rate_limit", Value: c.ratePerSecond, Reason: "must not be negative"}
	}
	if c.sampler == nil {
		s, err := NewSampler(DefaultRules(), 0)
		if err != nil {
			return nil, err
		}
		c.sampler = s
	}
	return c, nil
}

type outcome struct {
	index    int
	id       string
	params   Params
	result   *Result
	err      error
	duration time.Duration
}

// Run executes trials and writes the manifest once all of them finished.
//
// Failed trials are reported in Report.Failures and do not stop the run. If
// ctx is canceled, trials not yet started are abandoned, late results are
// discarded, nothing is written, and Run returns the partial report with
// ctx.Err().
func (c *Coordinator) Run(ctx context.Context, trials int) (*Report, error) {
	if trials < 0 || trials > math.MaxUint32 {
		return nil, &model.ConfigError{Field: "trials", Value: trials, Reason: "out of range"}
	}

	start := time.Now()
	if err := c.store.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	rc := resource.NewController(resource.Config{
		MaxWorkers:        int64(c.workers),
		DispatchPerSecond: c.ratePerSecond,
	})

	c.logger.Info("generation started",
		"trials", trials,
		"workers", c.workers,
		"seed", c.sampler.Seed(),
		"manifest", c.store.Path(),
	)

	// The collector drains results until the channel is closed, including
	// after cancellation, so one slot per worker is enough.
	results := make(chan outcome, c.workers)

	go func() {
		defer close(results)

		var g errgroup.Group
		for i := range trials {
			// Blocks while all worker slots are busy.
			if err := rc.AcquireWorker(ctx); err != nil {
				break
			}
			params := c.sampler.Sample(i, c.outputDir)
			id := uuid.NewString()
			g.Go(func() error {
				defer rc.ReleaseWorker()
				results <- c.runTrial(ctx, i, id, params)
				return nil
			})
		}
		_ = g.Wait()
	}()

	col := newCollector(trials, c.logger)
	for o := range results {
		if ctx.Err() != nil {
			continue
		}
		if !col.record(o) {
			continue
		}
		c.metrics.RecordTrial(o.duration, o.err)
		if c.progress != nil {
			c.progress(col.completed(), trials)
		}
	}

	report := col.report()
	report.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		report.Abandoned = trials - col.completed()
		c.logger.Warn("generation canceled, manifest not written",
			"completed", col.completed(),
			"abandoned", report.Abandoned,
			"error", err,
		)
		return report, err
	}

	if err := c.store.Write(ctx, col.entries()); err != nil {
		return report, err
	}
	report.ManifestPath = c.store.Path()

	c.metrics.RecordRun(report.Total, report.Failed, report.Elapsed)
	c.logger.Info("generation finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duplicate_names", report.DuplicateNames,
		"elapsed", report.Elapsed,
		"manifest", report.ManifestPath,
	)
	return report, nil
}

func (c *Coordinator) runTrial(ctx context.Context, index int, id string, p Params) (o outcome) {
	o = outcome{index: index, id: id, params: p}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.result = nil
			o.err = model.NewGenerationError(index, id, fmt.Errorf("panic: %v", r))
		}
		o.duration = time.Since(start)
	}()

	res, err := c.gen.Generate(ctx, p)
	if err == nil {
		err = res.validate()
	}
	if err != nil {
		o.err = model.NewGenerationError(index, id, err)
		return o
	}
	o.result = res
	return o
}

// collector records outcomes. It is owned by a single goroutine.
type collector struct {
	seen   *roaring.Bitmap
	byName map[string]model.DatasetEntry
	rep    *Report
	logger *slog.Logger
}

func newCollector(total int, logger *slog.Logger) *collector {
	return &collector{
		seen:   roaring.New(),
		byName: make(map[string]model.DatasetEntry),
		rep:    &Report{Total: total},
		logger: logger,
	}
}

// record accounts for o at most once. It returns false for a duplicate
// delivery.
func (c *collector) record(o outcome) bool {
	if !c.seen.CheckedAdd(uint32(o.index)) {
		c.rep.Duplicates++
		c.logger.Warn("duplicate trial delivery dropped", "trial", o.index, "id", o.id)
		return false
	}

	if o.err != nil {
		c.rep.Failed++
		c.rep.Failures = append(c.rep.Failures, o.err)
		c.logger.Warn("trial failed",
			"trial", o.index,
			"id", o.id,
			"rows", o.params.Rows,
			"inner", o.params.Inner,
			"cols", o.params.Cols,
			"error", o.err,
		)
		return true
	}

	e := o.result.Entry()
	if _, dup := c.byName[e.Name]; dup {
		c.rep.DuplicateNames++
		c.logger.Warn("duplicate timestamp, keeping last", "trial", o.index, "name", e.Name)
	}
	c.byName[e.Name] = e
	c.rep.Succeeded++
	c.logger.Debug("trial done",
		"trial", o.index,
		"name", e.Name,
		"duration", o.duration,
	)
	return true
}

func (c *collector) completed() int {
	return int(c.seen.GetCardinality())
}

func (c *collector) entries() []model.DatasetEntry {
	out := make([]model.DatasetEntry, 0, len(c.byName))
	for _, e := range c.byName {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *collector) report() *Report {
	r := *c.rep
	r.Failures = append([]error(nil), c.rep.Failures...)
	return &r
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

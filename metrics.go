package spdata

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see the
// metrics/prometheus package for a Prometheus implementation.
//
// A MetricsCollector satisfies both generator.Metrics and cache.Metrics and
// can be passed to either.
type MetricsCollector interface {
	// RecordTrial is called after each generator trial.
	// duration is the time the generator took, err is nil if successful.
	RecordTrial(duration time.Duration, err error)

	// RecordRun is called once per generation run.
	// total is the number of trials accounted, failed the number that failed.
	RecordRun(total, failed int, duration time.Duration)

	// RecordCache is called for every processed-entry lookup.
	RecordCache(hit bool)

	// RecordBuild is called after each entry build (parse and featurize).
	RecordBuild(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrial(time.Duration, error)  {}
func (NoopMetricsCollector) RecordRun(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordCache(bool)                  {}
func (NoopMetricsCollector) RecordBuild(time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrialCount      atomic.Int64
	TrialErrors     atomic.Int64
	TrialTotalNanos atomic.Int64
	RunCount        atomic.Int64
	RunTrials       atomic.Int64
	RunFailed       atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildTotalNanos atomic.Int64
}

// RecordTrial implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrial(duration time.Duration, err error) {
	b.TrialCount.Add(1)
	b.TrialTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TrialErrors.Add(1)
	}
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(total, failed int, _ time.Duration) {
	b.RunCount.Add(1)
	b.RunTrials.Add(int64(total))
	b.RunFailed.Add(int64(failed))
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TrialCount:    b.TrialCount.Load(),
		TrialErrors:   b.TrialErrors.Load(),
		TrialAvgNanos: avgNanos(&b.TrialTotalNanos, &b.TrialCount),
		RunCount:      b.RunCount.Load(),
		RunTrials:     b.RunTrials.Load(),
		RunFailed:     b.RunFailed.Load(),
		CacheHits:     b.CacheHits.Load(),
		CacheMisses:   b.CacheMisses.Load(),
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		BuildAvgNanos: avgNanos(&b.BuildTotalNanos, &b.BuildCount),
	}
}

func avgNanos(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TrialCount    int64
	TrialErrors   int64
	TrialAvgNanos int64
	RunCount      int64
	RunTrials     int64
	RunFailed     int64
	CacheHits     int64
	CacheMisses   int64
	BuildCount    int64
	BuildErrors   int64
	BuildAvgNanos int64
}

package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/spdata"
)

const namespace = "spdata"

// Collector implements spdata.MetricsCollector with Prometheus metrics.
type Collector struct {
	trialLatency *prometheus.HistogramVec
	trials       *prometheus.CounterVec
	runs         prometheus.Counter
	runTrials    *prometheus.CounterVec
	lastRun      prometheus.Gauge
	cache        *prometheus.CounterVec
	buildLatency *prometheus.HistogramVec
}

var _ spdata.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		trialLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trial_duration_seconds",
			Help:      "Duration of generator trials",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"status"}),
		trials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Total generator trials by outcome",
		}, []string{"status"}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total generation runs completed",
		}),
		runTrials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_trials_total",
			Help:      "Trials accounted by completed runs",
		}, []string{"status"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent generation run",
		}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Processed-entry lookups by result",
		}, []string{"result"}),
		buildLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of entry builds (parse and featurize)",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordTrial implements spdata.MetricsCollector.
func (c *Collector) RecordTrial(d time.Duration, err error) {
	s := status(err)
	c.trialLatency.WithLabelValues(s).Observe(d.Seconds())
	c.trials.WithLabelValues(s).Inc()
}

// RecordRun implements spdata.MetricsCollector.
func (c *Collector) RecordRun(total, failed int, d time.Duration) {
	c.runs.Inc()
	c.runTrials.WithLabelValues("success").Add(float64(total - failed))
	c.runTrials.WithLabelValues("error").Add(float64(failed))
	c.lastRun.Set(d.Seconds())
}

// RecordCache implements spdata.MetricsCollector.
func (c *Collector) RecordCache(hit bool) {
	if hit {
		c.cache.WithLabelValues("hit").Inc()
	} else {
		c.cache.WithLabelValues("miss").Inc()
	}
}

// RecordBuild implements spdata.MetricsCollector.
func (c *Collector) RecordBuild(d time.Duration, err error) {
	c.buildLatency.WithLabelValues(status(err)).Observe(d.Seconds())
}

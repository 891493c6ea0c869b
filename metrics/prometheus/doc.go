// Package prometheus exports spdata metrics through client_golang.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	mc := spprom.NewCollector(reg)
//	ds, _ := spdata.Open(ctx, path, spdata.WithMetricsCollector(mc))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus

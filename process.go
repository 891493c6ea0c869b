package spdata

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// EntryError records a failed entry in a ProcessReport.
type EntryError struct {
	Name string
	Err  error
}

func (e EntryError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e EntryError) Unwrap() error { return e.Err }

// ProcessReport summarizes a Process call.
type ProcessReport struct {
	Total   int
	Built   int
	Cached  int
	Failed  int
	Errors  []EntryError // sorted by name
	Elapsed time.Duration
}

// Err joins all entry errors, or returns nil.
func (r *ProcessReport) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Process builds the bundle for every entry that is not already cached.
//
// A failing entry is recorded in the report and does not stop the others.
// The returned error is non-nil only when ctx ends first; the report then
// covers the entries finished so far.
func (d *Dataset) Process(ctx context.Context) (*ProcessReport, error) {
	start := time.Now()
	report := &ProcessReport{Total: len(d.names)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.rc.MaxWorkers())

	for i := range d.names {
		if gctx.Err() != nil {
			break
		}
		e := d.manifest.At(i)
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, built, err := d.get(gctx, e)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && gctx.Err() != nil:
				// Interrupted, not failed.
			case err != nil:
				report.Failed++
				report.Errors = append(report.Errors, EntryError{Name: e.Name, Err: err})
			case built:
				report.Built++
			default:
				report.Cached++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Errors, func(i, j int) bool {
		return report.Errors[i].Name < report.Errors[j].Name
	})
	report.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		d.opts.logger.WarnContext(ctx, "processing interrupted",
			"done", report.Built+report.Cached+report.Failed,
			"total", report.Total,
		)
		return report, err
	}

	d.opts.logger.LogProcess(ctx, report)
	return report, nil
}

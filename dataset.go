package spdata

import (
	"context"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/spdata/blobstore"
	"github.com/hupe1980/spdata/cache"
	"github.com/hupe1980/spdata/featurize"
	"github.com/hupe1980/spdata/manifest"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/mtx"
	"github.com/hupe1980/spdata/resource"
)

const (
	// ManifestDir is the directory under a dataset root holding manifests.
	ManifestDir = "csv"

	// ProcessedDir is the directory under a dataset root holding processed
	// bundles, one subdirectory per dataset name.
	ProcessedDir = "processed"
)

// Dataset is a read-only view of a generated dataset.
//
// Entries are ordered lexicographically by name. Bundles are built on first
// access and cached; a Dataset is safe for concurrent use.
type Dataset struct {
	path     string
	manifest *manifest.Manifest
	names    []string

	cache      *cache.Cache
	featurizer *featurize.Featurizer
	rc         *resource.Controller
	opts       options
}

// Consumer receives bundles from Dataset.Each.
type Consumer func(ctx context.Context, b *model.Bundle) error

// ManifestPath returns the manifest location for dataset name under root.
func ManifestPath(root, name string) string {
	return filepath.Join(root, ManifestDir, name+".csv")
}

// DefaultCacheDir returns the default bundle directory for a manifest:
// "<root>/processed/<name>" for a manifest at "<root>/csv/<name>.csv".
func DefaultCacheDir(manifestPath string) string {
	name := strings.TrimSuffix(filepath.Base(manifestPath), filepath.Ext(manifestPath))
	root := filepath.Dir(filepath.Dir(manifestPath))
	return filepath.Join(root, ProcessedDir, name)
}

// OpenRoot opens dataset name laid out under root.
func OpenRoot(ctx context.Context, root, name string, optFns ...Option) (*Dataset, error) {
	if name == "" || !filepath.IsLocal(name) {
		return nil, &ConfigError{Field: "name", Value: name, Reason: "must be a local file name"}
	}
	return Open(ctx, ManifestPath(root, name), optFns...)
}

// Open reads the manifest at manifestPath.
//
// A missing manifest is reported as ErrNotFound and a malformed one as
// ErrFormat. Matrix files are not touched until an entry is requested.
func Open(ctx context.Context, manifestPath string, optFns ...Option) (*Dataset, error) {
	o := applyOptions(optFns)
	if err := validateOptions(&o); err != nil {
		return nil, err
	}

	f, err := featurize.New(o.featureDim)
	if err != nil {
		return nil, err
	}

	m, err := manifest.NewStore(manifestPath, manifest.WithLogger(o.logger.Logger)).Read(ctx)
	if err != nil {
		return nil, err
	}

	store := o.blobStore
	if store == nil {
		dir := o.cacheDir
		if dir == "" {
			dir = DefaultCacheDir(manifestPath)
		}
		store = blobstore.NewLocalStore(dir)
	}

	rc := resource.NewController(resource.Config{
		MaxWorkers:         int64(o.workers),
		MemoryLimitBytes:   o.memoryLimit,
		IOLimitBytesPerSec: o.readLimit,
	})

	c := cache.New(store,
		cache.WithCompression(o.compression),
		cache.WithMemoryCapacity(o.memoryCapacity),
		cache.WithResourceController(rc),
		cache.WithLogger(o.logger.Logger),
		cache.WithMetrics(o.metricsCollector),
	)

	ds := &Dataset{
		path:       manifestPath,
		manifest:   m,
		names:      m.Names(),
		cache:      c,
		featurizer: f,
		rc:         rc,
		opts:       o,
	}

	o.logger.InfoContext(ctx, "dataset opened",
		"manifest", manifestPath,
		"entries", m.Len(),
		"duplicates", m.Duplicates,
		"feature_dim", o.featureDim,
	)
	return ds, nil
}

func validateOptions(o *options) error {
	if err := featurize.ValidateDim(o.featureDim); err != nil {
		return err
	}
	if o.workers < 0 {
		return &ConfigError{Field: "workers", Value: o.workers, Reason: "must not be negative"}
	}
	if o.memoryCapacity < 0 {
		return &ConfigError{Field: "memory_capacity", Value: o.memoryCapacity, Reason: "must not be negative"}
	}
	if o.memoryLimit < 0 {
		return &ConfigError{Field: "memory_limit", Value: o.memoryLimit, Reason: "must not be negative"}
	}
	if o.readLimit < 0 {
		return &ConfigError{Field: "read_limit", Value: o.readLimit, Reason: "must not be negative"}
	}
	return nil
}

// Path returns the manifest path the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// Len returns the number of entries.
func (d *Dataset) Len() int {
	return len(d.names)
}

// Names returns entry names in lexicographic order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// FeatureDim returns the node feature dimension.
func (d *Dataset) FeatureDim() int {
	return d.featurizer.Dim()
}

// Entry returns the manifest row at index i.
func (d *Dataset) Entry(i int) (model.DatasetEntry, error) {
	if i < 0 || i >= len(d.names) {
		return model.DatasetEntry{}, fmt.Errorf("%w: index %d out of range [0, %d)", ErrNotFound, i, len(d.names))
	}
	return d.manifest.At(i), nil
}

// Lookup returns the manifest row for name.
func (d *Dataset) Lookup(name string) (model.DatasetEntry, bool) {
	return d.manifest.Get(name)
}

// Get returns the bundle at index i, building and caching it on first access.
func (d *Dataset) Get(ctx context.Context, i int) (*model.Bundle, error) {
	e, err := d.Entry(i)
	if err != nil {
		return nil, err
	}
	b, _, err := d.get(ctx, e)
	return b, err
}

// GetByName returns the bundle for the entry called name.
func (d *Dataset) GetByName(ctx context.Context, name string) (*model.Bundle, error) {
	e, ok := d.manifest.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: entry %q", ErrNotFound, name)
	}
	b, _, err := d.get(ctx, e)
	return b, err
}

// get reports whether this call ran the build.
func (d *Dataset) get(ctx context.Context, e model.DatasetEntry) (*model.Bundle, bool, error) {
	built := false
	b, err := d.cache.GetOrBuild(ctx, e.Name, func(ctx context.Context) (*model.Bundle, error) {
		built = true
		start := time.Now()
		b, err := d.build(ctx, e)
		d.opts.logger.LogBuild(ctx, e.Name, time.Since(start), err)
		return b, err
	})
	if err != nil {
		return nil, built, fmt.Errorf("entry %s: %w", e.Name, err)
	}
	return b, built, nil
}

// build parses both operands and featurizes them. The label is the
// product's nnz density as recorded in the manifest.
func (d *Dataset) build(ctx context.Context, e model.DatasetEntry) (*model.Bundle, error) {
	label := e.Product.Density

	m1, err := d.readMatrix(ctx, e.M1Path)
	if err != nil {
		return nil, err
	}
	g1, err := d.featurizer.Featurize(m1, label)
	if err != nil {
		return nil, fmt.Errorf("matrix 1: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m2, err := d.readMatrix(ctx, e.M2Path)
	if err != nil {
		return nil, err
	}
	g2, err := d.featurizer.Featurize(m2, label)
	if err != nil {
		return nil, fmt.Errorf("matrix 2: %w", err)
	}

	return &model.Bundle{
		Name:  e.Name,
		M1:    g1,
		M2:    g2,
		Label: label,
	}, nil
}

func (d *Dataset) readMatrix(ctx context.Context, path string) (*model.SparseMatrix, error) {
	return mtx.ReadFileWith(d.opts.resolve(path), func(r io.Reader) io.Reader {
		return resource.NewRateLimitedReader(ctx, r, d.rc)
	})
}

// Invalidate drops the cached bundle for name so the next access rebuilds it.
func (d *Dataset) Invalidate(ctx context.Context, name string) error {
	return d.cache.Invalidate(ctx, name)
}

// Processed returns the names of entries whose bundle is already in the
// bundle store. Artifacts for names not in the manifest are ignored.
func (d *Dataset) Processed(ctx context.Context) ([]string, error) {
	names, err := d.cache.Names(ctx)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, name := range names {
		if _, ok := d.manifest.Get(name); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// CacheStats returns a snapshot of the bundle cache counters.
func (d *Dataset) CacheStats() cache.Stats {
	return d.cache.Stats()
}

// Each calls fn for every bundle in name order. It stops at the first error
// from a build or from fn.
func (d *Dataset) Each(ctx context.Context, fn Consumer) error {
	for b, err := range d.Bundles(ctx) {
		if err != nil {
			return err
		}
		if err := fn(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Bundles returns an iterator over all bundles in name order.
// Iteration ends after the first error.
func (d *Dataset) Bundles(ctx context.Context) iter.Seq2[*model.Bundle, error] {
	return func(yield func(*model.Bundle, error) bool) {
		for i := range d.names {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			b, err := d.Get(ctx, i)
			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}

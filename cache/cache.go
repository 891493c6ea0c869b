package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/spdata/blobstore"
	"github.com/hupe1980/spdata/bundle"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/resource"
	"golang.org/x/sync/singleflight"
)

// Suffix is appended to an entry name to form its artifact key.
const Suffix = ".bundle"

// BuildFunc produces the bundle for one entry.
type BuildFunc func(ctx context.Context) (*model.Bundle, error)

// Metrics receives cache events. spdata.MetricsCollector satisfies it.
type Metrics interface {
	RecordCache(hit bool)
	RecordBuild(d time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordCache(bool)                 {}
func (noopMetrics) RecordBuild(time.Duration, error) {}

// Stats holds cache counters.
type Stats struct {
	Hits       int64 // served from memory or the blob store
	Misses     int64 // required a build
	MemoryHits int64 // subset of Hits served from memory
	Corrupt    int64 // artifacts that failed validation and were rebuilt
	Builds     int64 // successful builds
	Resident   int   // bundles held in memory
}

// Option configures a Cache.
type Option func(*Cache)

// WithCompression sets the payload compression of new artifacts.
func WithCompression(c bundle.Compression) Option {
	return func(cc *Cache) {
		cc.compression = c
	}
}

// WithMemoryCapacity keeps up to n decoded bundles in memory.
func WithMemoryCapacity(n int) Option {
	return func(c *Cache) {
		c.memCapacity = n
	}
}

// WithResourceController charges in-memory bundles against rc's memory limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(c *Cache) {
		c.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Cache memoizes bundles in a blob store.
type Cache struct {
	store       blobstore.BlobStore
	compression bundle.Compression
	memCapacity int
	rc          *resource.Controller
	logger      *slog.Logger
	metrics     Metrics

	mem   *lru
	group singleflight.Group

	hits       atomic.Int64
	misses     atomic.Int64
	memoryHits atomic.Int64
	corrupt    atomic.Int64
	builds     atomic.Int64
}

// New creates a Cache over store.
func New(store blobstore.BlobStore, opts ...Option) *Cache {
	c := &Cache{
		store:       store,
		compression: bundle.CompressionLZ4,
		logger:      slog.New(slog.DiscardHandler),
		metrics:     noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.memCapacity > 0 {
		c.mem = newLRU(c.memCapacity, c.rc)
	}
	return c
}

// Key returns the artifact key for an entry name.
func Key(name string) string {
	return name + Suffix
}

// GetOrBuild returns the bundle for name, calling build only when no valid
// artifact exists. A build error is returned as is and nothing is persisted.
func (c *Cache) GetOrBuild(ctx context.Context, name string, build BuildFunc) (*model.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b, ok := c.mem.get(name); ok {
		c.hit(true)
		return b, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		if b, ok := c.mem.get(name); ok {
			c.hit(true)
			return b, nil
		}

		b, err := c.load(ctx, name)
		if err != nil {
			return nil, err
		}
		if b != nil {
			c.hit(false)
			c.mem.add(name, b)
			return b, nil
		}

		c.misses.Add(1)
		c.metrics.RecordCache(false)

		start := time.Now()
		b, err = build(ctx)
		c.metrics.RecordBuild(time.Since(start), err)
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)

		if err := c.persist(ctx, name, b); err != nil {
			return nil, err
		}
		c.mem.add(name, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	b, ok := v.(*model.Bundle)
	if !ok {
		return nil, fmt.Errorf("cache: unexpected type from singleflight group: got %T", v)
	}
	return b, nil
}

// load returns (nil, nil) on a miss, including a corrupt artifact.
func (c *Cache) load(ctx context.Context, name string) (*model.Bundle, error) {
	data, err := c.store.Get(ctx, Key(name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read %s: %w", Key(name), err)
	}

	b, err := bundle.Decode(data)
	if err == nil && b.Name != name {
		err = fmt.Errorf("%w: artifact holds entry %q", bundle.ErrCorrupt, b.Name)
	}
	if err != nil {
		c.corrupt.Add(1)
		c.logger.Warn("invalid cached artifact, rebuilding",
			"name", name,
			"key", Key(name),
			"error", err,
		)
		return nil, nil
	}
	return b, nil
}

func (c *Cache) persist(ctx context.Context, name string, b *model.Bundle) error {
	data, err := bundle.Encode(b, c.compression)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", name, err)
	}
	if err := c.store.Put(ctx, Key(name), data); err != nil {
		return fmt.Errorf("cache: persist %s: %w", Key(name), err)
	}
	c.logger.Debug("persisted artifact",
		"name", name,
		"bytes", len(data),
		"compression", c.compression.String(),
	)
	return nil
}

func (c *Cache) hit(memory bool) {
	c.hits.Add(1)
	if memory {
		c.memoryHits.Add(1)
	}
	c.metrics.RecordCache(true)
}

// Invalidate removes the artifact for name from memory and the blob store.
func (c *Cache) Invalidate(ctx context.Context, name string) error {
	c.mem.remove(name)
	return c.store.Delete(ctx, Key(name))
}

// Names returns the entry names with a persisted artifact, sorted. Artifacts
// are listed, not validated.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	keys, err := c.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if name, ok := strings.CutSuffix(k, Suffix); ok && name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		MemoryHits: c.memoryHits.Load(),
		Corrupt:    c.corrupt.Load(),
		Builds:     c.builds.Load(),
		Resident:   c.mem.len(),
	}
}

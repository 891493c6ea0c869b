package spdata

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hupe1980/spdata/blobstore"
	"github.com/hupe1980/spdata/bundle"
	"github.com/hupe1980/spdata/featurize"
)

type options struct {
	featureDim       int
	blobStore        blobstore.BlobStore
	cacheDir         string
	compression      bundle.Compression
	memoryCapacity   int
	memoryLimit      int64
	workers          int
	readLimit        int64
	rewrites         []pathRewrite
	metricsCollector MetricsCollector
	logger           *Logger
}

type pathRewrite struct {
	prefix string
	root   string
}

// Option configures Open and OpenRoot.
type Option func(*options)

// WithFeatureDim sets the node feature dimension. It must be positive and
// even. Defaults to featurize.DefaultDim.
//
// Bundles cached with a different dimension are not detected; use a separate
// cache directory per dimension.
func WithFeatureDim(dim int) Option {
	return func(o *options) {
		o.featureDim = dim
	}
}

// WithBlobStore stores processed bundles in store instead of a local
// directory. It takes precedence over WithCacheDir.
//
// Example with MinIO:
//
//	client, _ := minio.New(endpoint, &minio.Options{...})
//	ds, _ := spdata.Open(ctx, path,
//	    spdata.WithBlobStore(miniostore.NewStore(client, "datasets", "processed/wider_range")),
//	)
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCacheDir sets the local directory for processed bundles.
// Defaults to DefaultCacheDir(manifestPath).
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithCompression sets the bundle compression. Defaults to LZ4.
func WithCompression(c bundle.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMemoryCapacity keeps up to n decoded bundles in memory in front of the
// blob store. 0 disables the memory front.
func WithMemoryCapacity(n int) Option {
	return func(o *options) {
		o.memoryCapacity = n
	}
}

// WithMemoryLimit caps the bytes held by the memory front. 0 means no limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithWorkers sets the number of concurrent builds in Process.
// Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithReadLimit caps matrix file read throughput in bytes per second.
// 0 means unlimited.
func WithReadLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.readLimit = bytesPerSec
	}
}

// WithPathRewrite replaces a leading prefix of matrix paths recorded in the
// manifest with root. Paths are compared after filepath.Clean, so
// "./dataset" matches "dataset/run/1_m1.mtx". Rewrites are tried in the
// order given; the first match wins.
//
// This re-roots datasets that were generated relative to another working
// directory:
//
//	spdata.Open(ctx, path, spdata.WithPathRewrite("./dataset", "/data/spdata"))
func WithPathRewrite(prefix, root string) Option {
	return func(o *options) {
		o.rewrites = append(o.rewrites, pathRewrite{prefix: filepath.Clean(prefix), root: root})
	}
}

// WithMetricsCollector configures a metrics collector for cache and build
// events. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := spdata.NewJSONLogger(slog.LevelInfo)
//	ds, _ := spdata.Open(ctx, path, spdata.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		featureDim:       featurize.DefaultDim,
		compression:      bundle.CompressionLZ4,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// resolve applies the first matching rewrite to path.
func (o *options) resolve(path string) string {
	clean := filepath.Clean(path)
	for _, rw := range o.rewrites {
		if clean == rw.prefix {
			return rw.root
		}
		dir := rw.prefix
		if !strings.HasSuffix(dir, string(filepath.Separator)) {
			dir += string(filepath.Separator)
		}
		if rest, ok := strings.CutPrefix(clean, dir); ok {
			return filepath.Join(rw.root, rest)
		}
	}
	return path
}

package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/spdata"
	"github.com/hupe1980/spdata/blobstore"
	miniostore "github.com/hupe1980/spdata/blobstore/minio"
	s3store "github.com/hupe1980/spdata/blobstore/s3"
	"github.com/hupe1980/spdata/bundle"
	"github.com/hupe1980/spdata/internal/config"
)

// blobStore returns the bundle store selected by cfg.Cache. A nil store with
// a nil error means the dataset default (a local directory) applies.
func blobStore(ctx context.Context, cfg config.Config) (blobstore.BlobStore, error) {
	c := cfg.Cache
	switch c.Backend {
	case config.BackendMinIO:
		client, err := minio.New(c.Endpoint, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: c.UseSSL,
			Region: c.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, c.Bucket, prefix(cfg)), nil

	case config.BackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		if c.Region != "" {
			opts = append(opts, awsconfig.WithRegion(c.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if c.Endpoint != "" {
				o.BaseEndpoint = &c.Endpoint
				o.UsePathStyle = true
			}
		})
		return s3store.NewStore(client, c.Bucket, prefix(cfg)), nil

	default:
		if c.Dir != "" {
			return blobstore.NewLocalStore(c.Dir), nil
		}
		return nil, nil
	}
}

// prefix defaults the object prefix to processed/<name>.
func prefix(cfg config.Config) string {
	if cfg.Cache.Prefix != "" {
		return cfg.Cache.Prefix
	}
	return spdata.ProcessedDir + "/" + cfg.Dataset.Name
}

// datasetOptions translates cfg into spdata options.
func (a *app) datasetOptions(ctx context.Context) ([]spdata.Option, error) {
	c := a.cfg.Cache
	compression, err := bundle.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}

	opts := []spdata.Option{
		spdata.WithFeatureDim(a.cfg.Features.Dim),
		spdata.WithCompression(compression),
		spdata.WithMemoryCapacity(c.MemoryCapacity),
		spdata.WithMemoryLimit(c.MemoryLimit),
		spdata.WithReadLimit(c.ReadLimit),
		spdata.WithWorkers(c.Workers),
		spdata.WithLogger(a.logger.WithDataset(a.cfg.Dataset.Name)),
		spdata.WithMetricsCollector(a.metrics),
	}
	if p := a.cfg.Dataset.PathPrefix; p != "" {
		opts = append(opts, spdata.WithPathRewrite(p, a.cfg.Dataset.Root))
	}

	store, err := blobStore(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, spdata.WithBlobStore(store))
	}
	return opts, nil
}

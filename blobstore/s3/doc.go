// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "processed/")
//
//	ds, err := spdata.Open(ctx, "dataset/manifest.csv", spdata.WithBlobStore(store))
//
// # Features
//
//   - Uploads through the s3 manager, multipart for large bundles
//   - Automatic pagination for listing
//   - Configurable prefix for sharing a bucket between datasets
package s3

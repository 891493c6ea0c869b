// Package minio implements blobstore.BlobStore on top of minio-go, for MinIO
// and other S3-compatible object stores.
//
// Each blob is a single object, so Put is atomic from a reader's point of
// view: an object is visible only after the upload completes.
package minio

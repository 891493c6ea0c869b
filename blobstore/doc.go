// Package blobstore provides the storage abstraction behind the processed
// entry cache.
//
// BlobStore stores small immutable artifacts by name. Put must be atomic: a
// concurrent or later Get observes either the previous blob or the complete
// new one, never a partial write. Implementations must be safe for concurrent
// use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, publishes via temp file + rename
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3
package blobstore

// Package cache memoizes processed dataset entries.
//
// GetOrBuild returns the persisted bundle for a name when one exists and
// otherwise builds it, persists it through a blobstore.BlobStore and returns
// it. The blob store publishes atomically, so an interrupted build never
// leaves a partial artifact behind that a later call would mistake for a
// valid one. An artifact that fails validation is logged and rebuilt.
//
// Concurrent calls for the same name within one process share a single
// build. Separate processes may race; the last writer wins, which is safe
// because builds are deterministic.
//
// Returned bundles are shared and must be treated as read-only.
package cache

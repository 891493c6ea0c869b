// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: filesystem operations (open, remove, rename, ...)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, sync, close and rename failures
//
// # Atomic Publish
//
// [WriteAtomic] writes data to a temporary file in the destination directory,
// syncs it, and renames it over the final name. Readers observe either the old
// file or the complete new one, never a partial write. Manifests and cached
// bundles are published this way.
package fs

package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	spfs "github.com/hupe1980/spdata/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLifecycle(t *testing.T, store BlobStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing.bundle")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "a.bundle", []byte("first")))
	require.NoError(t, store.Put(ctx, "nested/b.bundle", []byte("second")))
	require.NoError(t, store.Put(ctx, "a.bundle", []byte("replaced")))

	got, err := store.Get(ctx, "a.bundle")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bundle", "nested/b.bundle"}, names)

	names, err = store.List(ctx, "nested/")
	require.NoError(t, err)
	assert.Equal(t, []string{"nested/b.bundle"}, names)

	require.NoError(t, store.Delete(ctx, "a.bundle"))
	require.NoError(t, store.Delete(ctx, "a.bundle"))
	_, err = store.Get(ctx, "a.bundle")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_Lifecycle(t *testing.T) {
	testLifecycle(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	testLifecycle(t, store)
	assert.Equal(t, 3, store.Puts())
}

func TestLocalStore_FailedPutLeavesPrevious(t *testing.T) {
	dir := t.TempDir()
	ffs := spfs.NewFaultyFS(nil)
	store := NewLocalStoreFS(dir, ffs)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "x.bundle", []byte("good")))

	ffs.AddRule("x.bundle", spfs.Fault{FailAfterBytes: 2})
	err := store.Put(ctx, "x.bundle", []byte("torn write"))
	require.Error(t, err)

	got, err := store.Get(ctx, "x.bundle")
	require.NoError(t, err)
	assert.Equal(t, "good", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.bundle"}, names)
}

func TestLocalStore_ListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, spfs.TempPrefix+"y.bundle-123"), []byte("partial"), 0o644))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_InvalidName(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "../escape", []byte("x")))
	_, err := store.Get(ctx, "")
	assert.Error(t, err)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/spdata/blobstore"
	"github.com/hupe1980/spdata/bundle"
	"github.com/hupe1980/spdata/featurize"
	"github.com/hupe1980/spdata/internal/fs"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBundle(t *testing.T, name string) *model.Bundle {
	t.Helper()
	f, err := featurize.New(4)
	require.NoError(t, err)

	m := &model.SparseMatrix{Rows: 3, Cols: 3, Entries: []model.Triplet{{Row: 0, Col: 0, Value: 5}, {Row: 1, Col: 2, Value: 3}}}
	g1, err := f.Featurize(m, 0.25)
	require.NoError(t, err)
	g2, err := f.Featurize(m, 0.25)
	require.NoError(t, err)
	return &model.Bundle{Name: name, M1: g1, M2: g2, Label: 0.25}
}

type countingBuild struct {
	t     *testing.T
	name  string
	calls atomic.Int64
	err   error
	delay time.Duration
}

func (b *countingBuild) build(ctx context.Context) (*model.Bundle, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.err != nil {
		return nil, b.err
	}
	return makeBundle(b.t, b.name), nil
}

func TestCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	c := New(store)
	cb := &countingBuild{t: t, name: "100"}

	b, err := c.GetOrBuild(ctx, "100", cb.build)
	require.NoError(t, err)
	assert.Equal(t, "100", b.Name)
	assert.Equal(t, int64(1), cb.calls.Load())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"100.bundle"}, names)

	again, err := c.GetOrBuild(ctx, "100", cb.build)
	require.NoError(t, err)
	assert.Equal(t, b, again)
	assert.Equal(t, int64(1), cb.calls.Load())

	// A fresh cache over the same store (a later run) must not rebuild.
	fresh := New(store)
	_, err = fresh.GetOrBuild(ctx, "100", cb.build)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cb.calls.Load())

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Builds)
}

func TestCache_BuildErrorNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	c := New(store)
	cb := &countingBuild{t: t, name: "x", err: model.ErrDegenerateInput}

	_, err := c.GetOrBuild(ctx, "x", cb.build)
	require.ErrorIs(t, err, model.ErrDegenerateInput)
	assert.Equal(t, 0, store.Puts())

	// No retry on its own, but a later call builds again.
	cb.err = nil
	b, err := c.GetOrBuild(ctx, "x", cb.build)
	require.NoError(t, err)
	assert.Equal(t, "x", b.Name)
	assert.Equal(t, int64(2), cb.calls.Load())
}

func TestCache_CorruptArtifactRebuilt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	c := New(store)

	data, err := bundle.Encode(makeBundle(t, "7"), bundle.CompressionNone)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, store.Put(ctx, Key("7"), data))

	cb := &countingBuild{t: t, name: "7"}
	b, err := c.GetOrBuild(ctx, "7", cb.build)
	require.NoError(t, err)
	assert.Equal(t, "7", b.Name)
	assert.Equal(t, int64(1), cb.calls.Load())
	assert.Equal(t, int64(1), c.Stats().Corrupt)

	// The rebuilt artifact replaced the corrupt one.
	stored, err := store.Get(ctx, Key("7"))
	require.NoError(t, err)
	decoded, err := bundle.Decode(stored)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}

func TestCache_MismatchedNameRebuilt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	data, err := bundle.Encode(makeBundle(t, "other"), bundle.CompressionZSTD)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, Key("mine"), data))

	c := New(store)
	cb := &countingBuild{t: t, name: "mine"}
	b, err := c.GetOrBuild(ctx, "mine", cb.build)
	require.NoError(t, err)
	assert.Equal(t, "mine", b.Name)
	assert.Equal(t, int64(1), c.Stats().Corrupt)
}

func TestCache_ConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	c := New(blobstore.NewMemoryStore())
	cb := &countingBuild{t: t, name: "n", delay: 20 * time.Millisecond}

	var wg sync.WaitGroup
	results := make([]*model.Bundle, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := c.GetOrBuild(ctx, "n", cb.build)
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), cb.calls.Load())
	for _, b := range results {
		require.NotNil(t, b)
		assert.Equal(t, "n", b.Name)
	}
}

func TestCache_PersistFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("e.bundle", fs.Fault{FailOnSync: true})
	c := New(blobstore.NewLocalStoreFS(dir, ffs))

	cb := &countingBuild{t: t, name: "e"}
	_, err := c.GetOrBuild(ctx, "e", cb.build)
	require.ErrorIs(t, err, fs.ErrInjected)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact or temp file may remain")

	ffs.ClearRules()
	_, err = c.GetOrBuild(ctx, "e", cb.build)
	require.NoError(t, err)
	_, err = os.Stat(dir + "/e.bundle")
	assert.NoError(t, err)
}

func TestCache_MemoryFront(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{})
	c := New(store, WithMemoryCapacity(1), WithResourceController(rc))

	a := &countingBuild{t: t, name: "a"}
	b := &countingBuild{t: t, name: "b"}

	_, err := c.GetOrBuild(ctx, "a", a.build)
	require.NoError(t, err)
	assert.Greater(t, rc.MemoryUsage(), int64(0))

	_, err = c.GetOrBuild(ctx, "a", a.build)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Stats().MemoryHits)

	_, err = c.GetOrBuild(ctx, "b", b.build)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats().Resident)

	// "a" was evicted from memory but is still persisted.
	_, err = c.GetOrBuild(ctx, "a", a.build)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.calls.Load())
	assert.Equal(t, int64(1), c.Stats().MemoryHits)
	assert.Equal(t, int64(2), c.Stats().Hits)

	require.NoError(t, c.Invalidate(ctx, "a"))
	require.NoError(t, c.Invalidate(ctx, "b"))
	assert.Equal(t, 0, c.Stats().Resident)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestCache_MemoryBudget(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	c := New(blobstore.NewMemoryStore(), WithMemoryCapacity(8), WithResourceController(rc))

	cb := &countingBuild{t: t, name: "big"}
	_, err := c.GetOrBuild(ctx, "big", cb.build)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Stats().Resident)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestCache_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(blobstore.NewMemoryStore())
	cb := &countingBuild{t: t, name: "c"}
	_, err := c.GetOrBuild(ctx, "c", cb.build)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), cb.calls.Load())
}

type failingStore struct {
	blobstore.BlobStore
}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("backend unavailable")
}

func TestCache_StoreErrorNotMasked(t *testing.T) {
	c := New(failingStore{blobstore.NewMemoryStore()})
	cb := &countingBuild{t: t, name: "s"}
	_, err := c.GetOrBuild(context.Background(), "s", cb.build)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
	assert.Equal(t, int64(0), cb.calls.Load())
}

type recordingMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
	builds int
}

func (m *recordingMetrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *recordingMetrics) RecordBuild(time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds++
}

func TestCache_Metrics(t *testing.T) {
	ctx := context.Background()
	m := &recordingMetrics{}
	c := New(blobstore.NewMemoryStore(), WithMetrics(m))
	cb := &countingBuild{t: t, name: "m"}

	for range 3 {
		_, err := c.GetOrBuild(ctx, "m", cb.build)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.builds)
}

func TestCache_Names(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	c := New(store)

	for _, name := range []string{"200", "100"} {
		cb := &countingBuild{t: t, name: name}
		_, err := c.GetOrBuild(ctx, name, cb.build)
		require.NoError(t, err)
	}
	require.NoError(t, store.Put(ctx, "notes.txt", []byte("x")))

	names, err := c.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, names)

	require.NoError(t, c.Invalidate(ctx, "100"))
	names, err = c.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"200"}, names)
}

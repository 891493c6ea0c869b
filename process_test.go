package spdata_test

import (
	"context"
	"os"
	"testing"

	"github.com/hupe1980/spdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess(t *testing.T) {
	ds, _ := openTest(t, 10, spdata.WithWorkers(3))
	ctx := context.Background()

	report, err := ds.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 10, report.Built)
	assert.Equal(t, 0, report.Cached)
	assert.Equal(t, 0, report.Failed)
	assert.NoError(t, report.Err())

	report, err = ds.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Built)
	assert.Equal(t, 10, report.Cached)
}

func TestProcess_FailuresIsolated(t *testing.T) {
	ds, _ := openTest(t, 6)
	ctx := context.Background()

	missing, _ := ds.Entry(1)
	require.NoError(t, os.Remove(missing.M1Path))
	malformed, _ := ds.Entry(4)
	require.NoError(t, os.WriteFile(malformed.M2Path, []byte("h\n1 1 1\nx y z\n"), 0o644))

	report, err := ds.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 4, report.Built)
	assert.Equal(t, 2, report.Failed)

	require.Len(t, report.Errors, 2)
	assert.Equal(t, missing.Name, report.Errors[0].Name)
	assert.ErrorIs(t, report.Errors[0], spdata.ErrNotFound)
	assert.Equal(t, malformed.Name, report.Errors[1].Name)
	assert.ErrorIs(t, report.Errors[1], spdata.ErrFormat)

	joined := report.Err()
	assert.ErrorIs(t, joined, spdata.ErrNotFound)
	assert.ErrorIs(t, joined, spdata.ErrFormat)
}

func TestProcess_Canceled(t *testing.T) {
	ds, _ := openTest(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := ds.Process(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, int64(0), ds.CacheStats().Builds)
}

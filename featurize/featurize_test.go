package featurize

import (
	"math"
	"testing"

	"github.com/hupe1980/spdata/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diag(n uint64) *model.SparseMatrix {
	m := &model.SparseMatrix{Rows: n, Cols: n}
	for i := uint64(0); i < n; i++ {
		m.Entries = append(m.Entries, model.Triplet{Row: i, Col: i, Value: 1})
	}
	return m
}

func TestNew_InvalidDim(t *testing.T) {
	for _, dim := range []int{-2, 0, 1, 15} {
		_, err := New(dim)
		require.Error(t, err, "dim=%d", dim)
		assert.ErrorIs(t, err, model.ErrConfig)
	}

	f, err := New(DefaultDim)
	require.NoError(t, err)
	assert.Equal(t, 16, f.Dim())
}

func TestFeaturize_Shape(t *testing.T) {
	f, err := New(16)
	require.NoError(t, err)

	g, err := f.Featurize(diag(3), 0.25)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), g.NumNodes)
	assert.Equal(t, 16, g.FeatureDim)
	assert.Len(t, g.Features, 3*16)
	assert.Equal(t, 0.25, g.Label)

	row0 := g.Feature(0)
	for i := 0; i < 16; i += 2 {
		assert.Equal(t, 0.0, row0[i])
		assert.Equal(t, 1.0, row0[i+1])
	}
}

func TestFeaturize_Values(t *testing.T) {
	f, err := New(4)
	require.NoError(t, err)

	g, err := f.Featurize(&model.SparseMatrix{Rows: 3, Cols: 2}, 0)
	require.NoError(t, err)

	// dim=4: frequencies 1 and 1/100.
	row2 := g.Feature(2)
	assert.InDelta(t, math.Sin(2), row2[0], 1e-15)
	assert.InDelta(t, math.Cos(2), row2[1], 1e-15)
	assert.InDelta(t, math.Sin(0.02), row2[2], 1e-15)
	assert.InDelta(t, math.Cos(0.02), row2[3], 1e-15)
}

func TestFeaturize_NumNodesIsMaxDim(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)

	g, err := f.Featurize(&model.SparseMatrix{Rows: 2, Cols: 7}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), g.NumNodes)

	g, err = f.Featurize(&model.SparseMatrix{Rows: 9, Cols: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), g.NumNodes)
}

func TestFeaturize_Deterministic(t *testing.T) {
	f1, err := New(16)
	require.NoError(t, err)
	f2, err := New(16)
	require.NoError(t, err)

	m := diag(50)
	a, err := f1.Featurize(m, 0.5)
	require.NoError(t, err)
	b, err := f2.Featurize(m, 0.5)
	require.NoError(t, err)

	require.Len(t, b.Features, len(a.Features))
	for i := range a.Features {
		assert.Equal(t, math.Float64bits(a.Features[i]), math.Float64bits(b.Features[i]))
	}
}

func TestFeaturize_EdgeIndexVerbatim(t *testing.T) {
	f, err := New(2)
	require.NoError(t, err)

	m := &model.SparseMatrix{
		Rows: 3, Cols: 3,
		Entries: []model.Triplet{
			{Row: 2, Col: 0, Value: 1},
			{Row: 0, Col: 1, Value: 1},
			{Row: 2, Col: 0, Value: 4},
		},
	}
	g, err := f.Featurize(m, 0)
	require.NoError(t, err)

	assert.Equal(t, []uint64{2, 0, 2}, g.EdgeIndex[0])
	assert.Equal(t, []uint64{0, 1, 0}, g.EdgeIndex[1])
	assert.Equal(t, 3, g.NumEdges())
}

func TestFeaturize_Degenerate(t *testing.T) {
	f, err := New(16)
	require.NoError(t, err)

	_, err = f.Featurize(&model.SparseMatrix{}, 0)
	assert.ErrorIs(t, err, model.ErrDegenerateInput)
}

func TestPositionalEncoding(t *testing.T) {
	enc, err := PositionalEncoding(5, 8)
	require.NoError(t, err)
	assert.Len(t, enc, 40)

	_, err = PositionalEncoding(5, 7)
	assert.ErrorIs(t, err, model.ErrConfig)
}

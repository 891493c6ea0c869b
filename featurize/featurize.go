// Package featurize turns a sparse matrix into the graph representation fed to
// the regression model.
//
// Node features are a fixed sinusoidal positional encoding of the node index,
// the same construction used for sequence positions:
//
//	x[p][2i]   = sin(p / 10000^(2i/dim))
//	x[p][2i+1] = cos(p / 10000^(2i/dim))
//
// The encoding depends only on the node index and the feature dimension. It
// carries no degree or connectivity information; the graph structure reaches
// the model only through the edge index, which is copied verbatim from the
// matrix entries (no symmetrization, no self loops, duplicates kept).
package featurize

import (
	"fmt"
	"math"

	"github.com/hupe1980/spdata/model"
)

// DefaultDim is the feature dimension used by the reference model.
const DefaultDim = 16

// maxFeatureCells caps numNodes*dim for a single graph.
const maxFeatureCells = 1 << 34

// Featurizer computes FeaturizedGraphs for a fixed feature dimension.
// It is safe for concurrent use.
type Featurizer struct {
	dim     int
	divTerm []float64 // 10000^(2i/dim), one per sin/cos pair
}

// New creates a Featurizer. dim must be positive and even.
func New(dim int) (*Featurizer, error) {
	if err := ValidateDim(dim); err != nil {
		return nil, err
	}

	divTerm := make([]float64, dim/2)
	for i := range divTerm {
		divTerm[i] = math.Pow(10000, float64(2*i)/float64(dim))
	}

	return &Featurizer{dim: dim, divTerm: divTerm}, nil
}

// ValidateDim returns a *model.ConfigError unless dim is positive and even.
func ValidateDim(dim int) error {
	if dim <= 0 {
		return &model.ConfigError{Field: "feature_dim", Value: dim, Reason: "must be positive"}
	}
	if dim%2 != 0 {
		return &model.ConfigError{Field: "feature_dim", Value: dim, Reason: "must be even"}
	}
	return nil
}

// Dim returns the feature dimension.
func (f *Featurizer) Dim() int {
	return f.dim
}

// Featurize builds the graph view of m and attaches label unchanged.
//
// Returns model.ErrDegenerateInput when max(rows, cols) is zero.
func (f *Featurizer) Featurize(m *model.SparseMatrix, label float64) (*model.FeaturizedGraph, error) {
	numNodes := m.NumNodes()
	if numNodes == 0 {
		return nil, fmt.Errorf("%w: matrix has shape %dx%d", model.ErrDegenerateInput, m.Rows, m.Cols)
	}

	features, err := f.encode(numNodes)
	if err != nil {
		return nil, err
	}

	rows := make([]uint64, len(m.Entries))
	cols := make([]uint64, len(m.Entries))
	for i, t := range m.Entries {
		rows[i] = t.Row
		cols[i] = t.Col
	}

	return &model.FeaturizedGraph{
		NumNodes:   numNodes,
		FeatureDim: f.dim,
		Features:   features,
		EdgeIndex:  [2][]uint64{rows, cols},
		Label:      label,
	}, nil
}

func (f *Featurizer) encode(numNodes uint64) ([]float64, error) {
	if numNodes > maxFeatureCells/uint64(f.dim) {
		return nil, fmt.Errorf("featurize: %d nodes with dim %d exceeds the feature size limit", numNodes, f.dim)
	}

	out := make([]float64, numNodes*uint64(f.dim))
	for p := uint64(0); p < numNodes; p++ {
		row := out[p*uint64(f.dim) : (p+1)*uint64(f.dim)]
		pos := float64(p)
		for i, d := range f.divTerm {
			row[2*i] = math.Sin(pos / d)
			row[2*i+1] = math.Cos(pos / d)
		}
	}
	return out, nil
}

// PositionalEncoding returns the row-major (numNodes, dim) encoding table.
func PositionalEncoding(numNodes uint64, dim int) ([]float64, error) {
	f, err := New(dim)
	if err != nil {
		return nil, err
	}
	return f.encode(numNodes)
}

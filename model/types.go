package model

import (
	"fmt"
	"math"
)

// DensityTolerance is the maximum allowed drift between a recorded density
// and nnz/(rows*cols).
const DensityTolerance = 1e-9

// Triplet is a single stored coordinate entry. Row and Col are 0-based.
type Triplet struct {
	Row   uint64
	Col   uint64
	Value float64
}

// SparseMatrix is a coordinate-format matrix.
//
// Entries keep file order. Duplicate coordinates are legal and preserved.
type SparseMatrix struct {
	Rows    uint64
	Cols    uint64
	Entries []Triplet
}

// NNZ returns the number of stored entries.
func (m *SparseMatrix) NNZ() int {
	return len(m.Entries)
}

// NumNodes returns max(Rows, Cols).
func (m *SparseMatrix) NumNodes() uint64 {
	if m.Rows > m.Cols {
		return m.Rows
	}
	return m.Cols
}

// MatrixStats describes one matrix of a dataset entry.
type MatrixStats struct {
	Rows    uint64  `json:"rows"`
	Cols    uint64  `json:"cols"`
	NNZ     uint64  `json:"nnz"`
	Density float64 `json:"nnz_density"`
}

// Density returns nnz/(rows*cols), or 0 for an empty shape.
func Density(nnz, rows, cols uint64) float64 {
	if rows == 0 || cols == 0 {
		return 0
	}
	return float64(nnz) / (float64(rows) * float64(cols))
}

// Validate checks the density invariant and the [0, 1] range.
func (s MatrixStats) Validate() error {
	if s.Density < 0 || s.Density > 1 {
		return fmt.Errorf("density %v out of range [0, 1]", s.Density)
	}
	if want := Density(s.NNZ, s.Rows, s.Cols); math.Abs(s.Density-want) >= DensityTolerance {
		return fmt.Errorf("density %v does not match nnz/(rows*cols) = %v", s.Density, want)
	}
	return nil
}

// DatasetEntry is one manifest row.
//
// Name is the generator's timestamp key, kept as an opaque string.
// Paths are not checked for existence.
type DatasetEntry struct {
	Name        string      `json:"timestamp"`
	M1          MatrixStats `json:"m1"`
	M2          MatrixStats `json:"m2"`
	Product     MatrixStats `json:"product"`
	M1Path      string      `json:"m1_path"`
	M2Path      string      `json:"m2_path"`
	ProductPath string      `json:"product_path"`
}

// Validate checks the density invariant for m1, m2 and the product.
func (e DatasetEntry) Validate() error {
	for _, s := range []struct {
		label string
		stats MatrixStats
	}{{"matrix 1", e.M1}, {"matrix 2", e.M2}, {"product", e.Product}} {
		if err := s.stats.Validate(); err != nil {
			return fmt.Errorf("entry %s: %s: %w", e.Name, s.label, err)
		}
	}
	return nil
}

// FeaturizedGraph is the graph view of one SparseMatrix.
//
// Features is row-major with shape (NumNodes, FeatureDim). EdgeIndex holds
// the source row indices in EdgeIndex[0] and the column indices in
// EdgeIndex[1], in entry order.
type FeaturizedGraph struct {
	NumNodes   uint64
	FeatureDim int
	Features   []float64
	EdgeIndex  [2][]uint64
	Label      float64
}

// Feature returns the feature row for node p.
func (g *FeaturizedGraph) Feature(p uint64) []float64 {
	off := p * uint64(g.FeatureDim)
	return g.Features[off : off+uint64(g.FeatureDim)]
}

// NumEdges returns the number of edges.
func (g *FeaturizedGraph) NumEdges() int {
	return len(g.EdgeIndex[0])
}

// Bundle is the processed artifact for one dataset entry.
type Bundle struct {
	Name  string
	M1    *FeaturizedGraph
	M2    *FeaturizedGraph
	Label float64
}

package testutil

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/hupe1980/spdata/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a non-negative pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// SparseMatrix returns a rows x cols matrix with nnz distinct coordinates in
// row-major order and values in [-1, 1). nnz is clamped to rows*cols.
func (r *RNG) SparseMatrix(rows, cols uint64, nnz int) *model.SparseMatrix {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &model.SparseMatrix{Rows: rows, Cols: cols}
	cells := rows * cols
	if cells == 0 || nnz <= 0 {
		return m
	}
	if uint64(nnz) > cells {
		nnz = int(cells)
	}

	picked := make(map[uint64]struct{}, nnz)
	for len(picked) < nnz {
		picked[r.rand.Uint64N(cells)] = struct{}{}
	}

	keys := make([]uint64, 0, nnz)
	for k := range picked {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	m.Entries = make([]model.Triplet, nnz)
	for i, k := range keys {
		m.Entries[i] = model.Triplet{
			Row:   k / cols,
			Col:   k % cols,
			Value: 2*r.rand.Float64() - 1,
		}
	}
	return m
}

// Multiply returns a*b in row-major order. Duplicate coordinates in the
// inputs are summed. It panics if the inner dimensions differ.
func Multiply(a, b *model.SparseMatrix) *model.SparseMatrix {
	if a.Cols != b.Rows {
		panic("testutil: inner dimensions differ")
	}

	byRow := make(map[uint64][]model.Triplet)
	for _, e := range b.Entries {
		byRow[e.Row] = append(byRow[e.Row], e)
	}

	sums := make(map[[2]uint64]float64)
	for _, x := range a.Entries {
		for _, y := range byRow[x.Col] {
			sums[[2]uint64{x.Row, y.Col}] += x.Value * y.Value
		}
	}

	out := &model.SparseMatrix{Rows: a.Rows, Cols: b.Cols}
	for k, v := range sums {
		if v != 0 {
			out.Entries = append(out.Entries, model.Triplet{Row: k[0], Col: k[1], Value: v})
		}
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		ei, ej := out.Entries[i], out.Entries[j]
		if ei.Row != ej.Row {
			return ei.Row < ej.Row
		}
		return ei.Col < ej.Col
	})
	return out
}

// Stats returns the manifest statistics of m.
func Stats(m *model.SparseMatrix) model.MatrixStats {
	nnz := uint64(m.NNZ())
	return model.MatrixStats{
		Rows:    m.Rows,
		Cols:    m.Cols,
		NNZ:     nnz,
		Density: model.Density(nnz, m.Rows, m.Cols),
	}
}

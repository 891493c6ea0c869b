package testutil

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/hupe1980/spdata/generator"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/mtx"
)

// FakeGenerator writes small random matrix pairs and their product.
//
// Matrices are drawn from the trial seed, so a trial always produces the same
// matrices. Timestamps come from a counter and are unique per generator.
type FakeGenerator struct {
	// Base is the first timestamp. Defaults to 1700000000000000000.
	Base uint64
	// MaxSize caps rows, inner and cols to keep files small. Defaults to 32.
	MaxSize uint64

	next atomic.Uint64
}

// NewFakeGenerator returns a FakeGenerator with defaults.
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{}
}

// Generate implements generator.Generator.
func (g *FakeGenerator) Generate(ctx context.Context, p generator.Params) (*generator.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := g.Base
	if base == 0 {
		base = 1700000000000000000
	}
	maxSize := g.MaxSize
	if maxSize == 0 {
		maxSize = 32
	}
	ts := strconv.FormatUint(base+g.next.Add(1)-1, 10)

	rows, inner, cols := min(p.Rows, maxSize), min(p.Inner, maxSize), min(p.Cols, maxSize)
	rng := NewRNG(p.Seed)
	m1 := rng.SparseMatrix(rows, inner, nnzFor(rows, inner, p.MaxNNZ, p.M1.NNZSparsity))
	m2 := rng.SparseMatrix(inner, cols, nnzFor(inner, cols, p.MaxNNZ, p.M2.NNZSparsity))
	prod := Multiply(m1, m2)

	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return nil, err
	}
	res := &generator.Result{
		Timestamp:   ts,
		M1Path:      filepath.Join(p.OutputDir, ts+"_m1.mtx"),
		M2Path:      filepath.Join(p.OutputDir, ts+"_m2.mtx"),
		ProductPath: filepath.Join(p.OutputDir, ts+"_product.mtx"),
		M1:          model.MatrixStats{Rows: m1.Rows, Cols: m1.Cols, NNZ: uint64(m1.NNZ())},
		M2:          model.MatrixStats{Rows: m2.Rows, Cols: m2.Cols, NNZ: uint64(m2.NNZ())},
		Product:     Stats(prod),
	}
	for path, m := range map[string]*model.SparseMatrix{res.M1Path: m1, res.M2Path: m2, res.ProductPath: prod} {
		if err := mtx.WriteFile(path, m); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return res, nil
}

// Generated returns the number of Generate calls that drew a timestamp.
func (g *FakeGenerator) Generated() int {
	return int(g.next.Load())
}

func nnzFor(rows, cols, maxNNZ uint64, sparsity float64) int {
	n := math.Round((1 - sparsity) * float64(rows) * float64(cols))
	if n < 1 {
		n = 1
	}
	if maxNNZ > 0 && n > float64(maxNNZ) {
		n = float64(maxNNZ)
	}
	return int(n)
}

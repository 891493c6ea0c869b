package generator

import (
	"context"
	"fmt"

	"github.com/hupe1980/spdata/model"
)

// MatrixParams holds the per-matrix shape parameters passed to the
// generator. All sparsities are in [0, 1].
type MatrixParams struct {
	NNZSparsity  float64 `json:"nnz_sparsity"`
	RowSparsity  float64 `json:"row_sparsity"`
	ColSparsity  float64 `json:"col_sparsity"`
	DiagSparsity float64 `json:"diag_sparsity"`
	Symmetric    bool    `json:"symmetric"`
}

// Params is the input of one generator call.
//
// Matrix 1 is Rows x Inner and matrix 2 is Inner x Cols.
type Params struct {
	OutputDir string       `json:"output_dir"`
	Rows      uint64       `json:"rows"`
	Inner     uint64       `json:"inner"`
	Cols      uint64       `json:"cols"`
	MaxNNZ    uint64       `json:"max_nnz"`
	M1        MatrixParams `json:"m1"`
	M2        MatrixParams `json:"m2"`
	Seed      uint64       `json:"seed"`
}

// Square reports whether both matrices are square and the same size.
func (p Params) Square() bool {
	return p.Rows == p.Inner && p.Inner == p.Cols
}

// Validate checks sizes and sparsity ranges.
func (p Params) Validate() error {
	if p.Rows == 0 || p.Inner == 0 || p.Cols == 0 {
		return &model.ConfigError{Field: "size", Value: fmt.Sprintf("%dx%dx%d", p.Rows, p.Inner, p.Cols), Reason: "must be positive"}
	}
	for _, m := range []struct {
		label string
		p     MatrixParams
	}{{"m1", p.M1}, {"m2", p.M2}} {
		for _, f := range []struct {
			name string
			v    float64
		}{
			{"nnz_sparsity", m.p.NNZSparsity},
			{"row_sparsity", m.p.RowSparsity},
			{"col_sparsity", m.p.ColSparsity},
			{"diag_sparsity", m.p.DiagSparsity},
		} {
			if !(f.v >= 0 && f.v <= 1) {
				return &model.ConfigError{Field: m.label + "." + f.name, Value: f.v, Reason: "must be in [0, 1]"}
			}
		}
	}
	return nil
}

// Result is the output of one generator call.
//
// Timestamp is the entry's unique key. It is kept as a string so that
// nanosecond epochs survive without precision loss. Densities may be left
// zero; Entry derives them.
type Result struct {
	Timestamp   string            `json:"timestamp"`
	M1Path      string            `json:"m1_path"`
	M2Path      string            `json:"m2_path"`
	ProductPath string            `json:"product_path"`
	M1          model.MatrixStats `json:"m1"`
	M2          model.MatrixStats `json:"m2"`
	Product     model.MatrixStats `json:"product"`
}

// Entry converts r to a manifest entry. All three densities are recomputed
// as nnz/(rows*cols); the native generator reports the product density in
// single precision.
func (r *Result) Entry() model.DatasetEntry {
	m1, m2, prod := r.M1, r.M2, r.Product
	m1.Density = model.Density(m1.NNZ, m1.Rows, m1.Cols)
	m2.Density = model.Density(m2.NNZ, m2.Rows, m2.Cols)
	prod.Density = model.Density(prod.NNZ, prod.Rows, prod.Cols)
	return model.DatasetEntry{
		Name:        r.Timestamp,
		M1:          m1,
		M2:          m2,
		Product:     prod,
		M1Path:      r.M1Path,
		M2Path:      r.M2Path,
		ProductPath: r.ProductPath,
	}
}

func (r *Result) validate() error {
	if r == nil {
		return fmt.Errorf("generator returned no result")
	}
	if r.Timestamp == "" {
		return fmt.Errorf("generator returned an empty timestamp")
	}
	if r.Product.Density < 0 || r.Product.Density > 1 {
		return fmt.Errorf("product density %v out of range [0, 1]", r.Product.Density)
	}
	return nil
}

// Generator produces one matrix pair and its product.
// Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, p Params) (*Result, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, p Params) (*Result, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, p Params) (*Result, error) {
	return f(ctx, p)
}

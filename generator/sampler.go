package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/hupe1980/spdata/model"
)

// Scale selects how a Range maps a uniform draw to a value.
type Scale int

const (
	// Linear draws uniformly from [Min, Max).
	Linear Scale = iota
	// Log10 draws 10^U with U uniform in [Min, Max).
	Log10
	// OneMinusLog10 draws 1 - 10^U with U uniform in [Min, Max). With
	// exponents in [-10, 0] it yields sparsities concentrated near 1.
	OneMinusLog10
)

func (s Scale) String() string {
	switch s {
	case Linear:
		return "linear"
	case Log10:
		return "log10"
	case OneMinusLog10:
		return "one-minus-log10"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// ParseScale parses "linear", "log10" or "one-minus-log10".
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return Linear, nil
	case "log10", "log":
		return Log10, nil
	case "one-minus-log10", "sparsity":
		return OneMinusLog10, nil
	default:
		return Linear, &model.ConfigError{Field: "scale", Value: s, Reason: "unknown scale"}
	}
}

// Distribution draws a float64 from a random source.
type Distribution interface {
	Sample(rng *rand.Rand) float64
	Validate(field string) error
}

// Range is a continuous distribution over [Min, Max) under Scale.
type Range struct {
	Min   float64
	Max   float64
	Scale Scale
}

// Sample draws one value.
func (r Range) Sample(rng *rand.Rand) float64 {
	u := r.Min + rng.Float64()*(r.Max-r.Min)
	switch r.Scale {
	case Log10:
		return math.Pow(10, u)
	case OneMinusLog10:
		return 1 - math.Pow(10, u)
	default:
		return u
	}
}

// Validate checks Min <= Max and the scale.
func (r Range) Validate(field string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min > r.Max {
		return &model.ConfigError{Field: field, Value: fmt.Sprintf("[%v, %v]", r.Min, r.Max), Reason: "min must not exceed max"}
	}
	if r.Scale < Linear || r.Scale > OneMinusLog10 {
		return &model.ConfigError{Field: field, Value: r.Scale, Reason: "unknown scale"}
	}
	return nil
}

// Choice picks uniformly from a discrete set.
type Choice []float64

// Sample draws one value.
func (c Choice) Sample(rng *rand.Rand) float64 {
	return c[rng.IntN(len(c))]
}

// Validate checks the set is not empty.
func (c Choice) Validate(field string) error {
	if len(c) == 0 {
		return &model.ConfigError{Field: field, Value: "[]", Reason: "choice set is empty"}
	}
	return nil
}

// Fixed always returns the same value.
type Fixed float64

// Sample returns f.
func (f Fixed) Sample(*rand.Rand) float64 { return float64(f) }

// Validate accepts any value except NaN.
func (f Fixed) Validate(field string) error {
	if math.IsNaN(float64(f)) {
		return &model.ConfigError{Field: field, Value: f, Reason: "is NaN"}
	}
	return nil
}

// SamplingRules describe how trial parameters are drawn.
//
// Inner and Cols may be nil, in which case they equal Rows and both matrices
// are square. Sizes are truncated to integers.
type SamplingRules struct {
	Rows   Distribution
	Inner  Distribution
	Cols   Distribution
	MaxNNZ uint64

	NNZSparsity  Distribution
	RowSparsity  Distribution
	ColSparsity  Distribution
	DiagSparsity Distribution
	Symmetric    []bool
}

// DefaultRules returns the wide-range sampling used for general datasets:
// square sizes 10^[1.8, 3.5], sparsities 1 - 10^[-10, 0], either symmetry.
func DefaultRules() SamplingRules {
	sparsity := Range{Min: -10, Max: 0, Scale: OneMinusLog10}
	return SamplingRules{
		Rows:         Range{Min: 1.8, Max: 3.5, Scale: Log10},
		MaxNNZ:       100000,
		NNZSparsity:  sparsity,
		RowSparsity:  sparsity,
		ColSparsity:  sparsity,
		DiagSparsity: sparsity,
		Symmetric:    []bool{true, false},
	}
}

// ExtremeCaseRules returns discrete sampling over small square sizes with a
// few fixed sparsity levels.
func ExtremeCaseRules() SamplingRules {
	rowCol := Choice{0.5, 0.7, 0.9, 0.99, 0.999}
	return SamplingRules{
		Rows:         Choice{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000},
		MaxNNZ:       20000,
		NNZSparsity:  Choice{0.0001, 0.01, 0.05, 0.1, 0.2},
		RowSparsity:  rowCol,
		ColSparsity:  rowCol,
		DiagSparsity: Fixed(0),
		Symmetric:    []bool{false},
	}
}

// VectorProductRules returns sampling for outer products of vectors: an
// N x 1 column times a 1 x M row, with N and M drawn independently.
func VectorProductRules() SamplingRules {
	sizes := Choice{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000}
	structure := Choice{0, 0.5, 0.9}
	return SamplingRules{
		Rows:         sizes,
		Inner:        Fixed(1),
		Cols:         sizes,
		MaxNNZ:       20000,
		NNZSparsity:  Choice{0.01, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5},
		RowSparsity:  structure,
		ColSparsity:  structure,
		DiagSparsity: structure,
		Symmetric:    []bool{true, false},
	}
}

// Validate checks every distribution.
func (r SamplingRules) Validate() error {
	required := []struct {
		name string
		d    Distribution
	}{
		{"rows", r.Rows},
		{"nnz_sparsity", r.NNZSparsity},
		{"row_sparsity", r.RowSparsity},
		{"col_sparsity", r.ColSparsity},
		{"diag_sparsity", r.DiagSparsity},
	}
	for _, f := range required {
		if f.d == nil {
			return &model.ConfigError{Field: f.name, Value: nil, Reason: "is required"}
		}
		if err := f.d.Validate(f.name); err != nil {
			return err
		}
	}
	if r.Inner != nil {
		if err := r.Inner.Validate("inner"); err != nil {
			return err
		}
	}
	if r.Cols != nil {
		if err := r.Cols.Validate("cols"); err != nil {
			return err
		}
	}
	if r.MaxNNZ == 0 {
		return &model.ConfigError{Field: "max_nnz", Value: r.MaxNNZ, Reason: "must be positive"}
	}
	if len(r.Symmetric) == 0 {
		return &model.ConfigError{Field: "symmetric", Value: "[]", Reason: "choice set is empty"}
	}
	return nil
}

// Sampler draws Params per trial.
//
// Each trial uses its own source seeded from (seed, trial), so the Params of
// a trial do not depend on how trials are scheduled.
type Sampler struct {
	rules SamplingRules
	seed  uint64
}

// NewSampler validates rules and returns a Sampler.
func NewSampler(rules SamplingRules, seed uint64) (*Sampler, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{rules: rules, seed: seed}, nil
}

// Seed returns the base seed.
func (s *Sampler) Seed() uint64 {
	return s.seed
}

// Sample returns the Params for trial.
func (s *Sampler) Sample(trial int, outputDir string) Params {
	rng := rand.New(rand.NewPCG(s.seed, uint64(trial)))

	rows := sampleSize(s.rules.Rows, rng)
	inner, cols := rows, rows
	if s.rules.Inner != nil {
		inner = sampleSize(s.rules.Inner, rng)
	}
	if s.rules.Cols != nil {
		cols = sampleSize(s.rules.Cols, rng)
	}

	p := Params{
		OutputDir: outputDir,
		Rows:      rows,
		Inner:     inner,
		Cols:      cols,
		MaxNNZ:    s.rules.MaxNNZ,
	}
	p.M1 = s.matrix(rng)
	p.M2 = s.matrix(rng)
	p.Seed = rng.Uint64()
	return p
}

func (s *Sampler) matrix(rng *rand.Rand) MatrixParams {
	return MatrixParams{
		NNZSparsity:  clamp01(s.rules.NNZSparsity.Sample(rng)),
		RowSparsity:  clamp01(s.rules.RowSparsity.Sample(rng)),
		ColSparsity:  clamp01(s.rules.ColSparsity.Sample(rng)),
		DiagSparsity: clamp01(s.rules.DiagSparsity.Sample(rng)),
		Symmetric:    s.rules.Symmetric[rng.IntN(len(s.rules.Symmetric))],
	}
}

func sampleSize(d Distribution, rng *rand.Rand) uint64 {
	v := d.Sample(rng)
	if v < 1 {
		return 1
	}
	return uint64(v)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

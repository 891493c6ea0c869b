// Package testutil provides testing utilities for spdata.
//
// This package is intended for use in tests and examples only.
// It provides seeded random sparse matrices, a reference sparse product,
// and a fake generator that writes real matrix files.
//
// # Random Matrices
//
//	rng := testutil.NewRNG(seed)
//	m := rng.SparseMatrix(100, 80, 250)
//	p := testutil.Multiply(m, rng.SparseMatrix(80, 60, 200))
//
// # Fake Generator
//
//	gen := testutil.NewFakeGenerator()
//	coord, err := generator.New(gen, manifest.NewStore(path))
package testutil

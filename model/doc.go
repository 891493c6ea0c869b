// Package model defines core types used throughout spdata.
//
// # Matrix Types
//
//   - Triplet: one stored entry (row, col, value), 0-based in memory
//   - SparseMatrix: dimensions plus an ordered triplet list (duplicates kept)
//   - MatrixStats: rows, cols and nnz as reported by the generator
//
// # Dataset Types
//
//   - DatasetEntry: one manifest row (stats for m1, m2, product and file paths)
//   - FeaturizedGraph: node features plus edge index for one matrix
//   - Bundle: the featurized pair plus the product-density label
//
// # Errors
//
// The sentinel errors (ErrFormat, ErrConfig, ErrDegenerateInput, ErrNotFound,
// ErrGeneration) form the error taxonomy shared by every package. Typed errors
// carry context and match their sentinel with errors.Is.
package model

// Package mtx reads and writes the plain-text sparse triplet format produced by
// the matrix generator.
//
// # Format
//
//	%%MatrixMarket matrix coordinate real general   <- header, ignored
//	3 3 2                                           <- rows cols nnz
//	1 1 5                                           <- row col value (1-based)
//	2 2 3
//
// The first line is opaque and never validated. The dimension line must hold
// exactly three non-negative integers and exactly nnz data lines must follow.
// Row and column indices are 1-based on disk and 0-based in memory.
// Duplicate coordinates are kept in file order; nothing is summed or sorted.
//
// Every malformed input is reported as a *model.FormatError, which matches
// model.ErrFormat with errors.Is.
//
// Write produces output that Parse reads back to an identical matrix.
package mtx

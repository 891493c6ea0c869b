// Package manifest reads and writes the dataset manifest, a CSV file with one
// row per generated matrix pair.
//
// Rows are keyed by the generator's timestamp, which is kept as an opaque
// string so that large epoch values never lose precision. Reading resolves a
// repeated key by keeping the last row in file order, and iteration is always
// in lexicographic name order so that dataset splits are reproducible across
// re-reads.
//
// Writing is all-or-nothing: the CSV is written to a temp file in the same
// directory and renamed into place.
package manifest

// Package spdata builds training datasets of sparse matrix pairs for
// predicting the density of their product.
//
// A dataset is a manifest CSV listing, per entry, two generated operand
// matrices, their product and the shape statistics of all three. Entries are
// produced by an external generator driven by the generator package and are
// consumed here as featurized graph bundles.
//
// # Quick Start
//
// Generate a dataset:
//
//	store := manifest.NewStore("./dataset/csv/wider_range.csv")
//	coord, _ := generator.New(generator.NewCommand("./matrix-generator"), store,
//	    generator.WithOutputDir("./dataset/wider_range"),
//	    generator.WithWorkers(8),
//	)
//	report, _ := coord.Run(ctx, 50000)
//
// Consume it:
//
//	ds, _ := spdata.OpenRoot(ctx, "./dataset", "wider_range")
//	train, val, test, _ := ds.Split(0.8, 0.1)
//	b, _ := ds.Get(ctx, 0) // parsed, featurized and cached on first access
//
// # Processing Model
//
// Each entry is turned into a bundle: both operand matrices are parsed,
// converted to graphs whose nodes carry sinusoidal positional features, and
// labeled with the product's nnz density. Bundles are cached in a blob store
// (a local directory by default, MinIO or S3 optionally) and published
// atomically, so an interrupted build is simply rebuilt on the next access.
//
// Entry order is always lexicographic by name, which makes Split
// reproducible across re-reads of the same manifest.
//
// # Error Handling
//
// Errors are classified by sentinels re-exported from the model package:
//
//	if errors.Is(err, spdata.ErrFormat) { ... }      // malformed matrix or manifest
//	if errors.Is(err, spdata.ErrNotFound) { ... }    // missing manifest or matrix file
//	if errors.Is(err, spdata.ErrDegenerateInput) { ... }
//
// Process never aborts on a bad entry; it collects per-entry errors in its
// report.
package spdata

package spdata_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/spdata"
	"github.com/hupe1980/spdata/generator"
	"github.com/hupe1980/spdata/manifest"
	"github.com/hupe1980/spdata/model"
	"github.com/hupe1980/spdata/testutil"
)

// Example demonstrates generating a small dataset and consuming it.
func Example() {
	root, err := os.MkdirTemp("", "spdata-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(root) // Cleanup after example

	ctx := context.Background()

	// Generate 20 entries with an in-process generator.
	store := manifest.NewStore(spdata.ManifestPath(root, "demo"))
	coord, err := generator.New(testutil.NewFakeGenerator(), store,
		generator.WithOutputDir(filepath.Join(root, "demo")),
		generator.WithWorkers(4),
	)
	if err != nil {
		log.Fatal(err)
	}
	report, err := coord.Run(ctx, 20)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("generated:", report.Succeeded)

	// Open, process and split.
	ds, err := spdata.OpenRoot(ctx, root, "demo")
	if err != nil {
		log.Fatal(err)
	}
	processed, err := ds.Process(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("built:", processed.Built)

	train, val, test, err := ds.Split(0.8, 0.1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("split:", len(train), len(val), len(test))

	// Output:
	// generated: 20
	// built: 20
	// split: 16 2 2
}

// ExampleDataset_Each demonstrates streaming bundles to a consumer.
func ExampleDataset_Each() {
	root, err := os.MkdirTemp("", "spdata-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(root)

	ctx := context.Background()
	store := manifest.NewStore(spdata.ManifestPath(root, "demo"))
	coord, err := generator.New(testutil.NewFakeGenerator(), store,
		generator.WithOutputDir(filepath.Join(root, "demo")),
	)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := coord.Run(ctx, 3); err != nil {
		log.Fatal(err)
	}

	ds, err := spdata.OpenRoot(ctx, root, "demo", spdata.WithFeatureDim(8))
	if err != nil {
		log.Fatal(err)
	}

	var n int
	err = ds.Each(ctx, func(_ context.Context, b *model.Bundle) error {
		if b.M1.FeatureDim == 8 && b.M2.FeatureDim == 8 {
			n++
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("bundles:", n)
	// Output: bundles: 3
}

// ExampleBasicMetricsCollector demonstrates in-memory metrics.
func ExampleBasicMetricsCollector() {
	mc := &spdata.BasicMetricsCollector{}
	mc.RecordCache(false)
	mc.RecordBuild(0, nil)
	mc.RecordCache(true)

	stats := mc.GetStats()
	fmt.Println(stats.CacheHits, stats.CacheMisses, stats.BuildCount)
	// Output: 1 1 1
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spdata"
	"github.com/hupe1980/spdata/generator"
)

// fakeGenerator writes a 2x2 pair with a fixed product and prints its result.
const fakeGenerator = `#!/bin/sh
for arg in "$@"; do
  case "$arg" in
    --output-dir=*) out="${arg#--output-dir=}" ;;
  esac
done
ts="$(date +%s)$$"
mkdir -p "$out"
printf 'h\n2 2 1\n1 1 1.5\n' > "$out/${ts}_m1.mtx"
printf 'h\n2 2 2\n1 1 2.0\n1 2 1.0\n' > "$out/${ts}_m2.mtx"
printf 'h\n2 2 2\n1 1 3.0\n1 2 1.5\n' > "$out/${ts}_product.mtx"
printf '{"timestamp":"%s","m1_path":"%s","m2_path":"%s","product_path":"%s","m1":{"rows":2,"cols":2,"nnz":1},"m2":{"rows":2,"cols":2,"nnz":2},"product":{"rows":2,"cols":2,"nnz":2,"nnz_density":0.5}}\n' \
  "$ts" "$out/${ts}_m1.mtx" "$out/${ts}_m2.mtx" "$out/${ts}_product.mtx"
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupDataset(t *testing.T, trials string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	root := t.TempDir()
	script := filepath.Join(t.TempDir(), "gen.sh")
	require.NoError(t, os.WriteFile(script, []byte(fakeGenerator), 0o755))

	out, err := run(t, "generate",
		"--root", root,
		"--name", "cli",
		"--command", script,
		"--trials", trials,
		"--workers", "1",
		"--codec", "json",
		"--preset", "vector-products",
		"--log-level", "error",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "succeeded: "+trials)
	return root
}

func TestGenerateProcessInspect(t *testing.T) {
	root := setupDataset(t, "3")

	_, err := os.Stat(spdata.ManifestPath(root, "cli"))
	require.NoError(t, err)

	out, err := run(t, "process", "--root", root, "--name", "cli", "--log-level", "error")
	require.NoError(t, err, out)
	assert.Contains(t, out, "built: 3")

	out, err = run(t, "process", "--root", root, "--name", "cli", "--log-level", "error")
	require.NoError(t, err, out)
	assert.Contains(t, out, "cached: 3")

	out, err = run(t, "inspect", "--root", root, "--name", "cli", "--json", "--split", "0.67,0", "--log-level", "error")
	require.NoError(t, err, out)

	var s summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 0.5, s.ProductDensity.Mean)
	assert.Equal(t, 0.25, s.M1Density.Max)
	require.NotNil(t, s.Split)
	assert.Equal(t, splitSummary{Train: 2, Val: 0, Test: 1}, *s.Split)
	assert.Nil(t, s.Processed)

	out, err = run(t, "inspect", "--root", root, "--name", "cli", "--json", "--bundle", "--log-level", "error")
	require.NoError(t, err, out)

	s = summary{}
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	require.NotNil(t, s.Processed)
	assert.Equal(t, 3, *s.Processed)
}

func TestInspectEntry(t *testing.T) {
	root := setupDataset(t, "1")

	ds, err := spdata.OpenRoot(context.Background(), root, "cli")
	require.NoError(t, err)
	name := ds.Names()[0]

	out, err := run(t, "inspect", "--root", root, "--name", "cli", "--entry", name, "--bundle", "--log-level", "error")
	require.NoError(t, err, out)
	assert.Contains(t, out, "timestamp: "+name)
	assert.Contains(t, out, "m1 graph: nodes=2 edges=1 dim=16")
	assert.Contains(t, out, "label: 0.5")

	_, err = run(t, "inspect", "--root", root, "--name", "cli", "--entry", "missing", "--log-level", "error")
	assert.ErrorIs(t, err, spdata.ErrNotFound)
}

func TestProcess_ReportsFailures(t *testing.T) {
	root := setupDataset(t, "2")

	ds, err := spdata.OpenRoot(context.Background(), root, "cli")
	require.NoError(t, err)
	e, err := ds.Entry(0)
	require.NoError(t, err)
	require.NoError(t, os.Remove(e.M1Path))

	out, err := run(t, "process", "--root", root, "--name", "cli", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, out, "failed: 1")
	assert.Contains(t, out, e.Name)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("features:\n  dim: 7\n"), 0o644))

	_, err := run(t, "inspect", "--config", path)
	assert.ErrorIs(t, err, spdata.ErrConfig)

	_, err = run(t, "inspect", "--config", filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, spdata.ErrNotFound)
}

func TestFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: gcs\n"), 0o644))

	_, err := run(t, "process", "--config", path)
	assert.ErrorIs(t, err, spdata.ErrConfig)

	_, err = run(t, "process", "--config", path, "--backend", "local", "--root", dir, "--log-level", "error")
	assert.ErrorIs(t, err, spdata.ErrNotFound) // valid config, no manifest
}

func TestPrintReport_Duplicates(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, &generator.Report{Succeeded: 4, Duplicates: 1, DuplicateNames: 2})

	assert.Contains(t, out.String(), "duplicate deliveries: 1\n")
	assert.Contains(t, out.String(), "duplicate timestamps: 2\n")
}

func TestGeneratePreset(t *testing.T) {
	_, err := run(t, "generate", "--root", t.TempDir(), "--preset", "diagonal", "--trials", "1")
	assert.ErrorIs(t, err, spdata.ErrConfig)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "spdata.yaml")

	out, err := run(t, "config", "init", path, "--root", dir, "--name", "saved", "--log-level", "error")
	require.NoError(t, err, out)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: saved")

	_, err = run(t, "config", "init", path, "--log-level", "error")
	assert.True(t, errors.Is(err, os.ErrExist))

	out, err = run(t, "config", "init", path, "--force", "--config", path, "--log-format", "json")
	require.NoError(t, err, out)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: saved")
	assert.Contains(t, string(data), "format: json")

	// The written file loads back without unknown keys.
	_, err = run(t, "inspect", "--config", path)
	assert.ErrorIs(t, err, spdata.ErrNotFound)
}

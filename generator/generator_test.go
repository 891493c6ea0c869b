package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hupe1980/spdata/codec"
	"github.com/hupe1980/spdata/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Entry(t *testing.T) {
	r := &Result{
		Timestamp:   "1700000000123456789",
		M1Path:      "a_m1.mtx",
		M2Path:      "a_m2.mtx",
		ProductPath: "a_product.mtx",
		M1:          model.MatrixStats{Rows: 10, Cols: 20, NNZ: 5},
		M2:          model.MatrixStats{Rows: 20, Cols: 4, NNZ: 8},
		Product:     model.MatrixStats{Rows: 10, Cols: 4, NNZ: 3, Density: 0.075},
	}

	e := r.Entry()
	assert.Equal(t, "1700000000123456789", e.Name)
	assert.InDelta(t, 0.025, e.M1.Density, 1e-15)
	assert.InDelta(t, 0.1, e.M2.Density, 1e-15)
	assert.Equal(t, 0.075, e.Product.Density)
	assert.NoError(t, e.Validate())
}

func TestParams_Validate(t *testing.T) {
	p := Params{Rows: 2, Inner: 2, Cols: 2}
	assert.NoError(t, p.Validate())

	p.Inner = 0
	assert.ErrorIs(t, p.Validate(), model.ErrConfig)

	p.Inner = 2
	p.M2.DiagSparsity = 1.5
	var cerr *model.ConfigError
	require.ErrorAs(t, p.Validate(), &cerr)
	assert.Equal(t, "m2.diag_sparsity", cerr.Field)
}

func TestCollector_AtMostOnce(t *testing.T) {
	c := newCollector(3, discardLogger())
	ok := &Result{Timestamp: "b", M1: model.MatrixStats{Rows: 1, Cols: 1, NNZ: 1}}

	assert.True(t, c.record(outcome{index: 0, id: "x", result: ok}))
	assert.False(t, c.record(outcome{index: 0, id: "x", result: ok}))
	assert.True(t, c.record(outcome{index: 1, id: "y", err: errors.New("boom")}))
	assert.False(t, c.record(outcome{index: 1, id: "y", result: ok}))
	assert.True(t, c.record(outcome{index: 2, id: "z", result: &Result{Timestamp: "a"}}))

	r := c.report()
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 2, r.Duplicates)
	assert.Equal(t, 3, c.completed())

	entries := c.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
}

func TestFlags(t *testing.T) {
	p := Params{
		OutputDir: "out",
		Rows:      3, Inner: 4, Cols: 5,
		MaxNNZ: 100,
		Seed:   9,
		M1:     MatrixParams{NNZSparsity: 0.9999999999, Symmetric: true},
		M2:     MatrixParams{RowSparsity: 0.5},
	}
	flags := Flags(p)
	assert.Contains(t, flags, "--output-dir=out")
	assert.Contains(t, flags, "--rows=3")
	assert.Contains(t, flags, "--inner=4")
	assert.Contains(t, flags, "--cols=5")
	assert.Contains(t, flags, "--max-nnz=100")
	assert.Contains(t, flags, "--seed=9")
	assert.Contains(t, flags, "--m1-nnz-sparsity=0.9999999999")
	assert.Contains(t, flags, "--m1-symmetric=true")
	assert.Contains(t, flags, "--m2-row-sparsity=0.5")
	assert.Contains(t, flags, "--m2-symmetric=false")
	for _, f := range flags {
		assert.NotContains(t, f, "e-")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "gen.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCommand_Generate(t *testing.T) {
	script := writeScript(t, `echo '{"timestamp":"1700000000000000001","m1_path":"a_m1.mtx","m2_path":"a_m2.mtx","product_path":"a_product.mtx","m1":{"rows":2,"cols":2,"nnz":1},"m2":{"rows":2,"cols":2,"nnz":2},"product":{"rows":2,"cols":2,"nnz":1,"nnz_density":0.25}}'
`)

	for _, cd := range []codec.Codec{nil, codec.JSON{}, codec.GoJSON{}} {
		cmd := NewCommand(script)
		cmd.Codec = cd

		res, err := cmd.Generate(context.Background(), Params{Rows: 2, Inner: 2, Cols: 2})
		require.NoError(t, err)
		assert.Equal(t, "1700000000000000001", res.Timestamp)
		assert.Equal(t, uint64(2), res.M2.NNZ)
		assert.Equal(t, 0.25, res.Product.Density)
		assert.InDelta(t, 0.25, res.Entry().M1.Density, 1e-15)
	}
}

func TestCommand_Args(t *testing.T) {
	script := writeScript(t, `if [ "$1" != "--mode=square" ] || [ "$2" != "--output-dir=out" ]; then
  echo "unexpected args: $*" >&2
  exit 2
fi
echo '{"timestamp":"1"}'
`)

	res, err := NewCommand(script, "--mode=square").Generate(context.Background(), Params{OutputDir: "out"})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Timestamp)
}

func TestCommand_Failure(t *testing.T) {
	script := writeScript(t, "echo 'matrix too dense' >&2\nexit 3\n")

	_, err := NewCommand(script).Generate(context.Background(), Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix too dense")
}

func TestCommand_BadOutput(t *testing.T) {
	script := writeScript(t, "echo 'not json'\n")

	_, err := NewCommand(script).Generate(context.Background(), Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode result")
}

func TestCommand_Canceled(t *testing.T) {
	script := writeScript(t, "sleep 5\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCommand(script).Generate(ctx, Params{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTail(t *testing.T) {
	long := strings.Repeat("x", maxStderr+10) + "end"
	got := tail([]byte(long))
	assert.Len(t, got, maxStderr)
	assert.True(t, strings.HasSuffix(got, "end"))
}

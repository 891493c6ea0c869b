package generator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/hupe1980/spdata/codec"
)

const maxStderr = 512

// Command runs an external generator executable once per trial.
//
// Params are passed as flags (see Flags) after Args. The process must print exactly one
// JSON Result object on stdout and exit 0.
type Command struct {
	// Path is the executable.
	Path string
	// Args are passed before the parameter flags.
	Args []string
	// Env, if non-nil, replaces the process environment.
	Env []string
	// Codec decodes stdout. Defaults to codec.Default.
	Codec codec.Codec
}

// NewCommand returns a Command for the executable at path.
func NewCommand(path string, args ...string) *Command {
	return &Command{Path: path, Args: args}
}

// Flags returns the parameter flags for p.
func Flags(p Params) []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	args := []string{
		"--output-dir=" + p.OutputDir,
		"--rows=" + u(p.Rows),
		"--inner=" + u(p.Inner),
		"--cols=" + u(p.Cols),
		"--max-nnz=" + u(p.MaxNNZ),
		"--seed=" + u(p.Seed),
	}
	for _, m := range []struct {
		prefix string
		p      MatrixParams
	}{{"m1", p.M1}, {"m2", p.M2}} {
		args = append(args,
			"--"+m.prefix+"-nnz-sparsity="+f(m.p.NNZSparsity),
			"--"+m.prefix+"-row-sparsity="+f(m.p.RowSparsity),
			"--"+m.prefix+"-col-sparsity="+f(m.p.ColSparsity),
			"--"+m.prefix+"-diag-sparsity="+f(m.p.DiagSparsity),
			"--"+m.prefix+"-symmetric="+strconv.FormatBool(m.p.Symmetric),
		)
	}
	return args
}

// Generate runs the executable and decodes its Result.
func (c *Command) Generate(ctx context.Context, p Params) (*Result, error) {
	args := append(append([]string(nil), c.Args...), Flags(p)...)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	if c.Env != nil {
		cmd.Env = c.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %s", c.Path, err, tail(stderr.Bytes()))
	}

	cd := c.Codec
	if cd == nil {
		cd = codec.Default
	}

	var res Result
	if err := cd.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", c.Path, err)
	}
	return &res, nil
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxStderr {
		b = b[len(b)-maxStderr:]
	}
	return string(b)
}

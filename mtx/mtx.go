package mtx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/spdata/model"
)

// DefaultHeader is the banner written by the matrix generator.
const DefaultHeader = "%%MatrixMarket matrix coordinate real general"

// maxPrealloc bounds the up-front entry allocation so a hostile nnz field
// cannot force a huge allocation before any data line is read.
const maxPrealloc = 1 << 20

// Parse reads a sparse matrix from r.
func Parse(r io.Reader) (*model.SparseMatrix, error) {
	return parse(r, "")
}

// ParseBytes reads a sparse matrix from b.
func ParseBytes(b []byte) (*model.SparseMatrix, error) {
	return parse(bytes.NewReader(b), "")
}

// ReadFile reads a sparse matrix from the file at path.
//
// A missing file is reported as model.ErrNotFound.
func ReadFile(path string) (*model.SparseMatrix, error) {
	return ReadFileWith(path, nil)
}

// ReadFileWith is like ReadFile but reads through wrap(file) when wrap is
// non-nil. Errors still name path as their source.
func ReadFileWith(path string, wrap func(io.Reader) io.Reader) (*model.SparseMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: matrix file %s: %w", model.ErrNotFound, path, err)
		}
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if wrap != nil {
		r = wrap(f)
	}
	return parse(r, path)
}

func parse(r io.Reader, source string) (*model.SparseMatrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	formatErr := func(line int, reason string, cause error) error {
		return model.NewFormatError(source, line, reason, cause)
	}

	var (
		m        *model.SparseMatrix
		nnz      uint64
		lineNo   int
		blankAt  int // first blank line seen after the dimension line
		haveDims bool
	)

	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header
		}

		text := sc.Text()
		fields := strings.Fields(text)

		if !haveDims {
			if len(fields) != 3 {
				return nil, formatErr(lineNo, fmt.Sprintf("dimension line must have 3 fields, got %d", len(fields)), nil)
			}
			var dims [3]uint64
			for i, tok := range fields {
				v, err := strconv.ParseUint(tok, 10, 64)
				if err != nil {
					return nil, formatErr(lineNo, fmt.Sprintf("invalid dimension %q", tok), err)
				}
				dims[i] = v
			}
			nnz = dims[2]
			m = &model.SparseMatrix{
				Rows:    dims[0],
				Cols:    dims[1],
				Entries: make([]model.Triplet, 0, min(nnz, maxPrealloc)),
			}
			haveDims = true
			continue
		}

		if len(fields) == 0 {
			if blankAt == 0 {
				blankAt = lineNo
			}
			continue
		}
		if blankAt != 0 {
			return nil, formatErr(blankAt, "empty line inside data section", nil)
		}
		if uint64(len(m.Entries)) == nnz {
			return nil, formatErr(lineNo, fmt.Sprintf("more than %d data lines", nnz), nil)
		}

		t, err := parseTriplet(fields, m.Rows, m.Cols)
		if err != nil {
			return nil, formatErr(lineNo, "invalid data line", err)
		}
		m.Entries = append(m.Entries, t)
	}
	if err := sc.Err(); err != nil {
		return nil, formatErr(lineNo, "read failed", err)
	}

	if !haveDims {
		return nil, formatErr(0, fmt.Sprintf("need at least 2 lines, got %d", lineNo), nil)
	}
	if uint64(len(m.Entries)) != nnz {
		return nil, formatErr(0, fmt.Sprintf("declared %d entries, found %d", nnz, len(m.Entries)), nil)
	}

	return m, nil
}

func parseTriplet(fields []string, rows, cols uint64) (model.Triplet, error) {
	if len(fields) != 3 {
		return model.Triplet{}, fmt.Errorf("data line must have 3 fields, got %d", len(fields))
	}

	row, err := parseIndex(fields[0], rows, "row")
	if err != nil {
		return model.Triplet{}, err
	}
	col, err := parseIndex(fields[1], cols, "col")
	if err != nil {
		return model.Triplet{}, err
	}
	val, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return model.Triplet{}, fmt.Errorf("invalid value %q: %w", fields[2], err)
	}

	return model.Triplet{Row: row, Col: col, Value: val}, nil
}

// parseIndex converts a 1-based token to a 0-based index below limit.
func parseIndex(tok string, limit uint64, what string) (uint64, error) {
	v, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, tok, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("%s index 0 underflows 1-based indexing", what)
	}
	if v > limit {
		return 0, fmt.Errorf("%s index %d exceeds dimension %d", what, v, limit)
	}
	return v - 1, nil
}

// Write serializes m to w. An empty header is replaced by DefaultHeader.
func Write(w io.Writer, m *model.SparseMatrix, header string) error {
	if header == "" {
		header = DefaultHeader
	}
	if strings.ContainsAny(header, "\r\n") {
		return fmt.Errorf("mtx: header must be a single line")
	}

	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)

	buf = append(buf, header...)
	buf = append(buf, '\n')
	buf = strconv.AppendUint(buf, m.Rows, 10)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, m.Cols, 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(len(m.Entries)), 10)
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return err
	}

	for _, t := range m.Entries {
		buf = buf[:0]
		buf = strconv.AppendUint(buf, t.Row+1, 10)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, t.Col+1, 10)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, t.Value, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Marshal serializes m with the default header.
func Marshal(m *model.SparseMatrix) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, m, "") // bytes.Buffer writes do not fail
	return buf.Bytes()
}

// WriteFile writes m to path with the default header.
func WriteFile(path string, m *model.SparseMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, m, ""); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

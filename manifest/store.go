package manifest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/spdata/internal/fs"
	"github.com/hupe1980/spdata/model"
)

// Option configures a Store.
type Option func(*Store)

// WithFileSystem sets the file system used for reads and writes.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(s *Store) {
		s.fs = fs.OrDefault(fsys)
	}
}

// WithLogger sets the logger. Duplicate rows are reported at Warn.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store reads and writes a manifest CSV file.
type Store struct {
	path   string
	fs     fs.FileSystem
	logger *slog.Logger
}

// NewStore creates a Store for the manifest at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		fs:     fs.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the manifest path.
func (s *Store) Path() string {
	return s.path
}

// EnsureDir creates the manifest's parent directory. It is idempotent.
func (s *Store) EnsureDir() error {
	return s.fs.MkdirAll(filepath.Dir(s.path), 0o755)
}

// Write replaces the manifest with entries, in the given order.
// Readers observe either the previous file or the complete new one.
func (s *Store) Write(ctx context.Context, entries []model.DatasetEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fs.WriteAtomic(s.fs, s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", s.path, err)
	}
	return nil
}

// Read loads and de-duplicates the manifest.
func (s *Store) Read(ctx context.Context) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.OpenFile(s.path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: manifest %s: %w", model.ErrNotFound, s.path, err)
		}
		return nil, err
	}
	defer f.Close()

	entries, err := decode(f, s.path)
	if err != nil {
		return nil, err
	}

	m := &Manifest{entries: make(map[string]model.DatasetEntry, len(entries))}
	for _, e := range entries {
		if m.put(e) {
			s.logger.Warn("duplicate manifest entry, keeping last",
				"name", e.Name,
				"manifest", s.path,
			)
		}
	}
	m.seal()
	return m, nil
}

// Encode writes the header and one row per entry to w.
func Encode(w io.Writer, entries []model.DatasetEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(record(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses a manifest from r, returning rows in file order without
// de-duplication.
func Decode(r io.Reader) ([]model.DatasetEntry, error) {
	return decode(r, "")
}

func record(e model.DatasetEntry) []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		e.Name,
		u(e.M1.Rows), u(e.M1.Cols), u(e.M1.NNZ), f(e.M1.Density),
		u(e.M2.Rows), u(e.M2.Cols), u(e.M2.NNZ), f(e.M2.Density),
		u(e.Product.Rows), u(e.Product.Cols), u(e.Product.NNZ), f(e.Product.Density),
		e.M1Path, e.M2Path, e.ProductPath,
	}
}

func decode(r io.Reader, source string) ([]model.DatasetEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, model.NewFormatError(source, 1, "missing header", nil)
	}
	if err != nil {
		return nil, model.NewFormatError(source, 1, "invalid header", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	cols := make([]int, len(Columns))
	for i, name := range Columns {
		idx, ok := index[name]
		if !ok {
			return nil, model.NewFormatError(source, 1, fmt.Sprintf("missing column %q", name), nil)
		}
		cols[i] = idx
	}

	var entries []model.DatasetEntry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, model.NewFormatError(source, line, "invalid row", err)
		}
		line, _ := cr.FieldPos(0)
		e, err := parseRecord(rec, cols)
		if err != nil {
			return nil, model.NewFormatError(source, line, "invalid row", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRecord(rec []string, cols []int) (model.DatasetEntry, error) {
	var e model.DatasetEntry

	field := func(i int) (string, error) {
		if cols[i] >= len(rec) {
			return "", fmt.Errorf("missing column %q", Columns[i])
		}
		return rec[cols[i]], nil
	}

	var firstErr error
	str := func(i int) string {
		v, err := field(i)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	u := func(i int) uint64 {
		v, err := field(i)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return 0
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("column %q: %w", Columns[i], err)
		}
		return n
	}
	f := func(i int) float64 {
		v, err := field(i)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return 0
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("column %q: %w", Columns[i], err)
		}
		return x
	}

	e.Name = str(0)
	e.M1 = model.MatrixStats{Rows: u(1), Cols: u(2), NNZ: u(3), Density: f(4)}
	e.M2 = model.MatrixStats{Rows: u(5), Cols: u(6), NNZ: u(7), Density: f(8)}
	e.Product = model.MatrixStats{Rows: u(9), Cols: u(10), NNZ: u(11), Density: f(12)}
	e.M1Path = str(13)
	e.M2Path = str(14)
	e.ProductPath = str(15)

	if firstErr != nil {
		return model.DatasetEntry{}, firstErr
	}
	if e.Name == "" {
		return model.DatasetEntry{}, errors.New("empty timestamp")
	}
	return e, nil
}

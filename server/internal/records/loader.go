package records

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ctxCheckEvery is how many rows are parsed between context checks.
const ctxCheckEvery = 1024

// numericPattern is the accepted number syntax: optional sign, digits with an
// optional fraction (or a bare fraction), optional exponent. No whitespace.
var numericPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// FileSource loads a Set from a fixed path on every call.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource returns a FileSource reading path from fs.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

// Path returns the file the source reads.
func (s *FileSource) Path() string { return s.path }

// Load reads and parses the source file.
func (s *FileSource) Load(ctx context.Context) (Set, error) {
	return Load(ctx, s.fs, s.path)
}

// Load opens path on fs and parses it. Any failure to open or read the file is
// returned as a *SourceReadError.
func Load(ctx context.Context, fs afero.Fs, path string) (Set, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}
	defer f.Close()

	set, err := Parse(ctx, f)
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}
	return set, nil
}

// Parse reads CSV with a header row from r. An empty input yields an empty Set.
func Parse(ctx context.Context, r io.Reader) (Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	cells, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Set{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := append([]string(nil), cells...)
	names[0] = strings.TrimPrefix(names[0], "\uFEFF")
	h, pos := newHeader(names)

	set := Set{}
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(row) {
			continue
		}
		set = append(set, parseRow(h, pos, row))
	}
	return set, nil
}

func parseRow(h *header, pos []int, row []string) Record {
	vals := make([]Value, len(h.keys))
	for i := range vals {
		vals[i] = Text("")
	}
	for i, cell := range row {
		if i >= len(pos) {
			break
		}
		slot := pos[i]
		if h.keys[slot] == TimestampColumn {
			vals[slot] = Text(cell)
			continue
		}
		vals[slot] = coerce(cell)
	}
	return Record{h: h, vals: vals}
}

// coerce returns a Number when cell is fully numeric and finite, Text otherwise.
func coerce(cell string) Value {
	if !numericPattern.MatchString(cell) {
		return Text(cell)
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(f, 0) {
		return Text(cell)
	}
	return Number(f)
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

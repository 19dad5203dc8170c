package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrEmptyDataset is returned when a file parses to zero rows or columns.
var ErrEmptyDataset = errors.New("dataset has no rows or columns")

// Options controls how a file is read.
type Options struct {
	// Delimiter for delimited text. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// SheetName selects the worksheet of an .xlsx workbook; empty means the first.
	SheetName string
}

// Load reads a delimited text file or an .xlsx workbook into a Dataset.
func Load(path string, opts Options) (*Dataset, error) {
	name := filepath.Base(path)
	var (
		header []string
		rows   [][]string
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, rows, err = readXLSX(path, opts.SheetName)
	} else {
		header, rows, err = readDelimited(path, opts.Delimiter)
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyDataset)
	}
	return New(name, header, rows), nil
}

func readDelimited(path string, delim rune) ([]string, [][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset: %w", err)
	}
	text, err := DecodeText(raw)
	if err != nil {
		return nil, nil, err
	}
	if delim == 0 {
		delim = ','
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delim = '\t'
		}
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
		}
		return nil, nil, fmt.Errorf("parse header: %w", err)
	}
	header = normalizeHeader(header)
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse row: %w", err)
		}
		rows = append(rows, fitRow(rec, len(header)))
	}
	return header, rows, nil
}

// DecodeText detects the byte encoding of raw and returns its UTF-8 text
// with any byte order mark removed.
func DecodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return strings.TrimPrefix(string(raw), "\ufeff"), nil
	}
	enc := charmap.Windows1252.NewDecoder()
	if res, err := chardet.NewTextDetector().DetectBest(raw); err == nil {
		if e := lookupEncoding(res.Charset); e != nil {
			enc = e.NewDecoder()
		}
	}
	out, err := enc.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode dataset: %w", err)
	}
	out = bytes.TrimPrefix(out, []byte("\ufeff"))
	return string(out), nil
}

func lookupEncoding(charset string) encoding.Encoding {
	for _, name := range []string{charset, strings.ReplaceAll(charset, "-", "")} {
		if e, err := htmlindex.Get(name); err == nil {
			return e
		}
	}
	return nil
}

// normalizeHeader trims names, fills blanks and suffixes duplicates with .1, .2.
func normalizeHeader(in []string) []string {
	out := make([]string, len(in))
	seen := make(map[string]int, len(in))
	for i, h := range in {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		base := h
		for n := seen[base]; ; n++ {
			if _, dup := seen[h]; !dup {
				break
			}
			h = fmt.Sprintf("%s.%d", base, n)
		}
		seen[base]++
		if h != base {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

// fitRow pads short records with empty cells and drops surplus trailing fields.
func fitRow(rec []string, n int) []string {
	row := make([]string, n)
	copy(row, rec)
	return row
}

package grid

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// CSVOptions controls how delimited text is read.
type CSVOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Encoding names the source character set. Empty or "utf-8" reads the
	// input as-is; "windows-1252" and "latin1" are decoded to UTF-8.
	Encoding string
}

// ReadJSON reads a grid encoded as a JSON array of arrays.
func ReadJSON(r io.Reader) (Grid, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode grid json: %w", err)
	}

	rows := make([][]any, len(raw))
	for i, v := range raw {
		switch row := v.(type) {
		case nil:
			rows[i] = nil
		case []any:
			rows[i] = row
		default:
			return nil, fmt.Errorf("decode grid json: row %d is %T, want array", i, v)
		}
	}
	return FromValues(rows), nil
}

// ReadCSV reads a grid from delimited text. Rows keep their physical
// length; trailing cells dropped by the exporter are not padded back.
func ReadCSV(r io.Reader, opts CSVOptions) (Grid, error) {
	src, err := decodeCharset(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read grid csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	// csv.Reader skips blank lines. They are kept as empty rows so row
	// adjacency matches the sheet; trailing blank lines are dropped.
	var records [][]string
	next := 1 // line the next record starts on if no blank lines intervene
	var consumed int64
	newlines := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read grid csv: %w", err)
		}
		start, _ := cr.FieldPos(0)
		for ; next < start; next++ {
			records = append(records, nil)
		}
		records = append(records, record)

		offset := cr.InputOffset()
		newlines += bytes.Count(data[consumed:offset], []byte{'\n'})
		consumed = offset
		next = newlines + 1
	}
	return FromStrings(records), nil
}

func decodeCharset(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// Load reads a grid file, choosing the format from its extension.
func Load(path string, opts CSVOptions) (Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f, opts)
	case ".tsv":
		opts.Comma = '\t'
		return ReadCSV(f, opts)
	default:
		return nil, fmt.Errorf("unsupported grid file type %q", filepath.Ext(path))
	}
}

// IsGridFile reports whether path has an extension Load understands.
func IsGridFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv", ".tsv":
		return true
	}
	return false
}

// WriteCSV writes g as comma-separated text.
func WriteCSV(w io.Writer, g Grid) error {
	cw := csv.NewWriter(w)
	for _, row := range g {
		record := make([]string, len(row))
		for i, c := range row {
			record[i] = c.String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write grid csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Package extract reads tabular catalog files into header-keyed rows.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file types other than csv, tsv, and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
	// ErrEmptyCatalogFile is returned when a file has no header row or no data rows.
	ErrEmptyCatalogFile = errors.New("catalog file has no data rows")
)

// Extractor reads catalog tables from files or uploaded bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Read reads the file at path and returns its rows keyed by header.
func (e *Extractor) Read(path string) ([]map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ReadBytes(content, FormatOf(path))
}

// ReadBytes parses content according to format, which may be an extension
// with or without the leading dot (".csv", "xlsx").
func (e *Extractor) ReadBytes(content []byte, format string) ([]map[string]string, error) {
	var (
		table [][]string
		err   error
	)
	switch normalizeFormat(format) {
	case ".csv", ".txt":
		table, err = readDelimited(content, ',')
	case ".tsv":
		table, err = readDelimited(content, '\t')
	case ".xlsx", ".xlsm":
		table, err = readExcel(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return toRows(table)
}

// FormatOf returns the lower-cased extension of name, including the dot.
func FormatOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Supported reports whether format can be read.
func Supported(format string) bool {
	switch normalizeFormat(format) {
	case ".csv", ".txt", ".tsv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && !strings.HasPrefix(format, ".") {
		format = "." + format
	}
	return format
}

// toRows converts a table whose first non-blank row is the header into
// header-keyed rows. Blank rows are skipped; short rows yield empty values.
func toRows(table [][]string) ([]map[string]string, error) {
	start := 0
	for start < len(table) && blankRow(table[start]) {
		start++
	}
	if start >= len(table) {
		return nil, ErrEmptyCatalogFile
	}

	header := make([]string, len(table[start]))
	for i, h := range table[start] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(table)-start-1)
	for _, rec := range table[start+1:] {
		if blankRow(rec) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if _, dup := row[h]; dup {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCatalogFile
	}
	return rows, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

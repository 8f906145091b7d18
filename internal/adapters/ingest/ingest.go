// Package ingest reads lead files (CSV, XLSX, XLS) into a lead.RawTable.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"leadmail/internal/domain/lead"
)

// DefaultMaxFileSize is the upload ceiling used when none is configured.
const DefaultMaxFileSize int64 = 5 << 20

// Supported extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLS  = ".xls"
)

// Ingestion errors
var (
	ErrFileNotFound         = errors.New("File does not exist")
	ErrFileTooLarge         = errors.New("file size exceeds maximum limit")
	ErrUnsupportedExtension = errors.New("Unsupported file type. Please provide an Excel (.xlsx, .xls) or CSV file.")
	ErrInsufficientRows     = errors.New("File must contain headers and at least one data row")
	ErrNoSheets             = errors.New("workbook has no sheets")
)

// ValidateSize fails when path is missing or larger than max bytes.
// PRE: max > 0
// POST: Returns ErrFileNotFound or a wrapped ErrFileTooLarge; nil otherwise
func ValidateSize(path string, max int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return ErrFileNotFound
	}
	return checkSize(info.Size(), max)
}

func checkSize(size, max int64) error {
	if max > 0 && size > max {
		return fmt.Errorf("%w of %sMB", ErrFileTooLarge, formatMB(max))
	}
	return nil
}

func formatMB(n int64) string {
	mb := float64(n) / (1 << 20)
	s := fmt.Sprintf("%.2f", mb)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s
}

// Supported reports whether name has an extension an ingestor handles.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV, ExtXLSX, ExtXLS:
		return true
	}
	return false
}

// ReadFile checks the size of path and parses it with the adapter its extension selects.
// PRE: max > 0
// POST: Returns a table with a header row and at least one data row, or an ingestion error
func ReadFile(path string, max int64) (lead.RawTable, error) {
	if !Supported(path) {
		return lead.RawTable{}, ErrUnsupportedExtension
	}
	if err := ValidateSize(path, max); err != nil {
		return lead.RawTable{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return lead.RawTable{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(strings.ToLower(filepath.Ext(path)), f)
}

// ReadSource is ReadFile for an in-memory or uploaded source; name only selects the adapter.
// PRE: src is positioned at its start
// POST: same contract as ReadFile
func ReadSource(name string, src io.ReadSeeker, max int64) (lead.RawTable, error) {
	if !Supported(name) {
		return lead.RawTable{}, ErrUnsupportedExtension
	}
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return lead.RawTable{}, fmt.Errorf("measure source: %w", err)
	}
	if err := checkSize(size, max); err != nil {
		return lead.RawTable{}, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return lead.RawTable{}, fmt.Errorf("rewind source: %w", err)
	}
	return read(strings.ToLower(filepath.Ext(name)), src)
}

func read(ext string, src io.ReadSeeker) (lead.RawTable, error) {
	switch ext {
	case ExtCSV:
		return ReadCSV(src)
	case ExtXLSX:
		return ReadXLSX(src)
	case ExtXLS:
		return ReadXLS(src)
	}
	return lead.RawTable{}, ErrUnsupportedExtension
}

// split turns a grid into headers + rows, enforcing the two-row minimum.
func split(grid [][]string) (lead.RawTable, error) {
	if len(grid) < 2 {
		return lead.RawTable{}, ErrInsufficientRows
	}
	return lead.RawTable{Headers: grid[0], Rows: grid[1:]}, nil
}

// rectangular drops trailing blank rows and pads the rest to the widest row.
func rectangular(grid [][]string) [][]string {
	end := len(grid)
	for end > 0 && blank(grid[end-1]) {
		end--
	}
	grid = grid[:end]
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range grid {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			grid[i] = padded
		}
	}
	return grid
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

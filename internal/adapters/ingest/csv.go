package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"leadmail/internal/domain/lead"
)

// ReadCSV parses delimited text. A leading byte-order mark is stripped (UTF-16
// exports with a BOM are decoded too), lines that are blank after trimming are skipped and every field is trimmed.
// PRE: r yields UTF-8 or BOM-marked UTF-16 text
// POST: Returns ErrInsufficientRows when fewer than two non-empty lines exist
func ReadCSV(r io.Reader) (lead.RawTable, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var grid [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lead.RawTable{}, fmt.Errorf("parse csv: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if len(rec) == 1 && rec[0] == "" {
			// whitespace-only line
			continue
		}
		grid = append(grid, rec)
	}
	return split(grid)
}

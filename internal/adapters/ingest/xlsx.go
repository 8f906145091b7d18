package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"leadmail/internal/domain/lead"
)

// ReadXLSX reads the first sheet of an Office Open XML workbook as formatted cell text.
// PRE: r holds a complete .xlsx document
// POST: trailing blank rows are dropped and rows are padded to a rectangle
func ReadXLSX(r io.Reader) (lead.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return lead.RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return lead.RawTable{}, ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return lead.RawTable{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return split(rectangular(rows))
}

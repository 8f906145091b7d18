package ingest

import (
	"fmt"
	"io"

	"github.com/extrame/xls"

	"leadmail/internal/domain/lead"
)

// xlsCharset is the fallback charset for legacy workbooks without a code page.
const xlsCharset = "utf-8"

// ReadXLS reads the first sheet of a legacy BIFF (.xls) workbook.
// PRE: src holds a complete .xls document
// POST: same shape as ReadXLSX
func ReadXLS(src io.ReadSeeker) (lead.RawTable, error) {
	wb, err := xls.OpenReader(src, xlsCharset)
	if err != nil {
		return lead.RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return lead.RawTable{}, ErrNoSheets
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return lead.RawTable{}, ErrNoSheets
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		grid = append(grid, cells)
	}
	return split(rectangular(grid))
}

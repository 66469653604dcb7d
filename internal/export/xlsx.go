// Package export serializes result tables for download.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/korjavin/dricalc/internal/calc"
)

const (
	SheetName   = "營養結果"
	FileName    = "查詢結果.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteXLSX writes t as a single-sheet workbook: a header row, then one row
// per table row. Empty markers become empty cells.
func WriteXLSX(w io.Writer, t *calc.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(t.Nutrients)+2)
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, r := range t.Rows {
		cells := make([]any, 0, len(r.Values)+2)
		cells = append(cells, r.SampleName, r.Grams)
		for _, v := range r.Values {
			if v.Empty {
				cells = append(cells, nil)
			} else {
				cells = append(cells, v.Num)
			}
		}
		if err := setRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, cells []any) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, axis, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

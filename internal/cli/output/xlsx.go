package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX saves t as a single-sheet workbook at path. Headers become row 1.
func WriteXLSX(path, sheetName string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	row := 1
	if len(t.Headers) > 0 {
		if err := setRow(f, sheetName, row, t.Headers); err != nil {
			return err
		}
		row++
	}
	for _, cells := range t.Rows {
		if err := setRow(f, sheetName, row, cells); err != nil {
			return err
		}
		row++
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

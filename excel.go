package brandsite

import (
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// loadLayoutWorkbook reads the layout table from the first sheet of an .xlsx
// workbook. The header row uses the same column names as the CSV form.
func loadLayoutWorkbook(path string) ([]LayoutRow, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: layout %s", ErrMissingResource, path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %s: %v", ErrMalformedLayout, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrMalformedLayout, path)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", ErrMalformedLayout, sheets[0], err)
	}
	rows, err := parseLayoutRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// WriteLayoutWorkbook stores rows as an .xlsx layout table, the inverse of
// loadLayoutWorkbook. Used by project scaffolding to hand editors a workbook.
func WriteLayoutWorkbook(path string, rows []LayoutRow) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []any{"component", "order", "enabled", "max_count", "styling_default"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		enabled := "FALSE"
		switch {
		case r.Condition != "":
			enabled = r.Condition
		case r.Enabled:
			enabled = "TRUE"
		}
		var maxCount any = ""
		if r.MaxCount > 0 {
			maxCount = r.MaxCount
		}
		vals := []any{r.Component, r.Order, enabled, maxCount, r.StylingDefault}
		addr, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, addr, &vals); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

package labels

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readExcel returns the first non-empty cell of every row on every sheet.
func readExcel(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var out []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			if cell := firstCell(row); cell != "" {
				out = append(out, cell)
			}
		}
	}
	return out, nil
}

func firstCell(row []string) string {
	for _, c := range row {
		if c = Clean(c); c != "" {
			return c
		}
	}
	return ""
}

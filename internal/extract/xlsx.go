package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxExtractor extracts text from Excel workbooks: sheets in workbook
// order, one line per row, cell values joined with tabs. Rows are padded
// to the sheet's widest row so empty trailing cells keep their tab
// separators (excelize drops trailing empties from GetRows).
type xlsxExtractor struct{}

func (xlsxExtractor) capability() string { return "xuri/excelize" }
func (xlsxExtractor) available() bool    { return true }

func (xlsxExtractor) extract(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		for _, row := range rows {
			for len(row) < width {
				row = append(row, "")
			}
			lines = append(lines, strings.Join(row, "\t"))
		}
	}
	return strings.Join(lines, "\n"), nil
}

package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel writes a "[Sheet: name]" header per sheet followed by one line
// per non-empty row, cells joined with " | ".
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		lines = append(lines, "[Sheet: "+sheet+"]")
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// excelProperties maps the workbook core properties; the creator is the author.
func excelProperties(content []byte) (Properties, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Properties{}, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()
	props, err := f.GetDocProps()
	if err != nil {
		return Properties{}, fmt.Errorf("read doc props: %w", err)
	}
	return Properties{
		Title:    props.Title,
		Author:   props.Creator,
		Keywords: props.Keywords,
	}, nil
}

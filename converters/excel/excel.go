// Package excel reads spreadsheet workbooks into text tables.
package excel

import (
	"fmt"
	"io"

	"github.com/darianmavgo/mkcsv/converters/common"
	"github.com/darianmavgo/mkcsv/converters/csv"

	"github.com/xuri/excelize/v2"
)

// ReadTable reads one sheet of an .xlsx workbook. The first row is the header.
// The sheet is config.Sheet when set, otherwise the first sheet of the workbook.
func ReadTable(r io.Reader, config *common.ConversionConfig) (*csv.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, common.Wrap(common.ErrRead, "", "failed to open Excel stream", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.New(common.ErrRead, "", "no sheets found in Excel file")
	}
	sheetName := sheets[0]
	if config != nil && config.Sheet != "" {
		if idx, err := f.GetSheetIndex(config.Sheet); err != nil || idx < 0 {
			return nil, common.New(common.ErrQuery, "", fmt.Sprintf("sheet %s not found", config.Sheet))
		}
		sheetName = config.Sheet
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, common.Wrap(common.ErrRead, "", fmt.Sprintf("failed to get rows iterator for sheet %s", sheetName), err)
	}
	defer rows.Close()

	var table *csv.Table
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, common.Wrap(common.ErrRead, "", fmt.Sprintf("failed to read row for sheet %s", sheetName), err)
		}
		if table == nil {
			table = &csv.Table{Header: cols}
			continue
		}
		table.Rows = append(table.Rows, fitRow(cols, len(table.Header)))
	}
	if err := rows.Error(); err != nil {
		return nil, common.Wrap(common.ErrRead, "", fmt.Sprintf("failed to iterate sheet %s", sheetName), err)
	}
	if table == nil {
		return nil, common.New(common.ErrRead, "", fmt.Sprintf("sheet %s is empty", sheetName))
	}
	return table, nil
}

// fitRow pads or truncates cols to width. Excelize omits trailing empty cells.
func fitRow(cols []string, width int) []string {
	if len(cols) >= width {
		return cols[:width]
	}
	out := make([]string, width)
	copy(out, cols)
	return out
}

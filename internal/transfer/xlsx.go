package transfer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/models"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Customers"

// Spreadsheet serial numbers beyond 9999-12-31 are not dates.
const maxSerial = 2958465

// Columns holding calendar dates. Their raw cells may be serial numbers.
var dateColumns = map[string]bool{
	"firstContact": true,
	"lastContact":  true,
	"reminderDate": true,
}

// Column widths in characters, in Columns order.
var columnWidths = []float64{30, 22, 32, 28, 18, 16, 18, 36, 13, 13, 8, 40, 13, 9}

// ParseXLSX reads the first worksheet of a workbook. The header row is
// matched by name, ignoring case, spaces, dashes and underscores, so
// "companyName", "CompanyName" and "company_name" are equivalent. Cell
// values are read raw so that date cells arrive as serial numbers; those are
// converted to ISO dates before the row is built.
func ParseXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("transfer: open xlsx: %w: %v", apperr.ErrFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("transfer: read sheet %s: %w: %v", sheets[0], apperr.ErrFormat, err)
	}
	if len(grid) <= 1 {
		return nil, nil
	}

	positions := headerPositions(grid[0])
	rows := make([]ImportRow, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		rec := make([]string, len(Columns))
		for i, name := range Columns {
			if p, ok := positions[name]; ok && p < len(cells) {
				rec[i] = cells[p]
				if dateColumns[name] {
					rec[i] = serialDate(rec[i])
				}
			}
		}
		rows = append(rows, rowFromRecord(rec))
	}
	return rows, nil
}

// serialDate converts a spreadsheet serial number to YYYY-MM-DD. Other
// values, and serials outside the date range, are returned unchanged.
func serialDate(raw string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !(serial >= 1 && serial <= maxSerial) {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format(models.DateLayout)
}

func headerPositions(header []string) map[string]int {
	canonical := make(map[string]string, len(Columns))
	for _, name := range Columns {
		canonical[normalizeHeader(name)] = name
	}
	out := make(map[string]int, len(Columns))
	for i, h := range header {
		name, ok := canonical[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := out[name]; !seen {
			out[name] = i
		}
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(h)))
}

// WriteXLSX writes customers to a single-sheet workbook with fixed column widths.
func WriteXLSX(w io.Writer, customers []models.Customer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("transfer: name sheet: %w", err)
	}

	if err := setRow(f, 1, Columns); err != nil {
		return err
	}
	for i, c := range customers {
		if err := setRow(f, i+2, record(c)); err != nil {
			return err
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("transfer: column name: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("transfer: column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("transfer: write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("transfer: cell name: %w", err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("transfer: write row %d: %w", row, err)
	}
	return nil
}

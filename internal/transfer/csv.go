package transfer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads CSV data with a header row. Columns are taken strictly by
// position; header names are not interpreted. A header that uses semicolons
// and no commas switches the delimiter to ';'.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("transfer: read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if header, _, _ := bytes.Cut(data, []byte("\n")); bytes.Count(header, []byte(";")) > 0 && !bytes.Contains(header, []byte(",")) {
		cr.Comma = ';'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("transfer: parse csv: %w: %v", apperr.ErrFormat, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	rows := make([]ImportRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, rowFromRecord(rec))
	}
	return rows, nil
}

// WriteCSV writes customers with a header row. Fields containing a comma,
// quote or newline are quoted with doubled inner quotes.
func WriteCSV(w io.Writer, customers []models.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("transfer: write csv header: %w", err)
	}
	for _, c := range customers {
		if err := cw.Write(record(c)); err != nil {
			return fmt.Errorf("transfer: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

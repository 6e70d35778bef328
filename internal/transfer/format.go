package transfer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/models"
)

// Format identifies a file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("transfer: unknown format %q: %w", s, apperr.ErrValidation)
}

// DetectFormat guesses the format from the file name, then from content.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".xlsx", ".xls":
		return FormatXLSX
	case ".json":
		return FormatJSON
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatCSV
}

// ContentType returns the MIME type used when offering a download.
func ContentType(f Format) string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// ExportFilename returns the download name for an export made on the given day.
func ExportFilename(f Format, today time.Time) string {
	date := models.DateOf(today)
	if f == FormatJSON {
		return fmt.Sprintf("crm-backup_%s.json", date)
	}
	return fmt.Sprintf("customers_%s.%s", date, f)
}

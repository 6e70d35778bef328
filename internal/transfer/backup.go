package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/models"
)

// EncodeBackup writes the full-state backup as indented JSON.
func EncodeBackup(w io.Writer, b models.Backup) error {
	for i := range b.Customers {
		b.Customers[i].Normalize()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("transfer: encode backup: %w", err)
	}
	return nil
}

// DecodeBackup parses a backup file. Both "customers" (an array) and
// "settings" (an object) must be present.
func DecodeBackup(data []byte) (models.Backup, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Backup{}, fmt.Errorf("transfer: backup is not a JSON object: %w", apperr.ErrFormat)
	}
	customers, ok := raw["customers"]
	if !ok || !startsWith(customers, '[') {
		return models.Backup{}, fmt.Errorf("transfer: backup customers must be an array: %w", apperr.ErrFormat)
	}
	settings, ok := raw["settings"]
	if !ok || !startsWith(settings, '{') {
		return models.Backup{}, fmt.Errorf("transfer: backup settings missing: %w", apperr.ErrFormat)
	}

	var b models.Backup
	if err := json.Unmarshal(customers, &b.Customers); err != nil {
		return models.Backup{}, fmt.Errorf("transfer: decode customers: %w: %v", apperr.ErrFormat, err)
	}
	if err := json.Unmarshal(settings, &b.Settings); err != nil {
		return models.Backup{}, fmt.Errorf("transfer: decode settings: %w: %v", apperr.ErrFormat, err)
	}
	for i := range b.Customers {
		b.Customers[i].Normalize()
	}
	return b, nil
}

func startsWith(raw json.RawMessage, c byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == c
}

// Package customerservice is the application layer shared by the HTTP API,
// the MCP server and the CLI. It combines store mutations with the derived
// views and the file formats.
package customerservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/derive"
	"github.com/starford/crmdesk/internal/models"
	"github.com/starford/crmdesk/internal/store"
	"github.com/starford/crmdesk/internal/transfer"
)

// CustomerDetail is a customer together with its combined history.
type CustomerDetail struct {
	models.Customer
	History []models.Note `json:"history"`
}

// Dashboard is the start-page payload.
type Dashboard struct {
	Summary    derive.Summary    `json:"summary"`
	Next       []derive.Reminder `json:"next"`
	Sources    []string          `json:"sources"`
	Industries []string          `json:"industries"`
}

// ImportResult reports the outcome of a file import. A file that cannot be
// read yields zero imported customers and an explanatory message.
type ImportResult struct {
	Imported int    `json:"imported"`
	Message  string `json:"message"`
}

// Export is a generated download.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service coordinates the store, derivations and transfer formats.
type Service struct {
	store  *store.Store
	locale language.Tag
	logger *slog.Logger
}

// NewService creates a new customer service. locale drives name collation.
func NewService(st *store.Store, locale language.Tag, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, locale: locale, logger: logger}
}

// Store exposes the underlying store for event subscription.
func (s *Service) Store() *store.Store {
	return s.store
}

// ListCustomers returns the customers matching f. An unset locale uses the
// service locale.
func (s *Service) ListCustomers(_ context.Context, f derive.Filter) []models.Customer {
	if f.Locale == language.Und {
		f.Locale = s.locale
	}
	return derive.FilterAndSort(s.store.Customers(), f)
}

// GetCustomer returns a customer with its history.
func (s *Service) GetCustomer(_ context.Context, id string) (*CustomerDetail, error) {
	c, err := s.store.Customer(id)
	if err != nil {
		return nil, err
	}
	return &CustomerDetail{Customer: c, History: derive.CombinedHistory(c)}, nil
}

// CreateCustomer stores a new customer. A caller-supplied id must be unused.
func (s *Service) CreateCustomer(_ context.Context, c models.Customer) (models.Customer, error) {
	return s.store.Create(c)
}

// UpdateCustomer replaces the customer with the given id entirely.
func (s *Service) UpdateCustomer(_ context.Context, id string, c models.Customer) (models.Customer, error) {
	c.ID = id
	return s.store.Update(c)
}

// DeleteCustomer removes a customer. It requires confirmation; deleting an
// unknown id is not an error.
func (s *Service) DeleteCustomer(_ context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationRequired
	}
	return s.store.Delete(id)
}

// History returns the combined history of a customer, newest first.
func (s *Service) History(ctx context.Context, id string) ([]models.Note, error) {
	d, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.History, nil
}

// AddNote appends a note to a customer.
func (s *Service) AddNote(_ context.Context, id, content string) (models.Note, error) {
	return s.store.AddNote(id, content)
}

// EditNote changes a note; an empty date keeps the note's timestamp.
func (s *Service) EditNote(_ context.Context, id, noteID, content string, date models.Timestamp) (models.Note, error) {
	return s.store.EditNote(id, noteID, content, date)
}

// SetReminder opens a doing on a customer.
func (s *Service) SetReminder(_ context.Context, id, nextSteps string, date models.Date) (models.Customer, error) {
	return s.store.SetReminder(id, nextSteps, date)
}

// ClearReminder removes a customer's reminder date.
func (s *Service) ClearReminder(_ context.Context, id string) (models.Customer, error) {
	return s.store.ClearReminder(id)
}

// CompleteReminder closes a customer's open doing.
func (s *Service) CompleteReminder(_ context.Context, id string) (models.Customer, error) {
	return s.store.CompleteReminder(id)
}

// Doings returns open reminders, earliest first; limit <= 0 means all.
func (s *Service) Doings(_ context.Context, limit int) []derive.Reminder {
	return derive.NextReminders(s.store.Customers(), s.store.Now(), limit)
}

// Dashboard returns counters, the next doings and filter suggestions.
func (s *Service) Dashboard(_ context.Context) Dashboard {
	customers := s.store.Customers()
	now := s.store.Now()
	return Dashboard{
		Summary:    derive.Summarize(customers, now),
		Next:       derive.NextReminders(customers, now, derive.PreviewLimit),
		Sources:    derive.Sources(customers, s.store.Settings()),
		Industries: derive.Industries(customers),
	}
}

// Import reads a CSV or spreadsheet file and appends its customers.
// JSON backups are rejected; they go through Restore.
func (s *Service) Import(_ context.Context, name string, data []byte) (ImportResult, error) {
	var (
		rows []transfer.ImportRow
		err  error
	)
	switch transfer.DetectFormat(name, data) {
	case transfer.FormatJSON:
		return ImportResult{Message: "JSON backups cannot be imported; use restore instead."}, nil
	case transfer.FormatXLSX:
		rows, err = transfer.ParseXLSX(bytes.NewReader(data))
	default:
		rows, err = transfer.ParseCSV(bytes.NewReader(data))
	}
	if err != nil {
		if errors.Is(err, apperr.ErrFormat) {
			s.logger.Warn("import: unreadable file", slog.String("name", name), slog.String("error", err.Error()))
			return ImportResult{Message: fmt.Sprintf("The file could not be read: %v", err)}, nil
		}
		return ImportResult{}, err
	}

	n, err := s.store.ImportBatch(rows)
	if err != nil {
		return ImportResult{}, err
	}
	if n == 0 {
		return ImportResult{Message: "No customers imported. Every row needs a company name."}, nil
	}
	return ImportResult{Imported: n, Message: fmt.Sprintf("%d customers imported.", n)}, nil
}

// Export renders all customers (or, for FormatJSON, the full backup).
func (s *Service) Export(_ context.Context, f transfer.Format) (*Export, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case transfer.FormatJSON:
		err = transfer.EncodeBackup(&buf, s.store.Backup())
	case transfer.FormatXLSX:
		err = transfer.WriteXLSX(&buf, s.store.Customers())
	case transfer.FormatCSV:
		err = transfer.WriteCSV(&buf, s.store.Customers())
	default:
		return nil, fmt.Errorf("export format %q: %w", f, apperr.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    transfer.ExportFilename(f, s.store.Now()),
		ContentType: transfer.ContentType(f),
		Data:        buf.Bytes(),
	}, nil
}

// Restore replaces all customers and settings with a JSON backup. A
// malformed backup is rejected before confirmation is checked; nothing
// changes without confirmation.
func (s *Service) Restore(_ context.Context, data []byte, confirmed bool) (int, error) {
	b, err := transfer.DecodeBackup(data)
	if err != nil {
		return 0, err
	}
	if !confirmed {
		return 0, apperr.ErrConfirmationRequired
	}
	if err := s.store.ReplaceAll(b); err != nil {
		return 0, err
	}
	return len(b.Customers), nil
}

// Settings returns the company settings.
func (s *Service) Settings(_ context.Context) models.CompanySettings {
	return s.store.Settings()
}

// SetCompanyName renames the own company.
func (s *Service) SetCompanyName(_ context.Context, name string) (models.CompanySettings, error) {
	return s.store.SetCompanyName(name)
}

// SetLogo stores a logo data URI; empty removes the logo.
func (s *Service) SetLogo(_ context.Context, dataURI string) (models.CompanySettings, error) {
	return s.store.SetLogo(dataURI)
}

// AddSource adds a source label.
func (s *Service) AddSource(_ context.Context, label string) (models.CompanySettings, error) {
	return s.store.AddSource(label)
}

// DeleteSource removes a source label after confirmation.
func (s *Service) DeleteSource(_ context.Context, label string, confirmed bool) (models.CompanySettings, error) {
	if !confirmed {
		return models.CompanySettings{}, apperr.ErrConfirmationRequired
	}
	return s.store.DeleteSource(label)
}

// Preferences returns the UI preferences.
func (s *Service) Preferences(_ context.Context) models.Preferences {
	return s.store.Preferences()
}

// PreferencesUpdate lists the preferences to change.
type PreferencesUpdate struct {
	DarkMode *bool
	// SetUser applies CurrentUser; a nil or blank CurrentUser clears it.
	SetUser     bool
	CurrentUser *string
}

// UpdatePreferences applies u and returns the resulting preferences.
func (s *Service) UpdatePreferences(_ context.Context, u PreferencesUpdate) (models.Preferences, error) {
	if u.DarkMode != nil {
		if err := s.store.SetDarkMode(*u.DarkMode); err != nil {
			return models.Preferences{}, err
		}
	}
	if u.SetUser {
		if err := s.store.SetCurrentUser(u.CurrentUser); err != nil {
			return models.Preferences{}, err
		}
	}
	return s.store.Preferences(), nil
}

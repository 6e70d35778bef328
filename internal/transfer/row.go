// Package transfer reads and writes the import, export and backup file formats.
package transfer

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/crmdesk/internal/models"
)

// Columns is the canonical column order of CSV and spreadsheet files.
// The last two columns are optional on import.
var Columns = []string{
	"companyName",
	"contactPerson",
	"address",
	"email",
	"phone",
	"source",
	"industry",
	"nextSteps",
	"firstContact",
	"lastContact",
	"sjSeen",
	"info",
	"reminderDate",
	"inactive",
}

// Accepted text layouts, tried in order before the cast fallback.
// "2.1.2006" and "1/2/2006" also accept zero-padded days and months.
var dateLayouts = []string{
	models.DateLayout,
	"2.1.2006",
	"1/2/2006",
	"2006/1/2",
	time.RFC3339,
}

// ImportRow is one raw record from an import file, in column order.
type ImportRow struct {
	CompanyName   string
	ContactPerson string
	Address       string
	Email         string
	Phone         string
	Source        string
	Industry      string
	NextSteps     string
	FirstContact  string
	LastContact   string
	SJSeen        string
	Info          string
	ReminderDate  string
	Inactive      string
}

func rowFromRecord(rec []string) ImportRow {
	get := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	return ImportRow{
		CompanyName:   get(0),
		ContactPerson: get(1),
		Address:       get(2),
		Email:         get(3),
		Phone:         get(4),
		Source:        get(5),
		Industry:      get(6),
		NextSteps:     get(7),
		FirstContact:  get(8),
		LastContact:   get(9),
		SJSeen:        get(10),
		Info:          get(11),
		ReminderDate:  get(12),
		Inactive:      get(13),
	}
}

// Customer builds a new customer from the row. It reports false when the row
// has no company name. Unparseable first/last contact dates fall back to
// today; an unparseable reminder date leaves the reminder unset.
func (r ImportRow) Customer(id string, today time.Time) (models.Customer, bool) {
	name := strings.TrimSpace(r.CompanyName)
	if name == "" {
		return models.Customer{}, false
	}
	c := models.Customer{
		ID:                 id,
		CompanyName:        name,
		ContactPerson:      strings.TrimSpace(r.ContactPerson),
		Address:            strings.TrimSpace(r.Address),
		Email:              strings.TrimSpace(r.Email),
		Phone:              strings.TrimSpace(r.Phone),
		Source:             strings.TrimSpace(r.Source),
		Industry:           strings.TrimSpace(r.Industry),
		NextSteps:          strings.TrimSpace(r.NextSteps),
		Info:               strings.TrimSpace(r.Info),
		FirstContact:       requiredDate(r.FirstContact, today),
		LastContact:        requiredDate(r.LastContact, today),
		SJSeen:             models.ParseYesNo(r.SJSeen),
		Inactive:           models.ParseYesNo(r.Inactive),
		Notes:              []models.Note{},
		AdditionalContacts: []models.AdditionalContact{},
	}
	if d, ok := ParseDate(r.ReminderDate); ok {
		c.ReminderDate = &d
	}
	return c, true
}

func requiredDate(raw string, today time.Time) models.Date {
	if d, ok := ParseDate(raw); ok {
		return d
	}
	return models.DateOf(today)
}

// ParseDate interprets date-like text: ISO dates, German and US numeric
// dates, RFC 3339 timestamps and the formats understood by cast. Bare
// numbers are not dates here; spreadsheet serials are converted by
// ParseXLSX before rows reach this point.
func ParseDate(raw string) (models.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	if t, err := cast.ToTimeE(s); err == nil {
		return models.DateOf(t), true
	}
	return "", false
}

func record(c models.Customer) []string {
	reminder := ""
	if c.ReminderDate != nil {
		reminder = string(*c.ReminderDate)
	}
	return []string{
		c.CompanyName,
		c.ContactPerson,
		c.Address,
		c.Email,
		c.Phone,
		c.Source,
		c.Industry,
		c.NextSteps,
		string(c.FirstContact),
		string(c.LastContact),
		models.FormatYesNo(c.SJSeen),
		c.Info,
		reminder,
		models.FormatYesNo(c.Inactive),
	}
}

// Package models defines the domain types for crmdesk.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PendingNoteID marks the synthetic history entry built from a customer's
// next step and reminder date. It is never persisted as a real note.
const PendingNoteID = "pending-next-step"

var notBlank = regexp.MustCompile(`\S`)

// Customer is one CRM record.
type Customer struct {
	ID                 string              `json:"id"`
	CompanyName        string              `json:"companyName"`
	ContactPerson      string              `json:"contactPerson"`
	Address            string              `json:"address"`
	Email              string              `json:"email"`
	Phone              string              `json:"phone"`
	Source             string              `json:"source"`
	Industry           string              `json:"industry"`
	Info               string              `json:"info"`
	NextSteps          string              `json:"nextSteps"`
	FirstContact       Date                `json:"firstContact"`
	LastContact        Date                `json:"lastContact"`
	ReminderDate       *Date               `json:"reminderDate"`
	Inactive           bool                `json:"inactive"`
	SJSeen             bool                `json:"sjSeen"`
	Notes              []Note              `json:"notes"`
	AdditionalContacts []AdditionalContact `json:"additionalContacts"`
}

// Note is one journal entry on a customer.
type Note struct {
	ID       string    `json:"id"`
	Date     Timestamp `json:"date"`
	Content  string    `json:"content"`
	IsFuture bool      `json:"isFuture,omitempty"`
}

// AdditionalContact is a secondary contact person owned by one customer.
type AdditionalContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HasReminder reports whether the customer has an open doing.
func (c *Customer) HasReminder() bool {
	return c.ReminderDate != nil
}

// Normalize replaces nil collections with empty ones so that the JSON form is
// stable. An empty reminder date means no open doing and becomes nil.
func (c *Customer) Normalize() {
	if c.ReminderDate != nil && *c.ReminderDate == "" {
		c.ReminderDate = nil
	}
	if c.Notes == nil {
		c.Notes = []Note{}
	}
	if c.AdditionalContacts == nil {
		c.AdditionalContacts = []AdditionalContact{}
	}
}

// NoteIndex returns the position of the note with the given id, or -1.
func (c *Customer) NoteIndex(id string) int {
	for i := range c.Notes {
		if c.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the record invariants: a non-blank company name,
// well-formed dates and unique note and contact ids. Contact dates may be
// empty; a reminder date, when present, may not.
func (c *Customer) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.CompanyName, validation.Required, validation.Match(notBlank).Error("must not be blank")),
		validation.Field(&c.FirstContact, validation.By(optionalDate)),
		validation.Field(&c.LastContact, validation.By(optionalDate)),
		validation.Field(&c.ReminderDate, validation.By(reminderDate)),
		validation.Field(&c.Notes, validation.By(uniqueNoteIDs)),
		validation.Field(&c.AdditionalContacts, validation.By(uniqueContactIDs)),
	)
}

var errDateFormat = errors.New("must be a date in YYYY-MM-DD format")

func optionalDate(value any) error {
	d, _ := value.(Date)
	if d == "" || d.Valid() {
		return nil
	}
	return errDateFormat
}

func reminderDate(value any) error {
	d, _ := value.(*Date)
	if d == nil || d.Valid() {
		return nil
	}
	return errDateFormat
}

func uniqueNoteIDs(value any) error {
	notes, _ := value.([]Note)
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if n.ID == PendingNoteID {
			return errors.New("reserved note id")
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate note id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

func uniqueContactIDs(value any) error {
	contacts, _ := value.([]AdditionalContact)
	seen := make(map[string]struct{}, len(contacts))
	for _, ac := range contacts {
		if _, dup := seen[ac.ID]; dup {
			return fmt.Errorf("duplicate contact id %q", ac.ID)
		}
		seen[ac.ID] = struct{}{}
	}
	return nil
}

// ParseYesNo interprets spreadsheet booleans: "ja" and "yes" (any case) are true.
func ParseYesNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ja", "yes":
		return true
	}
	return false
}

// FormatYesNo is the export counterpart of ParseYesNo.
func FormatYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

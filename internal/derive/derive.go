// Package derive computes read-only views over a snapshot of customers.
// Nothing here mutates its input.
package derive

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/starford/crmdesk/internal/models"
)

// PreviewLimit is the number of doings shown in the dashboard preview.
const PreviewLimit = 5

// Reminder is an open doing with its overdue state at evaluation time.
type Reminder struct {
	Customer models.Customer `json:"customer"`
	Overdue  bool            `json:"overdue"`
}

// OpenReminders returns active customers with a reminder date, earliest first.
// A reminder is overdue once its date has begun, i.e. the start of the
// reminder day lies before now.
func OpenReminders(customers []models.Customer, now time.Time) []Reminder {
	out := make([]Reminder, 0)
	for _, c := range customers {
		if c.ReminderDate == nil || c.Inactive {
			continue
		}
		out = append(out, Reminder{Customer: c, Overdue: overdue(*c.ReminderDate, now)})
	}
	slices.SortStableFunc(out, func(a, b Reminder) int {
		return compareDates(*a.Customer.ReminderDate, *b.Customer.ReminderDate)
	})
	return out
}

// NextReminders returns at most limit open reminders; limit <= 0 means all.
func NextReminders(customers []models.Customer, now time.Time, limit int) []Reminder {
	all := OpenReminders(customers, now)
	if limit > 0 && len(all) > limit {
		return all[:limit]
	}
	return all
}

func overdue(d models.Date, now time.Time) bool {
	t, ok := d.Time()
	if !ok {
		return false
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	return start.Before(now)
}

// PendingLabel is the history text of a customer's open next step.
func PendingLabel(nextSteps string) string {
	return fmt.Sprintf("Next step: %s", nextSteps)
}

// CombinedHistory merges the customer's notes with a synthetic future entry
// for the open next step (when both next steps and a reminder date are set),
// newest first.
func CombinedHistory(c models.Customer) []models.Note {
	out := make([]models.Note, 0, len(c.Notes)+1)
	out = append(out, c.Notes...)
	if c.NextSteps != "" && c.ReminderDate != nil {
		out = append(out, models.Note{
			ID:       models.PendingNoteID,
			Date:     c.ReminderDate.Timestamp(),
			Content:  PendingLabel(c.NextSteps),
			IsFuture: true,
		})
	}
	slices.SortStableFunc(out, func(a, b models.Note) int {
		return compareTimestamps(b.Date, a.Date)
	})
	return out
}

// RecomputeLastContact sets LastContact to the date of the latest real note.
// Future entries and unparseable timestamps are ignored; with no usable
// notes LastContact is left unchanged.
func RecomputeLastContact(c models.Customer) models.Customer {
	var latest time.Time
	found := false
	for _, n := range c.Notes {
		if n.IsFuture || n.ID == models.PendingNoteID {
			continue
		}
		t, ok := n.Date.Time()
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest, found = t, true
		}
	}
	if found {
		c.LastContact = models.DateOf(latest)
	}
	return c
}

// compareDates orders valid dates chronologically before invalid ones.
func compareDates(a, b models.Date) int {
	ta, okA := a.Time()
	tb, okB := b.Time()
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// compareTimestamps orders valid timestamps chronologically; invalid ones
// compare as the zero time.
func compareTimestamps(a, b models.Timestamp) int {
	ta, _ := a.Time()
	tb, _ := b.Time()
	return ta.Compare(tb)
}

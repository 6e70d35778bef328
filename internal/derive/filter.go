package derive

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/crmdesk/internal/models"
)

// SortKey selects the customer list order.
type SortKey string

const (
	SortLastContact  SortKey = "lastContact"
	SortName         SortKey = "name"
	SortFirstContact SortKey = "firstContact"
)

// ParseSortKey maps a query value to a SortKey, defaulting to SortLastContact.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortName, SortFirstContact:
		return k
	}
	return SortLastContact
}

// Filter describes a customer list view.
type Filter struct {
	// Inactive selects the inactive partition; the two partitions are never shown together.
	Inactive bool
	// Search matches company, contact person, email, industry and additional contacts.
	Search string
	// Source must match exactly when set.
	Source string
	// Industry must be contained in the customer's industry when set.
	Industry        string
	RequireReminder bool
	Sort            SortKey
	// Locale drives name collation. The zero value uses the root collation.
	Locale language.Tag
}

// FilterAndSort applies f to customers and returns the matching records in order.
func FilterAndSort(customers []models.Customer, f Filter) []models.Customer {
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(f.Search))
	industry := fold.String(strings.TrimSpace(f.Industry))

	out := make([]models.Customer, 0, len(customers))
	for _, c := range customers {
		if c.Inactive != f.Inactive {
			continue
		}
		if f.Source != "" && c.Source != f.Source {
			continue
		}
		if industry != "" && !strings.Contains(fold.String(c.Industry), industry) {
			continue
		}
		if f.RequireReminder && c.ReminderDate == nil {
			continue
		}
		if term != "" && !matches(c, term, fold) {
			continue
		}
		out = append(out, c)
	}
	sortCustomers(out, f.Sort, f.Locale)
	return out
}

func matches(c models.Customer, term string, fold cases.Caser) bool {
	fields := []string{c.CompanyName, c.ContactPerson, c.Email, c.Industry}
	for _, ac := range c.AdditionalContacts {
		fields = append(fields, ac.Name, ac.Email)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(fold.String(f), term) {
			return true
		}
	}
	return false
}

func sortCustomers(cs []models.Customer, key SortKey, locale language.Tag) {
	switch ParseSortKey(string(key)) {
	case SortName:
		col := collate.New(locale)
		slices.SortStableFunc(cs, func(a, b models.Customer) int {
			return col.CompareString(a.CompanyName, b.CompanyName)
		})
	case SortFirstContact:
		slices.SortStableFunc(cs, func(a, b models.Customer) int {
			return compareDates(b.FirstContact, a.FirstContact)
		})
	default:
		slices.SortStableFunc(cs, func(a, b models.Customer) int {
			return compareDates(b.LastContact, a.LastContact)
		})
	}
}

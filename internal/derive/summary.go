package derive

import (
	"slices"
	"strings"
	"time"

	"github.com/starford/crmdesk/internal/models"
)

// Summary holds the dashboard counters.
type Summary struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	Inactive      int            `json:"inactive"`
	OpenDoings    int            `json:"openDoings"`
	OverdueDoings int            `json:"overdueDoings"`
	BySource      map[string]int `json:"bySource"`
}

// Summarize counts customers and doings. BySource covers active customers;
// customers without a source are counted under "".
func Summarize(customers []models.Customer, now time.Time) Summary {
	s := Summary{Total: len(customers), BySource: make(map[string]int)}
	for _, c := range customers {
		if c.Inactive {
			s.Inactive++
			continue
		}
		s.Active++
		s.BySource[c.Source]++
	}
	for _, r := range OpenReminders(customers, now) {
		s.OpenDoings++
		if r.Overdue {
			s.OverdueDoings++
		}
	}
	return s
}

// Sources lists the configured source labels followed by any other labels
// found on customers, the latter sorted.
func Sources(customers []models.Customer, settings models.CompanySettings) []string {
	out := slices.Clone(settings.Sources)
	var extra []string
	for _, c := range customers {
		if c.Source == "" || slices.Contains(out, c.Source) || slices.Contains(extra, c.Source) {
			continue
		}
		extra = append(extra, c.Source)
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Industries returns the distinct non-empty industries, sorted.
func Industries(customers []models.Customer) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range customers {
		ind := strings.TrimSpace(c.Industry)
		if ind == "" {
			continue
		}
		if _, ok := seen[ind]; ok {
			continue
		}
		seen[ind] = struct{}{}
		out = append(out, ind)
	}
	slices.Sort(out)
	return out
}

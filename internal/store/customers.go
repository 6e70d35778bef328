package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/derive"
	"github.com/starford/crmdesk/internal/kv"
	"github.com/starford/crmdesk/internal/models"
	"github.com/starford/crmdesk/internal/transfer"
)

// Customers returns a copy of all customers in insertion order.
func (s *Store) Customers() []models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Customer, len(s.customers))
	for i, c := range s.customers {
		out[i] = snapshot(c)
	}
	return out
}

// Customer returns a copy of the customer with the given id.
func (s *Store) Customer(id string) (models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Customer{}, fmt.Errorf("customer %s: %w", id, apperr.ErrNotFound)
	}
	return snapshot(s.customers[i]), nil
}

// Backup returns the customers and settings as one artifact.
func (s *Store) Backup() models.Backup {
	customers := s.Customers()
	return models.Backup{Customers: customers, Settings: s.Settings()}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.customers, func(c models.Customer) bool { return c.ID == id })
}

// Save creates c, or replaces the stored record with the same id entirely.
// An empty id is replaced by a fresh one, as are empty note and contact ids.
// A blank company name or a malformed date is rejected with
// apperr.ErrValidation.
func (s *Store) Save(c models.Customer) (models.Customer, error) {
	return s.save(c, saveUpsert)
}

// Create stores c as a new customer. An id that is already taken is
// rejected with apperr.ErrAlreadyExists.
func (s *Store) Create(c models.Customer) (models.Customer, error) {
	return s.save(c, saveCreate)
}

// Update replaces the existing customer with c's id entirely. An unknown id
// is rejected with apperr.ErrNotFound.
func (s *Store) Update(c models.Customer) (models.Customer, error) {
	if c.ID == "" {
		return models.Customer{}, validationError(fmt.Errorf("customer id is required"))
	}
	return s.save(c, saveUpdate)
}

type saveMode int

const (
	saveUpsert saveMode = iota
	saveCreate
	saveUpdate
)

func (s *Store) save(c models.Customer, mode saveMode) (models.Customer, error) {
	c = snapshot(c)
	s.assignIDs(&c)
	if err := c.Validate(); err != nil {
		return models.Customer{}, validationError(err)
	}

	err := s.update(func() ([]Event, error) {
		next := slices.Clone(s.customers)
		op := OpUpdated
		i := s.indexOf(c.ID)
		switch {
		case i >= 0 && mode == saveCreate:
			return nil, fmt.Errorf("customer %s: %w", c.ID, apperr.ErrAlreadyExists)
		case i < 0 && mode == saveUpdate:
			return nil, fmt.Errorf("customer %s: %w", c.ID, apperr.ErrNotFound)
		case i >= 0:
			next[i] = c
		default:
			next = append(next, c)
			op = OpCreated
		}
		if err := s.put(kv.KeyCustomers, next); err != nil {
			return nil, err
		}
		s.customers = next
		return []Event{{Kind: KindCustomer, Op: op, ID: c.ID}}, nil
	})
	if err != nil {
		return models.Customer{}, err
	}
	return snapshot(c), nil
}

// assignIDs fills in empty customer, note and contact ids.
func (s *Store) assignIDs(c *models.Customer) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	for i := range c.Notes {
		if c.Notes[i].ID == "" {
			c.Notes[i].ID = s.newID()
		}
	}
	for i := range c.AdditionalContacts {
		if c.AdditionalContacts[i].ID == "" {
			c.AdditionalContacts[i].ID = s.newID()
		}
	}
}

// Delete removes the customer with the given id. Deleting an unknown id is
// a no-op.
func (s *Store) Delete(id string) error {
	return s.update(func() ([]Event, error) {
		i := s.indexOf(id)
		if i < 0 {
			return nil, nil
		}
		next := slices.Delete(slices.Clone(s.customers), i, i+1)
		if err := s.put(kv.KeyCustomers, next); err != nil {
			return nil, err
		}
		s.customers = next
		return []Event{{Kind: KindCustomer, Op: OpDeleted, ID: id}}, nil
	})
}

// ImportBatch appends one new customer per row with a company name and
// returns how many were added. Rows without a company name are skipped.
// Existing customers are never matched or replaced.
func (s *Store) ImportBatch(rows []transfer.ImportRow) (int, error) {
	today := s.now()
	var added []models.Customer
	for _, r := range rows {
		c, ok := r.Customer(s.newID(), today)
		if !ok {
			continue
		}
		added = append(added, c)
	}
	if len(added) == 0 {
		return 0, nil
	}

	err := s.update(func() ([]Event, error) {
		next := append(slices.Clone(s.customers), added...)
		if err := s.put(kv.KeyCustomers, next); err != nil {
			return nil, err
		}
		s.customers = next
		return []Event{{Kind: KindCustomers, Op: OpImported}}, nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("store: imported customers", "count", len(added), "skipped", len(rows)-len(added))
	return len(added), nil
}

// ReplaceAll overwrites customers and settings together. Nothing changes
// unless both are valid and both are persisted. Missing ids are assigned as
// in Save; duplicate customer ids are rejected.
func (s *Store) ReplaceAll(b models.Backup) error {
	customers := make([]models.Customer, len(b.Customers))
	seen := make(map[string]int, len(b.Customers))
	for i, c := range b.Customers {
		c = snapshot(c)
		s.assignIDs(&c)
		if err := c.Validate(); err != nil {
			return validationError(fmt.Errorf("customer %d: %w", i, err))
		}
		if j, dup := seen[c.ID]; dup {
			return validationError(fmt.Errorf("customer %d: duplicate id %q (first used by customer %d)", i, c.ID, j))
		}
		seen[c.ID] = i
		customers[i] = c
	}
	settings := b.Settings
	settings.Sources = slices.Clone(settings.Sources)
	if err := settings.Validate(); err != nil {
		return validationError(fmt.Errorf("settings: %w", err))
	}

	err := s.update(func() ([]Event, error) {
		if err := s.putMany(map[string]any{
			kv.KeyCustomers: customers,
			kv.KeySettings:  settings,
		}); err != nil {
			return nil, err
		}
		s.customers = customers
		s.settings = settings
		return []Event{
			{Kind: KindCustomers, Op: OpReplaced},
			{Kind: KindSettings, Op: OpUpdated},
		}, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("store: replaced all customers", "count", len(customers))
	return nil
}

// modify applies fn to a copy of the customer with the given id and
// persists the result.
func (s *Store) modify(id string, fn func(c *models.Customer) error) (models.Customer, error) {
	var out models.Customer
	err := s.update(func() ([]Event, error) {
		i := s.indexOf(id)
		if i < 0 {
			return nil, fmt.Errorf("customer %s: %w", id, apperr.ErrNotFound)
		}
		c := snapshot(s.customers[i])
		if err := fn(&c); err != nil {
			return nil, err
		}
		next := slices.Clone(s.customers)
		next[i] = c
		if err := s.put(kv.KeyCustomers, next); err != nil {
			return nil, err
		}
		s.customers = next
		out = snapshot(c)
		return []Event{{Kind: KindCustomer, Op: OpUpdated, ID: id}}, nil
	})
	return out, err
}

// AddNote appends a note stamped with the current time and sets the
// customer's last contact to the note's UTC date.
func (s *Store) AddNote(id, content string) (models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Note{}, validationError(fmt.Errorf("note content is required"))
	}
	now := s.now()
	note := models.Note{ID: s.newID(), Date: models.TimestampOf(now), Content: content}
	_, err := s.modify(id, func(c *models.Customer) error {
		c.Notes = append(c.Notes, note)
		c.LastContact = note.Date.Date()
		return nil
	})
	if err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// EditNote changes a note's content and, when date is not empty, its
// timestamp. The customer's last contact is then recomputed from the notes.
func (s *Store) EditNote(id, noteID, content string, date models.Timestamp) (models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Note{}, validationError(fmt.Errorf("note content is required"))
	}
	if date != "" {
		t, ok := date.Time()
		if !ok {
			return models.Note{}, validationError(fmt.Errorf("invalid note date %q", date))
		}
		date = models.TimestampOf(t)
	}
	var note models.Note
	_, err := s.modify(id, func(c *models.Customer) error {
		i := c.NoteIndex(noteID)
		if i < 0 {
			return fmt.Errorf("note %s: %w", noteID, apperr.ErrNotFound)
		}
		c.Notes[i].Content = content
		if date != "" {
			c.Notes[i].Date = date
		}
		note = c.Notes[i]
		*c = derive.RecomputeLastContact(*c)
		return nil
	})
	if err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// SetReminder opens a doing: next steps due on date.
func (s *Store) SetReminder(id, nextSteps string, date models.Date) (models.Customer, error) {
	if !date.Valid() {
		return models.Customer{}, validationError(fmt.Errorf("invalid reminder date %q", date))
	}
	return s.modify(id, func(c *models.Customer) error {
		c.NextSteps = strings.TrimSpace(nextSteps)
		d := date
		c.ReminderDate = &d
		return nil
	})
}

// ClearReminder removes the reminder date and keeps the next steps text.
func (s *Store) ClearReminder(id string) (models.Customer, error) {
	return s.modify(id, func(c *models.Customer) error {
		c.ReminderDate = nil
		return nil
	})
}

// CompleteReminder records the open doing as a note ("Done: <next steps>")
// and clears next steps and reminder date.
func (s *Store) CompleteReminder(id string) (models.Customer, error) {
	now := s.now()
	return s.modify(id, func(c *models.Customer) error {
		if c.ReminderDate == nil && c.NextSteps == "" {
			return validationError(fmt.Errorf("customer %s has no open doing", id))
		}
		content := "Done"
		if c.NextSteps != "" {
			content = "Done: " + c.NextSteps
		}
		note := models.Note{ID: s.newID(), Date: models.TimestampOf(now), Content: content}
		c.Notes = append(c.Notes, note)
		c.LastContact = note.Date.Date()
		c.NextSteps = ""
		c.ReminderDate = nil
		return nil
	})
}

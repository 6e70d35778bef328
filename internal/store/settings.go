package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/kv"
	"github.com/starford/crmdesk/internal/models"
)

// Settings returns a copy of the company settings.
func (s *Store) Settings() models.CompanySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	out.Sources = slices.Clone(s.settings.Sources)
	return out
}

// modifySettings applies fn to a copy of the settings, validates and persists it.
func (s *Store) modifySettings(fn func(cs *models.CompanySettings) error) (models.CompanySettings, error) {
	var out models.CompanySettings
	err := s.update(func() ([]Event, error) {
		next := s.settings
		next.Sources = slices.Clone(s.settings.Sources)
		if err := fn(&next); err != nil {
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, validationError(err)
		}
		if err := s.put(kv.KeySettings, next); err != nil {
			return nil, err
		}
		s.settings = next
		out = next
		out.Sources = slices.Clone(next.Sources)
		return []Event{{Kind: KindSettings, Op: OpUpdated}}, nil
	})
	return out, err
}

// SetCompanyName renames the own company.
func (s *Store) SetCompanyName(name string) (models.CompanySettings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.CompanySettings{}, validationError(fmt.Errorf("company name is required"))
	}
	return s.modifySettings(func(cs *models.CompanySettings) error {
		cs.CompanyName = name
		return nil
	})
}

// SetLogo stores the logo as a base64 image data URI. An empty value removes it.
func (s *Store) SetLogo(dataURI string) (models.CompanySettings, error) {
	return s.modifySettings(func(cs *models.CompanySettings) error {
		cs.Logo = dataURI
		return nil
	})
}

// AddSource appends a new source label.
func (s *Store) AddSource(label string) (models.CompanySettings, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.CompanySettings{}, validationError(fmt.Errorf("source label is required"))
	}
	return s.modifySettings(func(cs *models.CompanySettings) error {
		if cs.HasSource(label) {
			return fmt.Errorf("source %q: %w", label, apperr.ErrAlreadyExists)
		}
		cs.Sources = append(cs.Sources, label)
		return nil
	})
}

// DeleteSource removes a source label. The last remaining label cannot be
// removed. Customers keep their source text.
func (s *Store) DeleteSource(label string) (models.CompanySettings, error) {
	return s.modifySettings(func(cs *models.CompanySettings) error {
		i := slices.Index(cs.Sources, label)
		if i < 0 {
			return fmt.Errorf("source %q: %w", label, apperr.ErrNotFound)
		}
		if len(cs.Sources) <= 1 {
			return apperr.ErrLastSource
		}
		cs.Sources = slices.Delete(cs.Sources, i, i+1)
		return nil
	})
}

// Preferences returns a copy of the UI preferences.
func (s *Store) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.prefs
	if s.prefs.CurrentUser != nil {
		u := *s.prefs.CurrentUser
		out.CurrentUser = &u
	}
	return out
}

// SetDarkMode persists the dark-mode flag.
func (s *Store) SetDarkMode(on bool) error {
	return s.update(func() ([]Event, error) {
		if err := s.put(kv.KeyDarkMode, on); err != nil {
			return nil, err
		}
		s.prefs.DarkMode = on
		return []Event{{Kind: KindPreferences, Op: OpUpdated}}, nil
	})
}

// SetCurrentUser sets the free-text user identifier. Nil or blank clears it.
func (s *Store) SetCurrentUser(user *string) error {
	var value *string
	if user != nil {
		if u := strings.TrimSpace(*user); u != "" {
			value = &u
		}
	}
	return s.update(func() ([]Event, error) {
		var err error
		if value == nil {
			err = s.remove(kv.KeyCurrentUser)
		} else {
			err = s.put(kv.KeyCurrentUser, *value)
		}
		if err != nil {
			return nil, err
		}
		s.prefs.CurrentUser = value
		return []Event{{Kind: KindPreferences, Op: OpUpdated}}, nil
	})
}

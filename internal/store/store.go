// Package store owns the authoritative customer list, company settings and
// preferences. Every mutation is written through to the kv provider before
// it becomes visible; when persistence fails the in-memory state is left
// untouched.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/checksum"
	"github.com/starford/crmdesk/internal/kv"
	"github.com/starford/crmdesk/internal/models"
)

// Store is safe for concurrent use.
type Store struct {
	kv             kv.Provider
	logger         *slog.Logger
	now            func() time.Time
	newID          func() string
	defaultSources []string

	mu        sync.RWMutex
	customers []models.Customer
	settings  models.CompanySettings
	prefs     models.Preferences
	sums      checksum.Ledger

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator for customer, note and contact ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithDefaultSources sets the source labels written on first run.
func WithDefaultSources(sources []string) Option {
	return func(s *Store) { s.defaultSources = slices.Clone(sources) }
}

// Open loads the persisted state from p. Default settings are written on
// first run.
func Open(p kv.Provider, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     p,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
		sums:   make(checksum.Ledger),
		subs:   make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadCustomers(); err != nil {
		return nil, err
	}
	found, err := s.loadSettings()
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Info("store: writing default settings")
		settings := models.DefaultSettings(s.defaultSources)
		if err := s.put(kv.KeySettings, settings); err != nil {
			return nil, err
		}
		s.settings = settings
	}
	if err := s.loadPreferences(); err != nil {
		return nil, err
	}
	return s, nil
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) read(key string) ([]byte, bool, error) {
	data, err := s.kv.Get(key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) loadCustomers() error {
	data, ok, err := s.read(kv.KeyCustomers)
	if err != nil {
		return err
	}
	if !ok {
		s.customers = []models.Customer{}
		s.sums.Forget(kv.KeyCustomers)
		return nil
	}
	var customers []models.Customer
	if err := json.Unmarshal(data, &customers); err != nil {
		return fmt.Errorf("store: decode %s: %w: %v", kv.KeyCustomers, apperr.ErrFormat, err)
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	for i := range customers {
		customers[i].Normalize()
	}
	s.customers = customers
	s.sums.Record(kv.KeyCustomers, data)
	return nil
}

func (s *Store) loadSettings() (bool, error) {
	data, ok, err := s.read(kv.KeySettings)
	if err != nil || !ok {
		return false, err
	}
	var settings models.CompanySettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return false, fmt.Errorf("store: decode %s: %w: %v", kv.KeySettings, apperr.ErrFormat, err)
	}
	if len(settings.Sources) == 0 {
		s.logger.Warn("store: settings without source labels, restoring defaults")
		settings.Sources = models.DefaultSettings(s.defaultSources).Sources
	}
	s.settings = settings
	s.sums.Record(kv.KeySettings, data)
	return true, nil
}

func (s *Store) loadPreferences() error {
	var prefs models.Preferences
	data, ok, err := s.read(kv.KeyDarkMode)
	if err != nil {
		return err
	}
	if ok {
		if err := json.Unmarshal(data, &prefs.DarkMode); err != nil {
			return fmt.Errorf("store: decode %s: %w: %v", kv.KeyDarkMode, apperr.ErrFormat, err)
		}
		s.sums.Record(kv.KeyDarkMode, data)
	}
	data, ok, err = s.read(kv.KeyCurrentUser)
	if err != nil {
		return err
	}
	if ok {
		if err := json.Unmarshal(data, &prefs.CurrentUser); err != nil {
			return fmt.Errorf("store: decode %s: %w: %v", kv.KeyCurrentUser, apperr.ErrFormat, err)
		}
		s.sums.Record(kv.KeyCurrentUser, data)
	}
	s.prefs = prefs
	return nil
}

// put persists one value. Callers hold s.mu.
func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := s.kv.Set(key, data); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	s.sums.Record(key, data)
	return nil
}

// putMany persists all values in one provider call. Callers hold s.mu.
func (s *Store) putMany(values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", key, err)
		}
		encoded[key] = data
	}
	if err := s.kv.SetMany(encoded); err != nil {
		return fmt.Errorf("store: write batch: %w", err)
	}
	for key, data := range encoded {
		s.sums.Record(key, data)
	}
	return nil
}

func (s *Store) remove(key string) error {
	if err := s.kv.Delete(key); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	s.sums.Forget(key)
	return nil
}

// update runs fn under the write lock and publishes the returned events
// after the lock is released.
func (s *Store) update(fn func() ([]Event, error)) error {
	s.mu.Lock()
	events, err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(events...)
	return nil
}

// snapshot returns a deep copy of c with non-nil collections.
func snapshot(c models.Customer) models.Customer {
	var out models.Customer
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		// identical types on both sides
		panic(err)
	}
	out.Normalize()
	return out
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
}

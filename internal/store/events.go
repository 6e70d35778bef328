package store

import (
	"errors"
	"log/slog"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/kv"
)

// Kind is the part of the state an Event refers to.
type Kind string

const (
	KindCustomer    Kind = "customer"
	KindCustomers   Kind = "customers"
	KindSettings    Kind = "settings"
	KindPreferences Kind = "preferences"
)

// Op is the change applied.
type Op string

const (
	OpCreated  Op = "created"
	OpUpdated  Op = "updated"
	OpDeleted  Op = "deleted"
	OpImported Op = "imported"
	OpReplaced Op = "replaced"
)

// Event describes a committed change. ID is set for KindCustomer.
type Event struct {
	Kind Kind
	Op   Op
	ID   string
}

// Subscribe registers fn for change events and returns a function that
// removes it. fn is called synchronously after each committed mutation and
// must not block.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// Reload re-reads key after an external change. Content identical to what
// the store last wrote or loaded is ignored; otherwise the stored value
// replaces the in-memory state (last write wins).
func (s *Store) Reload(key string) error {
	return s.update(func() ([]Event, error) {
		data, err := s.kv.Get(key)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			if !s.sums.Known(key) {
				return nil, nil
			}
		case err != nil:
			return nil, err
		default:
			if s.sums.Matches(key, data) {
				return nil, nil
			}
		}

		s.logger.Info("store: reloading changed key", slog.String("key", key))
		switch key {
		case kv.KeyCustomers:
			if err := s.loadCustomers(); err != nil {
				return nil, err
			}
			return []Event{{Kind: KindCustomers, Op: OpReplaced}}, nil
		case kv.KeySettings:
			found, err := s.loadSettings()
			if err != nil {
				return nil, err
			}
			if !found {
				// keep the in-memory settings; they are rewritten on the next change
				s.sums.Forget(key)
				return nil, nil
			}
			return []Event{{Kind: KindSettings, Op: OpUpdated}}, nil
		case kv.KeyDarkMode, kv.KeyCurrentUser:
			if errors.Is(err, apperr.ErrNotFound) {
				s.sums.Forget(key)
			}
			if err := s.loadPreferences(); err != nil {
				return nil, err
			}
			return []Event{{Kind: KindPreferences, Op: OpUpdated}}, nil
		}
		return nil, nil
	})
}

// Package kv defines the key-value persistence layer behind the customer store.
package kv

import "regexp"

// Keys of the persisted state. Values are JSON documents.
const (
	KeyCustomers   = "crm_customers"
	KeySettings    = "crm_settings"
	KeyDarkMode    = "crm_dark_mode"
	KeyCurrentUser = "crm_current_user"
)

var keyRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidKey reports whether key may be used with a Provider.
func ValidKey(key string) bool {
	return keyRe.MatchString(key)
}

// Provider is the interface for key-value persistence.
type Provider interface {
	// Get returns the stored value, or an error wrapping apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// SetMany stores all values or, as far as the driver allows, none of them.
	SetMany(values map[string][]byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys lists all stored keys.
	Keys() ([]string, error)
}

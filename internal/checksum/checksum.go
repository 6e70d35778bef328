// Package checksum fingerprints stored values so that a process can tell
// its own writes apart from edits made by someone else.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Ledger maps keys to the digest of the content last written or read for
// them. It is not safe for concurrent use.
type Ledger map[string]string

// Record stores the digest of data under key.
func (l Ledger) Record(key string, data []byte) {
	l[key] = Sum(data)
}

// Forget drops key, e.g. after the value was deleted.
func (l Ledger) Forget(key string) {
	delete(l, key)
}

// Known reports whether a digest is held for key.
func (l Ledger) Known(key string) bool {
	_, ok := l[key]
	return ok
}

// Matches reports whether data is exactly the content last recorded for key.
func (l Ledger) Matches(key string, data []byte) bool {
	sum, ok := l[key]
	return ok && sum == Sum(data)
}

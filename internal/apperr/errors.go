// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrValidation           = errors.New("validation failed")
	ErrFormat               = errors.New("invalid format")
	ErrLastSource           = errors.New("at least one source label must remain")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Package common defines shared constants and sentinel errors used across
// the vault layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Secret policy errors. Checked before any key derivation work.
	ErrWeakSecret = errors.New("weak master secret")

	// Cryptographic errors.
	ErrWrongKey        = errors.New("wrong master key")
	ErrMalformedRecord = errors.New("malformed record")

	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")
	ErrInputTooLong = errors.New("input too long")

	// Dispatch errors.
	ErrUnknownAction = errors.New("unknown action")
)

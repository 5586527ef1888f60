// Package common contains shared constants, sentinel errors and small helpers
// used across vault components.
package common

// Fixed system-wide sizes of cryptographic material, in bytes.
const (
	SaltSize = 16
	IVSize   = 12
	TagSize  = 16
	KeySize  = 32
)

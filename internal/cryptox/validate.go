package cryptox

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/vaultcore/internal/common"
)

const (
	// MaxPlaintextLen bounds login + separator + password, in bytes.
	MaxPlaintextLen = 1024
	// MaxServiceLen bounds a service label, in runes.
	MaxServiceLen = 128
)

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// ValidateService checks a service label: non-empty, printable, bounded.
func ValidateService(service string) error {
	if strings.TrimSpace(service) == "" {
		return fmt.Errorf("%w: empty service", common.ErrInvalidInput)
	}
	if !utf8.ValidString(service) || hasControl(service) {
		return fmt.Errorf("%w: service contains forbidden characters", common.ErrInvalidInput)
	}
	if utf8.RuneCountInString(service) > MaxServiceLen {
		return fmt.Errorf("%w: service longer than %d characters", common.ErrInputTooLong, MaxServiceLen)
	}
	return nil
}

// ValidateFields checks login and password before they are joined into a
// plaintext. Control characters are rejected, which keeps Separator out of
// both fields.
func ValidateFields(login, password string) error {
	if login == "" || password == "" {
		return fmt.Errorf("%w: login and password are required", common.ErrInvalidInput)
	}
	for _, f := range []string{login, password} {
		if !utf8.ValidString(f) || hasControl(f) {
			return fmt.Errorf("%w: field contains forbidden characters", common.ErrInvalidInput)
		}
	}
	if len(login)+len(Separator)+len(password) > MaxPlaintextLen {
		return fmt.Errorf("%w: login and password exceed %d bytes", common.ErrInputTooLong, MaxPlaintextLen)
	}
	return nil
}

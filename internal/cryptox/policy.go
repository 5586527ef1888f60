package cryptox

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/vaultcore/internal/common"
)

// MinSecretLen is the minimum master secret length, in runes.
const MinSecretLen = 12

// WeakSecretError lists the policy rules a master secret failed.
type WeakSecretError struct {
	Unmet []string
}

func (e *WeakSecretError) Error() string {
	return fmt.Sprintf("%s: needs %s", common.ErrWeakSecret, strings.Join(e.Unmet, ", "))
}

func (e *WeakSecretError) Unwrap() error {
	return common.ErrWeakSecret
}

// CheckSecretStrength applies the master secret policy. It is cheap and must
// run before DeriveKey so rejected secrets never cost a derivation.
func CheckSecretStrength(secret []byte) error {
	var upper, lower, digit, symbol bool
	for _, r := range string(secret) {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var unmet []string
	if utf8.RuneCount(secret) < MinSecretLen {
		unmet = append(unmet, fmt.Sprintf("at least %d characters", MinSecretLen))
	}
	if !upper {
		unmet = append(unmet, "an uppercase letter")
	}
	if !lower {
		unmet = append(unmet, "a lowercase letter")
	}
	if !digit {
		unmet = append(unmet, "a digit")
	}
	if !symbol {
		unmet = append(unmet, "a symbol")
	}

	if len(unmet) > 0 {
		return &WeakSecretError{Unmet: unmet}
	}
	return nil
}

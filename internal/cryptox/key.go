package cryptox

import (
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/vaultcore/internal/common"
)

// Key is derived key material. It lives for one logical operation and is
// wiped by Destroy; it is never persisted or logged.
type Key struct {
	b []byte
}

// NewKey copies raw into a new Key. raw must be common.KeySize bytes.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != common.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", common.ErrInvalidInput, common.KeySize)
	}
	b := make([]byte, len(raw))
	copy(b, raw)
	return &Key{b: b}, nil
}

// Bytes exposes the key material. The slice must not be retained.
func (k *Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	return k.b
}

// Equal reports whether both keys hold the same material, in constant time.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.b, other.b) == 1
}

// Destroy zeroes the key. Safe to call more than once and on nil.
func (k *Key) Destroy() {
	if k == nil {
		return
	}
	common.WipeByteArray(k.b)
	k.b = nil
}

// String keeps key material out of logs and fmt output.
func (k *Key) String() string {
	return "cryptox.Key(redacted)"
}

package common

import (
	"crypto/rand"

	"github.com/awnumar/memguard"
)

// GenerateRandByteArray returns size bytes read from the system CSPRNG.
func GenerateRandByteArray(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray overwrites b with zeros. Use it on key material and plaintext
// once an operation is done with them. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	memguard.WipeBytes(b)
}

// Package cryptox holds the vault's cryptographic primitives: Argon2id key
// derivation, AES-256-GCM record encryption, secret policy checks and input
// validation for everything that ends up inside a ciphertext.
package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"golang.org/x/crypto/argon2"
)

// KDFParams are the Argon2id cost parameters. They are part of the key
// identity: deriving with different parameters yields a different key.
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultKDFParams returns the production cost: 1 pass, 64 MiB, 4 lanes,
// 256-bit output.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: common.KeySize}
}

// Validate rejects parameter sets that cannot produce an AES-256 key.
func (p KDFParams) Validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return fmt.Errorf("%w: kdf cost parameters must be positive", common.ErrInvalidInput)
	}
	if p.KeyLen != common.KeySize {
		return fmt.Errorf("%w: kdf key length must be %d", common.ErrInvalidInput, common.KeySize)
	}
	return nil
}

// DeriveKey runs Argon2id over secret and salt. The same inputs always give
// the same key; different salts give independent keys for the same secret.
// The caller owns the returned key and must Destroy it.
func DeriveKey(secret, salt []byte, p KDFParams) (*Key, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", common.ErrInvalidInput)
	}
	return &Key{b: argon2.IDKey(secret, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)}, nil
}

// GenSalt returns a fresh per-user salt.
func GenSalt() ([]byte, error) {
	return common.GenerateRandByteArray(common.SaltSize)
}

// GenIV returns a fresh GCM nonce. Every encryption must draw a new one.
func GenIV() ([]byte, error) {
	return common.GenerateRandByteArray(common.IVSize)
}

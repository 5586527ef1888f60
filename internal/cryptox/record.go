package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
)

// Separator joins login and password inside a record plaintext. Fields are
// not allowed to contain control characters, so it can never collide.
const Separator = "\x1f"

// newGCM builds a call-scoped AES-256-GCM context. Contexts are never shared
// between records.
func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptRecord validates the fields, joins login and password with Separator
// and seals them under key with a fresh IV. The GCM tag is returned separately
// from the ciphertext.
func EncryptRecord(service, login, password string, key *Key) (*models.Record, error) {
	if err := ValidateService(service); err != nil {
		return nil, err
	}
	if err := ValidateFields(login, password); err != nil {
		return nil, err
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv, err := GenIV()
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, 0, len(login)+len(Separator)+len(password))
	plaintext = append(plaintext, login...)
	plaintext = append(plaintext, Separator...)
	plaintext = append(plaintext, password...)
	defer common.WipeByteArray(plaintext)

	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - aead.Overhead()

	tag := make([]byte, aead.Overhead())
	copy(tag, sealed[n:])

	return &models.Record{
		Service:    service,
		IV:         iv,
		Tag:        tag,
		Ciphertext: sealed[:n:n],
	}, nil
}

// DecryptRecord opens rec with key. A tag mismatch is reported as
// common.ErrWrongKey and is the only way a wrong key shows up; a plaintext
// that does not split into exactly two fields is common.ErrMalformedRecord.
func DecryptRecord(rec *models.Record, key *Key) (*models.PlaintextRecord, error) {
	if len(rec.IV) != common.IVSize || len(rec.Tag) != common.TagSize {
		return nil, fmt.Errorf("%w: bad iv or tag length", common.ErrMalformedRecord)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(rec.Ciphertext)+len(rec.Tag))
	sealed = append(sealed, rec.Ciphertext...)
	sealed = append(sealed, rec.Tag...)

	plaintext, err := aead.Open(sealed[:0], rec.IV, sealed, nil)
	if err != nil {
		return nil, common.ErrWrongKey
	}
	defer common.WipeByteArray(plaintext)

	parts := strings.Split(string(plaintext), Separator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected 2 fields, got %d", common.ErrMalformedRecord, len(parts))
	}

	return &models.PlaintextRecord{
		Service:  rec.Service,
		Login:    parts[0],
		Password: parts[1],
	}, nil
}

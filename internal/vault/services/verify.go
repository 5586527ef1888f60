package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
)

// Verification is the outcome of checking a key against a vault.
type Verification int

const (
	// Unverifiable means the vault is empty; the first record will fix the key.
	Unverifiable Verification = iota
	Verified
	WrongKey
)

func (v Verification) String() string {
	switch v {
	case Verified:
		return "verified"
	case WrongKey:
		return "wrong key"
	default:
		return "unverifiable"
	}
}

// VerifyKey trial-decrypts an arbitrary record of the user. No verifier is
// stored anywhere: a GCM tag mismatch is the only wrong-key signal.
// A record that decrypts but is malformed is returned as an error.
func (s *VaultService) VerifyKey(ctx context.Context, userID int64, key *cryptox.Key) (Verification, error) {
	return s.verifyKey(ctx, s.db, userID, key)
}

func (s *VaultService) verifyKey(ctx context.Context, db dbx.DBTX, userID int64, key *cryptox.Key) (Verification, error) {
	rec, err := s.repomanager.Records(db).GetAny(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Unverifiable, nil
		}
		return Unverifiable, err
	}
	return verdict(rec, key)
}

func verdict(rec *models.Record, key *cryptox.Key) (Verification, error) {
	if _, err := cryptox.DecryptRecord(rec, key); err != nil {
		if errors.Is(err, common.ErrWrongKey) {
			return WrongKey, nil
		}
		return Unverifiable, err
	}
	return Verified, nil
}

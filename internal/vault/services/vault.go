// Package services implements the vault operations on top of the
// repositories: provisioning, unlocking, record CRUD, listings, bulk
// transfer and key rotation. The service is stateless; every call takes the
// user id and, where plaintext is involved, a derived key owned by the
// caller.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/logging"
	"github.com/dmitrijs2005/vaultcore/internal/pagex"
	"github.com/dmitrijs2005/vaultcore/internal/vault/config"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/repomanager"
)

type VaultService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	kdf           cryptox.KDFParams
	pageSize      int
	searchLimit   int
	exportWorkers int
	logger        logging.Logger
}

func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *VaultService {
	return &VaultService{
		db:            db,
		repomanager:   m,
		kdf:           cfg.KDFParams(),
		pageSize:      cfg.PageSize,
		searchLimit:   cfg.SearchLimit,
		exportWorkers: cfg.ExportWorkers,
		logger:        logger,
	}
}

// Provision creates the user with a fresh salt unless it already exists and
// returns the stored salt. Calling it again never changes the salt.
func (s *VaultService) Provision(ctx context.Context, userID int64) ([]byte, error) {
	salt, err := cryptox.GenSalt()
	if err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.Create(ctx, &models.User{ID: userID, Salt: salt}); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return repo.GetSalt(ctx, userID)
}

// Salt returns the user's salt or common.ErrorNotFound.
func (s *VaultService) Salt(ctx context.Context, userID int64) ([]byte, error) {
	return s.repomanager.Users(s.db).GetSalt(ctx, userID)
}

// DeriveKey derives the user's key from secret with the configured cost.
// The caller must Destroy the key.
func (s *VaultService) DeriveKey(ctx context.Context, userID int64, secret []byte) (*cryptox.Key, error) {
	salt, err := s.Salt(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cryptox.DeriveKey(secret, salt, s.kdf)
}

// Unlock derives the key for secret and checks it against the vault. An
// empty vault means secret is about to become the master secret, so it has to
// pass the strength policy first; that check runs before the KDF. A wrong
// secret yields common.ErrWrongKey and no key.
func (s *VaultService) Unlock(ctx context.Context, userID int64, secret []byte) (*cryptox.Key, Verification, error) {
	salt, err := s.Salt(ctx, userID)
	if err != nil {
		return nil, Unverifiable, err
	}

	sample, err := s.repomanager.Records(s.db).GetAny(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, Unverifiable, err
	}
	if sample == nil {
		if err := cryptox.CheckSecretStrength(secret); err != nil {
			return nil, Unverifiable, err
		}
	}

	key, err := cryptox.DeriveKey(secret, salt, s.kdf)
	if err != nil {
		return nil, Unverifiable, err
	}
	if sample == nil {
		return key, Unverifiable, nil
	}

	v, err := verdict(sample, key)
	if err != nil {
		key.Destroy()
		return nil, Unverifiable, err
	}
	if v == WrongKey {
		key.Destroy()
		return nil, WrongKey, common.ErrWrongKey
	}
	return key, v, nil
}

// requireKey refuses a key that is known to be wrong for the vault.
func (s *VaultService) requireKey(ctx context.Context, db dbx.DBTX, userID int64, key *cryptox.Key) error {
	v, err := s.verifyKey(ctx, db, userID, key)
	if err != nil {
		return err
	}
	if v == WrongKey {
		return common.ErrWrongKey
	}
	return nil
}

// CreateRecord encrypts and appends one record. Duplicates are allowed.
func (s *VaultService) CreateRecord(ctx context.Context, userID int64, service, login, password string, key *cryptox.Key) (*models.Record, error) {
	if err := s.requireKey(ctx, s.db, userID, key); err != nil {
		return nil, err
	}

	rec, err := cryptox.EncryptRecord(service, login, password, key)
	if err != nil {
		return nil, err
	}
	rec.UserID = userID

	if err := s.repomanager.Records(s.db).Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateRecord replaces the record identified by ciphertext with a new
// login/password pair under the same service. The old record is removed and
// the new one inserted in one transaction.
func (s *VaultService) UpdateRecord(ctx context.Context, userID int64, service string, ciphertext []byte, login, password string, key *cryptox.Key) (*models.Record, error) {
	rec, err := cryptox.EncryptRecord(service, login, password, key)
	if err != nil {
		return nil, err
	}
	rec.UserID = userID

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.requireKey(ctx, tx, userID, key); err != nil {
			return err
		}
		repo := s.repomanager.Records(tx)
		if err := repo.Delete(ctx, userID, service, ciphertext); err != nil {
			return err
		}
		return repo.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *VaultService) window(offset, limit int) pagex.Window {
	return pagex.NewWindow(offset, limit, s.pageSize)
}

// ListServices returns one page of the user's service names in lexicographic
// order. A non-positive limit means the configured page size.
func (s *VaultService) ListServices(ctx context.Context, userID int64, offset, limit int) (pagex.Page[string], error) {
	return s.repomanager.Records(s.db).ListServices(ctx, userID, s.window(offset, limit))
}

// ListRecords returns one page of encrypted records under service.
func (s *VaultService) ListRecords(ctx context.Context, userID int64, service string, offset, limit int) (pagex.Page[*models.Record], error) {
	return s.repomanager.Records(s.db).ListByService(ctx, userID, service, s.window(offset, limit))
}

// Revealed pairs a decrypted record with the ciphertext that identifies it,
// so callers can delete or update what they are looking at.
type Revealed struct {
	models.PlaintextRecord
	Ciphertext []byte
}

// RevealRecords is ListRecords followed by decryption of the page.
func (s *VaultService) RevealRecords(ctx context.Context, userID int64, service string, offset, limit int, key *cryptox.Key) (pagex.Page[Revealed], error) {
	page, err := s.ListRecords(ctx, userID, service, offset, limit)
	if err != nil {
		return pagex.Page[Revealed]{}, err
	}
	return pagex.Map(page, func(rec *models.Record) (Revealed, error) {
		pt, err := cryptox.DecryptRecord(rec, key)
		if err != nil {
			return Revealed{}, err
		}
		return Revealed{PlaintextRecord: *pt, Ciphertext: rec.Ciphertext}, nil
	})
}

// RenameService relabels every record under oldName. Renaming a service that
// has no records is common.ErrorNotFound.
func (s *VaultService) RenameService(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	if err := cryptox.ValidateService(newName); err != nil {
		return 0, err
	}
	n, err := s.repomanager.Records(s.db).RenameService(ctx, userID, oldName, newName)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, common.ErrorNotFound
	}
	return n, nil
}

// DeleteRecord removes the record whose ciphertext matches within service.
func (s *VaultService) DeleteRecord(ctx context.Context, userID int64, service string, ciphertext []byte) error {
	return s.repomanager.Records(s.db).Delete(ctx, userID, service, ciphertext)
}

// DeleteService removes every record under service.
func (s *VaultService) DeleteService(ctx context.Context, userID int64, service string) (int64, error) {
	return s.repomanager.Records(s.db).DeleteService(ctx, userID, service)
}

// DeleteAll empties the vault. The salt stays, so the same master secret
// keeps working.
func (s *VaultService) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repomanager.Records(s.db).DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "vault cleared", "user_id", userID, "records", n)
	return n, nil
}

// SearchServices returns service names containing substring, capped at the
// configured search limit. Case is ignored the way the database's LOWER()
// folds it: fully on Postgres, ASCII letters only on SQLite.
func (s *VaultService) SearchServices(ctx context.Context, userID int64, substring string) ([]string, error) {
	return s.repomanager.Records(s.db).SearchServices(ctx, userID, substring, s.searchLimit)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/csvx"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/logging"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
	"golang.org/x/sync/errgroup"
)

// ImportReport summarises an ImportCSV call.
type ImportReport struct {
	Imported int
	// Malformed lists lines the parser could not read.
	Malformed []csvx.Skipped
	// Invalid counts parsed rows rejected by field validation.
	Invalid int
}

// ExportVault decrypts every record of the user. Decryption runs on up to
// exportWorkers goroutines, each with its own GCM context. Any failure,
// including a wrong key, aborts the export and nothing is returned.
func (s *VaultService) ExportVault(ctx context.Context, userID int64, key *cryptox.Key) ([]models.PlaintextRecord, error) {
	recs, err := s.repomanager.Records(s.db).ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(ctx, recs, key)
}

func (s *VaultService) decryptAll(ctx context.Context, recs []*models.Record, key *cryptox.Key) ([]models.PlaintextRecord, error) {
	out := make([]models.PlaintextRecord, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.exportWorkers)

	for i, rec := range recs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pt, err := cryptox.DecryptRecord(rec, key)
			if err != nil {
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
			out[i] = *pt
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteExport streams the decrypted vault to w in the transfer format and
// returns the number of rows written.
func (s *VaultService) WriteExport(ctx context.Context, userID int64, key *cryptox.Key, w io.Writer) (int, error) {
	rows, err := s.ExportVault(ctx, userID, key)
	if err != nil {
		return 0, err
	}

	cw := csvx.NewWriter(w)
	for _, r := range rows {
		if err := cw.Write(csvx.Row{Service: r.Service, Login: r.Login, Password: r.Password}); err != nil {
			return 0, fmt.Errorf("write export: %w", err)
		}
	}
	if err := cw.Flush(); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}

	s.logger.Info(ctx, "vault exported", "user_id", userID, "records", len(rows))
	return len(rows), nil
}

// ImportVault encrypts rows under key and appends them in one transaction.
// Rows failing validation are skipped; existing records are not
// de-duplicated. It returns the number of records created.
func (s *VaultService) ImportVault(ctx context.Context, userID int64, rows []csvx.Row, key *cryptox.Key) (int, error) {
	n, _, err := s.importRows(ctx, userID, rows, key)
	return n, err
}

// ImportCSV parses r and imports every well-formed line. Malformed lines
// are reported, not fatal.
func (s *VaultService) ImportCSV(ctx context.Context, userID int64, r io.Reader, key *cryptox.Key) (ImportReport, error) {
	parsed, err := csvx.Read(r)
	if err != nil {
		return ImportReport{}, err
	}

	n, invalid, err := s.importRows(ctx, userID, parsed.Rows, key)
	if err != nil {
		return ImportReport{}, err
	}
	return ImportReport{Imported: n, Malformed: parsed.Skipped, Invalid: invalid}, nil
}

func (s *VaultService) importRows(ctx context.Context, userID int64, rows []csvx.Row, key *cryptox.Key) (int, int, error) {
	recs := make([]*models.Record, 0, len(rows))
	invalid := 0
	for _, row := range rows {
		rec, err := cryptox.EncryptRecord(row.Service, row.Login, row.Password, key)
		if err != nil {
			invalid++
			continue
		}
		rec.UserID = userID
		recs = append(recs, rec)
	}

	log := s.logger.With("user_id", userID)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.requireKey(ctx, tx, userID, key); err != nil {
			return err
		}
		repo := s.repomanager.Records(tx)
		for _, rec := range recs {
			if err := repo.Create(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, log, "vault import failed", err)
		return 0, 0, err
	}

	log.Info(ctx, "vault imported", "records", len(recs), "invalid", invalid)
	return len(recs), invalid, nil
}

// RotateMasterPassword re-encrypts the whole vault from oldKey to newKey.
// Read, decrypt, delete and re-insert all happen in one transaction holding
// the user's row lock, so the vault is never left half-rotated: either the
// old set or the complete new set is visible. A record that does not open
// under oldKey aborts the rotation with nothing changed.
func (s *VaultService) RotateMasterPassword(ctx context.Context, userID int64, oldKey, newKey *cryptox.Key) (int, error) {
	start := time.Now()
	dialect := s.repomanager.Dialect()
	log := s.logger.With("user_id", userID)

	var n int
	err := dbx.WithTx(ctx, s.db, dialect.ReplaceTxOptions(), func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Lock(ctx, userID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		repo := s.repomanager.Records(tx)
		old, err := repo.ListAll(ctx, userID)
		if err != nil {
			return err
		}

		plain, err := s.decryptAll(ctx, old, oldKey)
		if err != nil {
			return err
		}

		fresh := make([]*models.Record, 0, len(plain))
		for _, p := range plain {
			rec, err := cryptox.EncryptRecord(p.Service, p.Login, p.Password, newKey)
			if err != nil {
				return err
			}
			rec.UserID = userID
			fresh = append(fresh, rec)
		}

		if _, err := repo.DeleteAll(ctx, userID); err != nil {
			return err
		}
		for _, rec := range fresh {
			if err := repo.Create(ctx, rec); err != nil {
				return err
			}
		}
		n = len(fresh)
		return nil
	})
	if err != nil {
		logFailure(ctx, log, "vault rotation aborted", err)
		return 0, err
	}

	log.Info(ctx, "vault rotated", "records", n, "took", time.Since(start))
	return n, nil
}

// ChangeMasterPassword rotates the vault from oldSecret to newSecret. Only
// the new secret has to pass the strength policy. A wrong old secret fails
// the rotation with common.ErrWrongKey and changes nothing. Both derived keys
// are destroyed before returning.
func (s *VaultService) ChangeMasterPassword(ctx context.Context, userID int64, oldSecret, newSecret []byte) (int, error) {
	if err := cryptox.CheckSecretStrength(newSecret); err != nil {
		return 0, err
	}

	oldKey, err := s.DeriveKey(ctx, userID, oldSecret)
	if err != nil {
		return 0, err
	}
	defer oldKey.Destroy()

	newKey, err := s.DeriveKey(ctx, userID, newSecret)
	if err != nil {
		return 0, err
	}
	defer newKey.Destroy()

	return s.RotateMasterPassword(ctx, userID, oldKey, newKey)
}

// logFailure logs key and input rejections as warnings and anything else,
// storage failures included, as errors.
func logFailure(ctx context.Context, log logging.Logger, msg string, err error) {
	switch {
	case errors.Is(err, common.ErrWrongKey), errors.Is(err, common.ErrMalformedRecord),
		errors.Is(err, common.ErrorNotFound), errors.Is(err, context.Canceled):
		log.Warn(ctx, msg, "error", err)
	default:
		log.Error(ctx, msg, "error", err)
	}
}

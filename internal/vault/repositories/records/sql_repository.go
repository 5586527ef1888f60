// Package records provides the SQL repository for encrypted vault records.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/pagex"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
	"github.com/google/uuid"
)

const recordColumns = `id, user_id, service, iv, auth_tag, ciphertext`

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, rec *models.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `INSERT INTO records (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		rec.ID, rec.UserID, rec.Service, rec.IV, rec.Tag, rec.Ciphertext)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListServices(ctx context.Context, userID int64, w pagex.Window) (pagex.Page[string], error) {
	query := `SELECT service FROM records WHERE user_id = ?
		GROUP BY service ORDER BY service` + r.dialect.Collate() + ` LIMIT ? OFFSET ?`

	services, err := r.selectStrings(ctx, query, userID, w.Fetch(), w.Offset)
	if err != nil {
		return pagex.Page[string]{}, fmt.Errorf("failed to select services: %w", err)
	}
	return pagex.Trim(services, w), nil
}

func (r *SQLRepository) ListByService(ctx context.Context, userID int64, service string, w pagex.Window) (pagex.Page[*models.Record], error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ? AND service = ?
		ORDER BY created_at, id LIMIT ? OFFSET ?`

	recs, err := r.selectRecords(ctx, query, userID, service, w.Fetch(), w.Offset)
	if err != nil {
		return pagex.Page[*models.Record]{}, fmt.Errorf("failed to select records: %w", err)
	}
	return pagex.Trim(recs, w), nil
}

func (r *SQLRepository) ListAll(ctx context.Context, userID int64) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ?
		ORDER BY service` + r.dialect.Collate() + `, created_at, id`

	recs, err := r.selectRecords(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	return recs, nil
}

func (r *SQLRepository) GetAny(ctx context.Context, userID int64) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ? LIMIT 1`

	rec := &models.Record{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), userID).
		Scan(&rec.ID, &rec.UserID, &rec.Service, &rec.IV, &rec.Tag, &rec.Ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *SQLRepository) RenameService(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	query := `UPDATE records SET service = ? WHERE user_id = ? AND service = ?`
	return r.exec(ctx, "failed to rename service", query, newName, userID, oldName)
}

func (r *SQLRepository) Delete(ctx context.Context, userID int64, service string, ciphertext []byte) error {
	query := `DELETE FROM records WHERE user_id = ? AND service = ? AND ciphertext = ?`
	n, err := r.exec(ctx, "failed to delete record", query, userID, service, ciphertext)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) DeleteService(ctx context.Context, userID int64, service string) (int64, error) {
	query := `DELETE FROM records WHERE user_id = ? AND service = ?`
	return r.exec(ctx, "failed to delete service", query, userID, service)
}

func (r *SQLRepository) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	query := `DELETE FROM records WHERE user_id = ?`
	return r.exec(ctx, "failed to delete records", query, userID)
}

func (r *SQLRepository) SearchServices(ctx context.Context, userID int64, substring string, limit int) ([]string, error) {
	query := `SELECT service FROM records
		WHERE user_id = ? AND LOWER(service) LIKE ? ESCAPE '\'
		GROUP BY service ORDER BY service` + r.dialect.Collate() + ` LIMIT ?`

	// Both sides must fold the same way: Postgres LOWER is Unicode-aware,
	// SQLite's touches ASCII only.
	pattern := "%" + escapeLike(r.dialect.FoldCase(substring)) + "%"
	services, err := r.selectStrings(ctx, query, userID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search services: %w", err)
	}
	return services, nil
}

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *SQLRepository) exec(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) selectStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec := &models.Record{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Service, &rec.IV, &rec.Tag, &rec.Ciphertext); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

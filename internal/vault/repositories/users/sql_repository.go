// Package users provides the SQL repository for vault users and salts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
)

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, salt) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), user.ID, user.Salt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetSalt(ctx context.Context, userID int64) ([]byte, error) {
	query := `SELECT salt FROM users WHERE id = ?`

	var salt []byte
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), userID).Scan(&salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return salt, nil
}

func (r *SQLRepository) Lock(ctx context.Context, userID int64) error {
	query := `SELECT id FROM users WHERE id = ?` + r.dialect.LockClause()

	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

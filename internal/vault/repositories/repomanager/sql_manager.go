// Package repomanager vends dialect-bound repository implementations and
// runs the embedded goose migrations for that dialect.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/vault/migrations"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/records"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager hands out repositories that speak one SQL dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// Dialect reports the dialect the repositories are built for.
func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

// Records returns a records.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewSQLRepository(db, m.dialect)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, m.dialect.MigrationsDir()); err != nil {
		return err
	}
	return nil
}

// NewSQLRepositoryManager constructs a RepositoryManager for the dialect.
func NewSQLRepositoryManager(dialect dbx.Dialect) RepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/records"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Dialect() dbx.Dialect
	Users(db dbx.DBTX) users.Repository
	Records(db dbx.DBTX) records.Repository
}

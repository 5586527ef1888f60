package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
	"github.com/dmitrijs2005/vaultcore/internal/logging"
	"github.com/dmitrijs2005/vaultcore/internal/vault/config"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/repomanager"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const strongSecret = "Str0ng!Pass1234"

// testConfig keeps Argon2id cheap so the suite stays fast.
func testConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:   "sqlite",
		KDFTime:          1,
		KDFMemoryKiB:     8 * 1024,
		KDFThreads:       1,
		PageSize:         3,
		SearchLimit:      5,
		ExportWorkers:    3,
		OperationTimeout: 10 * time.Second,
	}
}

func newTestService(t *testing.T) (*VaultService, *sql.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "vault.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLRepositoryManager(dbx.SQLite)
	require.NoError(t, m.RunMigrations(context.Background(), db))

	return NewVaultService(db, m, testConfig(), logging.NewNopLogger()), db
}

// provision creates user id and returns a key derived from secret.
func provision(t *testing.T, s *VaultService, id int64, secret string) *cryptox.Key {
	t.Helper()
	ctx := context.Background()
	_, err := s.Provision(ctx, id)
	require.NoError(t, err)
	key, err := s.DeriveKey(ctx, id, []byte(secret))
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	return key
}

func countRecords(t *testing.T, db *sql.DB, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records WHERE user_id = ?`, userID).Scan(&n))
	return n
}

// Package config handles configuration for the vault core, including
// defaults, a JSON overlay and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/dbx"
)

// Config holds runtime settings for the vault.
//
// Fields:
//   - DatabaseDriver: "pgx" (PostgreSQL) or "sqlite" (embedded).
//   - DatabaseDSN: DSN understood by the driver.
//   - KDFTime / KDFMemoryKiB / KDFThreads: Argon2id cost. Changing them
//     changes every derived key, so they must stay fixed for a deployment.
//   - PageSize: rows per listing page.
//   - SearchLimit: maximum services returned by a search.
//   - ExportWorkers: goroutines decrypting records during export.
//   - OperationTimeout: deadline applied to one vault operation.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabaseDriver   string
	DatabaseDSN      string
	KDFTime          uint32
	KDFMemoryKiB     uint32
	KDFThreads       uint8
	PageSize         int
	SearchLimit      int
	ExportWorkers    int
	OperationTimeout time.Duration
	LogLevel         string
}

// LoadDefaults populates Config with development defaults: an on-disk
// SQLite vault and the production KDF cost.
func (c *Config) LoadDefaults() {
	kdf := cryptox.DefaultKDFParams()

	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:vault.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	c.KDFTime = kdf.Time
	c.KDFMemoryKiB = kdf.MemoryKiB
	c.KDFThreads = kdf.Threads
	c.PageSize = 10
	c.SearchLimit = 20
	c.ExportWorkers = 4
	c.OperationTimeout = 30 * time.Second
	c.LogLevel = "info"
}

// KDFParams assembles the Argon2id parameters from the config.
func (c *Config) KDFParams() cryptox.KDFParams {
	return cryptox.KDFParams{
		Time:      c.KDFTime,
		MemoryKiB: c.KDFMemoryKiB,
		Threads:   c.KDFThreads,
		KeyLen:    cryptox.DefaultKDFParams().KeyLen,
	}
}

// Dialect resolves DatabaseDriver.
func (c *Config) Dialect() (dbx.Dialect, error) {
	return dbx.ParseDialect(c.DatabaseDriver)
}

// Validate checks the settings that would otherwise fail deep inside an
// operation.
func (c *Config) Validate() error {
	if _, err := c.Dialect(); err != nil {
		return err
	}
	if err := c.KDFParams().Validate(); err != nil {
		return err
	}
	if c.PageSize <= 0 || c.SearchLimit <= 0 || c.ExportWorkers <= 0 {
		return fmt.Errorf("page size, search limit and export workers must be positive")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags in args.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/vaultcore/internal/flagx"
)

// FlagNames lists every flag owned by the config, including -c/-config.
// Callers strip them before parsing their own arguments.
var FlagNames = []string{
	"-c", "-config",
	"-driver", "-d", "-kdf-time", "-kdf-memory", "-kdf-threads",
	"-page-size", "-search-limit", "-workers", "-timeout", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-driver string     database driver (pgx or sqlite)
//	-d string          database DSN
//	-kdf-time uint     Argon2id passes
//	-kdf-memory uint   Argon2id memory, KiB
//	-kdf-threads uint  Argon2id lanes
//	-page-size int     rows per listing page
//	-search-limit int  maximum search results
//	-workers int       export decryption workers
//	-timeout int       operation timeout, seconds
//	-log-level string  debug, info, warn or error
//
// Args are filtered with flagx.FilterArgs first so command arguments do not
// trip the parser.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, FlagNames[2:])

	fs := flag.NewFlagSet("vault", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (pgx or sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	kdfTime := fs.Uint("kdf-time", uint(config.KDFTime), "argon2id time cost")
	kdfMemory := fs.Uint("kdf-memory", uint(config.KDFMemoryKiB), "argon2id memory cost (KiB)")
	kdfThreads := fs.Uint("kdf-threads", uint(config.KDFThreads), "argon2id parallelism")

	fs.IntVar(&config.PageSize, "page-size", config.PageSize, "rows per page")
	fs.IntVar(&config.SearchLimit, "search-limit", config.SearchLimit, "maximum search results")
	fs.IntVar(&config.ExportWorkers, "workers", config.ExportWorkers, "export decryption workers")

	timeout := fs.Int("timeout", int(config.OperationTimeout.Seconds()), "operation timeout (in seconds)")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.KDFTime = uint32(*kdfTime)
	config.KDFMemoryKiB = uint32(*kdfMemory)
	config.KDFThreads = uint8(*kdfThreads)
	config.OperationTimeout = time.Duration(*timeout) * time.Second
}

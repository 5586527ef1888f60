package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/vaultcore/internal/flagx"
	"github.com/dmitrijs2005/vaultcore/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations go through
// timex.Duration so both "30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	DatabaseDriver   string         `json:"database_driver"`
	DatabaseDSN      string         `json:"database_dsn"`
	KDFTime          uint32         `json:"kdf_time"`
	KDFMemoryKiB     uint32         `json:"kdf_memory_kib"`
	KDFThreads       uint8          `json:"kdf_threads"`
	PageSize         int            `json:"page_size"`
	SearchLimit      int            `json:"search_limit"`
	ExportWorkers    int            `json:"export_workers"`
	OperationTimeout timex.Duration `json:"operation_timeout"`
	LogLevel         string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config. Keys missing
// from the file keep their current value. An unreadable file or invalid
// JSON panics.
func parseJson(config *Config, args []string) {

	jsonConfigFile := flagx.JsonConfigFlags(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setIf(&config.DatabaseDriver, c.DatabaseDriver)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.KDFTime, c.KDFTime)
	setIf(&config.KDFMemoryKiB, c.KDFMemoryKiB)
	setIf(&config.KDFThreads, c.KDFThreads)
	setIf(&config.PageSize, c.PageSize)
	setIf(&config.SearchLimit, c.SearchLimit)
	setIf(&config.ExportWorkers, c.ExportWorkers)
	setIf(&config.OperationTimeout, c.OperationTimeout.Duration)
	setIf(&config.LogLevel, c.LogLevel)
}

func setIf[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

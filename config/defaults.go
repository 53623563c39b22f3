package config

import "strings"

const (
	DefaultBatchSize = 10
	DefaultPool      = "batch"
	DefaultDriver    = "sqlite"
	DefaultLogLevel  = "INFO"
)

// ApplyDefaults fills zero values. Explicit values are kept.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = DefaultBatchSize
	}
	if cfg.Ingest.Pool == "" {
		cfg.Ingest.Pool = DefaultPool
	}

	if cfg.Catalog.Driver == "" {
		cfg.Catalog.Driver = DefaultDriver
	}
}

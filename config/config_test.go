package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Ingest.BatchSize != DefaultBatchSize {
		t.Errorf("Expected default batch size %d, got %d", DefaultBatchSize, cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.Pool != "batch" {
		t.Errorf("Expected default pool 'batch', got %q", cfg.Ingest.Pool)
	}
	if cfg.Catalog.Driver != "sqlite" {
		t.Errorf("Expected default driver 'sqlite', got %q", cfg.Catalog.Driver)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
ingest:
  root: /data
  file_type: kv
  coordinate_names: [time, lat]
  pool: steady
catalog:
  driver: sqlite
  path: /tmp/catalog.db
`)

	cfg, err := Load(path, nil, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if strings.Join(cfg.Ingest.CoordinateNames, ",") != "time,lat" {
		t.Errorf("Unexpected coordinate names %v", cfg.Ingest.CoordinateNames)
	}
	if cfg.Ingest.Pool != "steady" {
		t.Errorf("Expected pool 'steady', got %q", cfg.Ingest.Pool)
	}
	if err := ValidateIngest(cfg); err != nil {
		t.Errorf("Expected valid ingest config, got %v", err)
	}
}

func TestLoad_EnvironmentAndFlags(t *testing.T) {
	t.Setenv("METACAT_CATALOG_DRIVER", "postgres")
	t.Setenv("METACAT_CATALOG_URL", "postgres://localhost/metacat")
	t.Setenv("METACAT_INGEST_BATCH_SIZE", "4")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("batch-size", 10, "")
	flags.String("pool", "batch", "")
	if err := flags.Parse([]string{"--pool", "steady"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg, err := Load("", flags, map[string]string{
		"ingest.batch_size": "batch-size",
		"ingest.pool":       "pool",
	})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Catalog.Driver != "postgres" || cfg.Catalog.DSN() != "postgres://localhost/metacat" {
		t.Errorf("Unexpected catalog config %+v", cfg.Catalog)
	}
	// Unchanged flags do not override the environment
	if cfg.Ingest.BatchSize != 4 {
		t.Errorf("Expected batch size 4 from environment, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.Pool != "steady" {
		t.Errorf("Expected pool 'steady' from flag, got %q", cfg.Ingest.Pool)
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if _, err := Load("", flags, map[string]string{"ingest.pool": "pool"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "logging: [unterminated")
	if _, err := Load(path, nil, nil); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Catalog.Path = "/tmp/catalog.db"
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(cfg *Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(cfg *Config) {}},
		{name: "invalid level", modify: func(cfg *Config) { cfg.Logging.Level = "TRACE" }, wantErr: true},
		{name: "invalid file type", modify: func(cfg *Config) { cfg.Ingest.FileType = "grib" }, wantErr: true},
		{name: "invalid pool", modify: func(cfg *Config) { cfg.Ingest.Pool = "elastic" }, wantErr: true},
		{name: "negative batch", modify: func(cfg *Config) { cfg.Ingest.BatchSize = -1 }, wantErr: true},
		{name: "unknown driver", modify: func(cfg *Config) { cfg.Catalog.Driver = "mysql" }, wantErr: true},
		{name: "postgres without url", modify: func(cfg *Config) { cfg.Catalog.Driver = "postgres" }, wantErr: true},
		{name: "empty coordinate name", modify: func(cfg *Config) { cfg.Ingest.CoordinateNames = []string{""} }, wantErr: true},
		{
			name: "publish postgres",
			modify: func(cfg *Config) {
				cfg.Catalog.Driver, cfg.Catalog.URL = "postgres", "postgres://localhost/metacat"
				cfg.Publish = PublishConfig{Enabled: true, Endpoint: "localhost:9000", Bucket: "catalogs"}
			},
			wantErr: true,
		},
		{
			name:    "publish without bucket",
			modify:  func(cfg *Config) { cfg.Publish = PublishConfig{Enabled: true, Endpoint: "localhost:9000"} },
			wantErr: true,
		},
		{
			name:   "publish",
			modify: func(cfg *Config) { cfg.Publish = PublishConfig{Enabled: true, Endpoint: "localhost:9000", Bucket: "catalogs"} },
		},
		{
			name:    "announce without publish",
			modify:  func(cfg *Config) { cfg.Publish.Consul.Enabled = true },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateIngest(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if err := ValidateIngest(cfg); err == nil {
		t.Error("Expected error without root")
	}

	cfg.Ingest.Root = "/data"
	cfg.Ingest.FileType = "kv"
	cfg.Catalog.Path = "/tmp/catalog.db"
	if err := ValidateIngest(cfg); err == nil {
		t.Error("Expected error for kv without coordinate names")
	}

	cfg.Ingest.CoordinateNames = []string{"time"}
	if err := ValidateIngest(cfg); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	cfg.Catalog.Path = ""
	if err := ValidateIngest(cfg); err == nil {
		t.Error("Expected error for sqlite without path")
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load,
// e.g. METACAT_CATALOG_DRIVER.
const EnvPrefix = "METACAT"

// Config is the complete metacat configuration.
//
// Sources in order of precedence: bound flags, environment variables,
// the configuration file and finally the defaults of ApplyDefaults.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Publish PublishConfig `mapstructure:"publish"`
}

type LoggingConfig struct {
	// Level is normalized to uppercase by ApplyDefaults
	Level   string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	File    string `mapstructure:"file"`
	JSON    bool   `mapstructure:"json"`
	NoColor bool   `mapstructure:"no_color"`
}

type IngestConfig struct {
	Root     string `mapstructure:"root"`
	FileType string `mapstructure:"file_type" validate:"omitempty,oneof=nc kv"`
	// CoordinateNames are the keys treated as coordinates by the kv adapter
	CoordinateNames []string `mapstructure:"coordinate_names" validate:"dive,required"`
	BatchSize       int      `mapstructure:"batch_size" validate:"gte=1"`
	Pool            string   `mapstructure:"pool" validate:"oneof=batch steady"`
}

type CatalogConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres memory"`
	// Path is the database file of the sqlite driver
	Path string `mapstructure:"path"`
	// URL is the connection string of the postgres driver
	URL string `mapstructure:"url"`
}

// DSN returns the data source for the configured driver.
func (c CatalogConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

// PublishConfig uploads the sqlite catalog to an S3 compatible bucket.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Object    string `mapstructure:"object"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	Consul ConsulConfig `mapstructure:"consul"`
}

// ConsulConfig announces published catalogs in the Consul KV store.
type ConsulConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	Datacenter string `mapstructure:"datacenter"`
	Prefix     string `mapstructure:"prefix"`
	// Name of the announcement, defaults to the object name without extension
	Name string `mapstructure:"name"`
}

// keys lists every setting so that environment variables are picked up
// without a configuration file.
var keys = []string{
	"logging.level", "logging.file", "logging.json", "logging.no_color",
	"ingest.root", "ingest.file_type", "ingest.coordinate_names", "ingest.batch_size", "ingest.pool",
	"catalog.driver", "catalog.path", "catalog.url",
	"publish.enabled", "publish.endpoint", "publish.region", "publish.bucket", "publish.object",
	"publish.access_key", "publish.secret_key", "publish.use_ssl",
	"publish.consul.enabled", "publish.consul.address", "publish.consul.token",
	"publish.consul.datacenter", "publish.consul.prefix", "publish.consul.name",
}

// Load reads the configuration from configPath (optional), the environment
// and the flags in bindings, then applies defaults and validates the result.
// bindings maps configuration keys to flag names of flags.
func Load(configPath string, flags *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment for '%s': %w", key, err)
		}
	}

	if flags != nil {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("unknown flag '%s' for '%s'", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag '%s': %w", name, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

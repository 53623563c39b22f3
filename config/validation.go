package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags and the rules that span several settings.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Catalog.Driver == "postgres" && cfg.Catalog.URL == "" {
		return fmt.Errorf("catalog: driver 'postgres' requires a url")
	}

	if cfg.Publish.Enabled {
		if cfg.Catalog.Driver != "sqlite" {
			return fmt.Errorf("publish: only sqlite catalogs can be published, driver is '%s'", cfg.Catalog.Driver)
		}
		if cfg.Publish.Endpoint == "" || cfg.Publish.Bucket == "" {
			return fmt.Errorf("publish: endpoint and bucket are required")
		}
	}
	if cfg.Publish.Consul.Enabled && !cfg.Publish.Enabled {
		return fmt.Errorf("publish: consul announcements require publishing to be enabled")
	}

	return nil
}

// ValidateIngest checks the settings a catalog build needs on top of Validate.
func ValidateIngest(cfg *Config) error {
	if cfg.Ingest.Root == "" {
		return fmt.Errorf("ingest: root directory is required")
	}
	if cfg.Ingest.FileType == "" {
		return fmt.Errorf("ingest: file type is required")
	}
	if cfg.Ingest.FileType == "kv" && len(cfg.Ingest.CoordinateNames) == 0 {
		return fmt.Errorf("ingest: file type 'kv' requires at least one coordinate name")
	}
	if cfg.Catalog.Driver == "sqlite" && cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog: driver 'sqlite' requires a path")
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

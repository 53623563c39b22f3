// Package builtin holds the metacat subcommands.
package builtin

import (
	"context"
	"fmt"
	"maps"

	"github.com/mwantia/metacat/catalog"
	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/cmd"
	"github.com/mwantia/metacat/config"
	"github.com/mwantia/metacat/log"
	"github.com/spf13/pflag"
)

// InitBuiltin registers every builtin command on m.
func InitBuiltin(m *cmd.Manager) error {
	for _, c := range []cmd.Command{&BuildCommand{}, &SearchCommand{}, &ShowCommand{}} {
		if err := m.Register(c); err != nil {
			return err
		}
	}
	return nil
}

var commonBindings = map[string]string{
	"catalog.driver":   "driver",
	"logging.level":    "log-level",
	"logging.file":     "log-file",
	"logging.json":     "log-json",
	"logging.no_color": "no-color",
}

func addCommonFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "configuration file (yaml)")
	fs.String("driver", "", "catalog driver: sqlite, postgres or memory")
	fs.String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	fs.String("log-file", "", "additionally write logs to this file")
	fs.Bool("log-json", false, "write logs as JSON lines")
	fs.Bool("no-color", false, "disable colored log output")
	fs.BoolP("verbose", "v", false, "verbose output, same as --log-level DEBUG")
}

// loadConfig reads the configuration with the common flag bindings plus extra.
func loadConfig(args *cmd.CommandArgs, extra map[string]string) (*config.Config, error) {
	bindings := maps.Clone(commonBindings)
	maps.Copy(bindings, extra)

	path, _ := args.Flags.GetString("config")
	cfg, err := config.Load(path, args.Flags, bindings)
	if err != nil {
		return nil, err
	}

	if verbose, _ := args.Flags.GetBool("verbose"); verbose {
		cfg.Logging.Level = log.Debug.String()
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.Parse(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger("metacat", level, cfg.Logging.File, false)
	logger.JSON = cfg.Logging.JSON
	logger.NoColor = cfg.Logging.NoColor
	return logger, nil
}

// setCatalog points the configured driver at location.
func setCatalog(cfg *config.Config, location string) {
	if location == "" {
		return
	}
	if cfg.Catalog.Driver == catalog.DriverPostgres {
		cfg.Catalog.URL = location
	} else {
		cfg.Catalog.Path = location
	}
}

func openCatalog(ctx context.Context, cfg *config.Config) (backend.Store, error) {
	if cfg.Catalog.DSN() == "" && cfg.Catalog.Driver != catalog.DriverMemory {
		return nil, fmt.Errorf("%w: no catalog given", cmd.ErrUsage)
	}
	return catalog.Open(ctx, cfg.Catalog.Driver, cfg.Catalog.DSN())
}

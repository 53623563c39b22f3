package builtin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mwantia/metacat/adapter/formats"
	"github.com/mwantia/metacat/cmd"
	"github.com/mwantia/metacat/config"
	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/ingest"
	"github.com/mwantia/metacat/log"
	"github.com/mwantia/metacat/publish"
	"github.com/spf13/pflag"
)

type BuildCommand struct{}

func (*BuildCommand) Name() string {
	return "build"
}

func (*BuildCommand) Description() string {
	return "Build a catalog from every matching file below a directory"
}

func (*BuildCommand) Usage() string {
	return "build <root> <nc|kv> <catalog> [-v] [coord ...]"
}

func (*BuildCommand) Flags(fs *pflag.FlagSet) {
	addCommonFlags(fs)
	fs.Int("batch-size", config.DefaultBatchSize, "number of files read concurrently")
	fs.String("pool", config.DefaultPool, "worker scheduling: batch or steady")
	fs.Bool("publish", false, "upload the finished sqlite catalog")
}

func (b *BuildCommand) Execute(ctx context.Context, args *cmd.CommandArgs) (int, error) {
	cfg, err := loadConfig(args, map[string]string{
		"ingest.batch_size": "batch-size",
		"ingest.pool":       "pool",
		"publish.enabled":   "publish",
	})
	if err != nil {
		return 2, err
	}

	if root := args.Arg(0); root != "" {
		cfg.Ingest.Root = root
	}
	if fileType := args.Arg(1); fileType != "" {
		cfg.Ingest.FileType = fileType
	}
	setCatalog(cfg, args.Arg(2))
	if len(args.Args) > 3 {
		cfg.Ingest.CoordinateNames = args.Args[3:]
	}

	if err := config.Validate(cfg); err != nil {
		return 2, err
	}
	if err := config.ValidateIngest(cfg); err != nil {
		return 2, fmt.Errorf("%w: %v (%s)", cmd.ErrUsage, err, b.Usage())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return 2, err
	}

	a, err := formats.ForFileType(cfg.Ingest.FileType, cfg.Ingest.CoordinateNames)
	if err != nil {
		return 2, err
	}
	pool, err := ingest.ParsePoolMode(cfg.Ingest.Pool)
	if err != nil {
		return 2, err
	}

	store, err := openCatalog(ctx, cfg)
	if err != nil {
		return 1, err
	}

	coordinator, err := ingest.NewCoordinator(store, a,
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithPoolMode(pool),
		ingest.WithLogger(logger))
	if err != nil {
		store.Close(ctx)
		return 2, err
	}

	summary, err := coordinator.Run(ctx, cfg.Ingest.Root)
	if closeErr := store.Close(context.WithoutCancel(ctx)); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close catalog: %w", closeErr)
	}
	if err != nil {
		if errors.Is(err, data.ErrCatalogNotEmpty) {
			return 1, fmt.Errorf("catalog '%s' already exists: %w", cfg.Catalog.DSN(), err)
		}
		return 1, err
	}

	fmt.Fprintln(args.Stdout, summary)
	for _, failure := range summary.Failures {
		fmt.Fprintf(args.Stdout, "  failed: %s (%s)\n", failure.Path, failure.Reason)
	}

	if cfg.Publish.Enabled {
		if err := publishCatalog(ctx, cfg, summary.Run, logger); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func publishCatalog(ctx context.Context, cfg *config.Config, run *data.IngestRun, logger *log.Logger) error {
	uploader, err := publish.NewUploader(publish.Options{
		Endpoint:  cfg.Publish.Endpoint,
		Region:    cfg.Publish.Region,
		Bucket:    cfg.Publish.Bucket,
		AccessKey: cfg.Publish.AccessKey,
		SecretKey: cfg.Publish.SecretKey,
		UseSSL:    cfg.Publish.UseSSL,
	})
	if err != nil {
		return err
	}
	if err := uploader.Open(ctx); err != nil {
		return err
	}
	defer uploader.Close(ctx)

	key, size, err := uploader.Upload(ctx, cfg.Catalog.Path, cfg.Publish.Object)
	if err != nil {
		return err
	}
	logger.Info("Published %s (%d bytes) to %s/%s", cfg.Catalog.Path, size, cfg.Publish.Bucket, key)

	if !cfg.Publish.Consul.Enabled {
		return nil
	}
	announcer, err := publish.NewAnnouncer(publish.AnnouncerOptions{
		Address:    cfg.Publish.Consul.Address,
		Token:      cfg.Publish.Consul.Token,
		Datacenter: cfg.Publish.Consul.Datacenter,
		Prefix:     cfg.Publish.Consul.Prefix,
	})
	if err != nil {
		return err
	}

	name := cfg.Publish.Consul.Name
	if name == "" {
		name = strings.TrimSuffix(key, filepath.Ext(key))
	}
	if err := announcer.Announce(ctx, name, publish.NewAnnouncement(run, cfg.Publish.Bucket, key, size)); err != nil {
		return err
	}
	logger.Info("Announced catalog as '%s'", announcer.Key(name))
	return nil
}

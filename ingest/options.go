package ingest

import (
	"fmt"

	"github.com/mwantia/metacat/log"
)

// DefaultBatchSize is the number of workers started before the coordinator
// waits for all of them.
const DefaultBatchSize = 10

// PoolMode selects how workers are scheduled.
type PoolMode int

const (
	// PoolBatch starts workers in batches and joins each batch before the next.
	PoolBatch PoolMode = iota
	// PoolSteady keeps up to the batch size of workers busy at all times.
	PoolSteady
)

func (m PoolMode) String() string {
	switch m {
	case PoolBatch:
		return "batch"
	case PoolSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// ParsePoolMode is the inverse of PoolMode.String.
func ParsePoolMode(mode string) (PoolMode, error) {
	switch mode {
	case "", "batch":
		return PoolBatch, nil
	case "steady":
		return PoolSteady, nil
	default:
		return PoolBatch, fmt.Errorf("unknown pool mode '%s'", mode)
	}
}

type Options struct {
	BatchSize int
	PoolMode  PoolMode
	Logger    *log.Logger
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		BatchSize: DefaultBatchSize,
		PoolMode:  PoolBatch,
		Logger:    log.Discard(),
	}
}

func WithBatchSize(size int) Option {
	return func(opts *Options) error {
		if size < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", size)
		}
		opts.BatchSize = size
		return nil
	}
}

func WithPoolMode(mode PoolMode) Option {
	return func(opts *Options) error {
		opts.PoolMode = mode
		return nil
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		if logger != nil {
			opts.Logger = logger
		}
		return nil
	}
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/metacat/adapter"
	"github.com/mwantia/metacat/catalog"
	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/log"
)

var ErrAlreadyStarted = errors.New("ingest: coordinator has already been started")

// State is the lifecycle of a coordinator run.
type State int

const (
	StateIdle State = iota
	StateWalking
	StateDraining
	StateFlushing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWalking:
		return "walking"
	case StateDraining:
		return "draining"
	case StateFlushing:
		return "flushing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Summary is the result of a successful run.
type Summary struct {
	Run      *data.IngestRun
	Failures []data.Failure
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d directories, %d files, %d coordinates and %d variables created, %d files failed in %s",
		s.Run.Directories, s.Run.Files, s.Run.Coordinates, s.Run.Variables, len(s.Failures), s.Run.Duration().Round(time.Millisecond))
}

// Coordinator builds a catalog from a directory tree. A coordinator runs once.
type Coordinator struct {
	mu    sync.RWMutex
	state State

	store   backend.Store
	adapter adapter.Adapter
	opts    *Options
	log     *log.Logger
}

func NewCoordinator(store backend.Store, a adapter.Adapter, opts ...Option) (*Coordinator, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &Coordinator{
		store:   store,
		adapter: a,
		opts:    options,
		log:     options.Logger.Named("ingest"),
	}, nil
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("State %s -> %s", c.state, state)
	c.state = state
}

// Run ingests every file below root the adapter accepts. Per-file read
// failures are recorded and skipped; any other error aborts the run.
func (c *Coordinator) Run(ctx context.Context, root string) (*Summary, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.state = StateWalking
	c.mu.Unlock()

	summary, err := c.run(ctx, root)
	if err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	c.setState(StateDone)
	return summary, nil
}

func (c *Coordinator) run(ctx context.Context, root string) (*Summary, error) {
	empty, err := c.store.IsEmpty(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect catalog: %w", err)
	}
	if !empty {
		return nil, data.ErrCatalogNotEmpty
	}
	if err := c.store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialise catalog: %w", err)
	}

	run := &data.IngestRun{
		ID:       uuid.NewString(),
		Root:     root,
		FileType: c.adapter.Name(),
		Started:  time.Now().UTC(),
	}
	if err := c.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	session := NewSession(c.store, run)
	logger := c.log.With("run", run.ID)
	logger.Info("Walking '%s' for %s files (%s pool of %d)", root, c.adapter.Name(), c.opts.PoolMode, c.opts.BatchSize)

	if err := c.walk(ctx, session, root, logger); err != nil {
		return nil, err
	}

	c.setState(StateFlushing)
	vars := session.Variables()
	if err := catalog.FlushVariables(ctx, c.store, vars); err != nil {
		return nil, err
	}

	run.Finished = time.Now().UTC()
	run.Directories, run.Files, run.Coordinates, run.Variables = session.Counts()
	failures := session.Failures()
	if err := c.store.FinishRun(ctx, run, failures); err != nil {
		return nil, fmt.Errorf("failed to finish run: %w", err)
	}

	summary := &Summary{Run: run, Failures: failures}
	logger.Info("%s", summary)
	return summary, nil
}

// walk registers directories in walk order on the calling goroutine and hands
// accepted files to the dispatcher.
func (c *Coordinator) walk(ctx context.Context, session *Session, root string, logger *log.Logger) error {
	d := newDispatcher(ctx, c.opts.PoolMode, c.opts.BatchSize)
	dirs := make(map[string]*data.Directory)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Skipping '%s': %v", path, err)
			session.RecordFailure(path, err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := d.Context().Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			dir, err := session.RegisterDirectory(ctx, path)
			if err != nil {
				return err
			}
			dirs[path] = dir
			logger.Debug("Directory %d: %s", dir.ID, path)
			return nil
		}

		if !adapter.Accepts(c.adapter, entry.Name()) {
			return nil
		}
		dir, ok := dirs[filepath.Dir(path)]
		if !ok {
			return fmt.Errorf("directory of '%s' was not registered", path)
		}

		w := &worker{
			session: session,
			adapter: c.adapter,
			dir:     dir,
			name:    entry.Name(),
			log:     logger,
		}
		return d.Go(w.ingest)
	})

	c.setState(StateDraining)
	// A worker error cancels the walk, so it takes precedence.
	if waitErr := d.Wait(); waitErr != nil {
		return waitErr
	}
	return err
}

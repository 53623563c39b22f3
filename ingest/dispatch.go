package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// dispatcher runs worker functions in batches or as a steady pool. The first
// worker error cancels the context handed to the remaining workers.
type dispatcher struct {
	parent context.Context
	mode   PoolMode
	size   int

	group   *errgroup.Group
	ctx     context.Context
	pending int
}

func newDispatcher(ctx context.Context, mode PoolMode, size int) *dispatcher {
	d := &dispatcher{parent: ctx, mode: mode, size: size}
	d.reset()
	return d
}

func (d *dispatcher) reset() {
	d.group, d.ctx = errgroup.WithContext(d.parent)
	if d.mode == PoolSteady {
		d.group.SetLimit(d.size)
	}
	d.pending = 0
}

// Context returns the context workers of the current batch run with.
func (d *dispatcher) Context() context.Context {
	return d.ctx
}

// Go starts fn. In batch mode the call blocks on a full batch until every
// worker of that batch has returned; in steady mode it blocks until a slot
// is free.
func (d *dispatcher) Go(fn func(ctx context.Context) error) error {
	if err := d.ctx.Err(); err != nil {
		return d.Wait()
	}

	ctx := d.ctx
	d.group.Go(func() error {
		return fn(ctx)
	})

	if d.mode == PoolSteady {
		return nil
	}

	d.pending++
	if d.pending < d.size {
		return nil
	}
	if err := d.group.Wait(); err != nil {
		return err
	}
	d.reset()
	return nil
}

// Wait joins every started worker and returns the first error.
func (d *dispatcher) Wait() error {
	err := d.group.Wait()
	if err == nil {
		err = d.parent.Err()
	}
	return err
}

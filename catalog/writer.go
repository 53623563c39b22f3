package catalog

import (
	"context"
	"fmt"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
)

// FlushVariables writes every variable with its attributes and associations
// in a single store transaction.
func FlushVariables(ctx context.Context, store backend.Store, vars []*data.Variable) error {
	if len(vars) == 0 {
		return nil
	}
	if err := store.WriteVariables(ctx, Records(vars)); err != nil {
		return fmt.Errorf("failed to flush %d variables: %w", len(vars), err)
	}
	return nil
}

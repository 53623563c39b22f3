package ingest

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/mwantia/metacat/adapter"
	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/log"
)

// worker ingests a single file.
type worker struct {
	session *Session
	adapter adapter.Adapter
	dir     *data.Directory
	name    string
	log     *log.Logger
}

func (w *worker) ingest(ctx context.Context) error {
	path := filepath.Join(w.dir.Path, w.name)
	w.log.Debug("Reading '%s'", path)

	contents, err := w.adapter.Open(ctx, path)
	if err != nil {
		if errors.Is(err, adapter.ErrUnreadable) {
			w.log.Warn("Cannot read '%s': %v", path, err)
			w.session.RecordFailure(path, err)
			return nil
		}
		return err
	}

	info, err := statFile(path)
	if err != nil {
		w.log.Warn("Cannot stat '%s': %v", path, err)
		w.session.RecordFailure(path, err)
		return nil
	}

	file := &data.File{
		DirectoryID: w.dir.ID,
		Directory:   w.dir.Path,
		Filename:    w.name,
		Symlink:     info.Symlink,
		Created:     info.Created,
		Modified:    info.Modified,
		Attributes:  contents.Attributes,
	}
	fileID, err := w.session.RegisterFile(ctx, file)
	if err != nil {
		return err
	}

	coordIDs := make(map[string]int64, len(contents.Dimensions))
	for _, dim := range contents.Dimensions {
		coord := data.NewCoordinate(dim.Name, dim.Samples, dim.Attributes)
		id, err := w.session.ResolveCoordinate(ctx, coord)
		if err != nil {
			return err
		}
		coordIDs[dim.Ref] = id
	}

	for _, v := range contents.Variables {
		ids := make([]int64, len(v.DimensionRefs))
		for d, ref := range v.DimensionRefs {
			id, ok := coordIDs[ref]
			if !ok {
				return data.UnresolvedDimension(v.Name, ref)
			}
			ids[d] = id
		}

		candidate := data.NewVariable(v.Name, len(ids), v.Attributes)
		if _, err := w.session.MergeVariable(candidate, ids, fileID); err != nil {
			return err
		}
	}

	w.log.Debug("File %d: '%s' with %d dimensions and %d variables", fileID, path, len(contents.Dimensions), len(contents.Variables))
	return nil
}

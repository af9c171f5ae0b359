package pkg

import (
	"path/filepath"

	"github.com/golang/glog"

	"github.com/ecopia-map/las_merger/internal/index"
	lasio "github.com/ecopia-map/las_merger/internal/io"
	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/tools"
)

type Indexer struct {
	fileFinder tools.FileFinder
}

func NewIndexer(fileFinder tools.FileFinder) IRunner {
	return &Indexer{
		fileFinder: fileFinder,
	}
}

// Writes a sidecar grid index next to every LAS source
func (indexer *Indexer) Run(opts *merger.Options) error {
	files, err := indexer.fileFinder.GetFilesToProcess(opts)
	if err != nil {
		return err
	}

	cellSize := index.DefaultCellSize
	force := false
	if opts.IndexOptions != nil {
		if opts.IndexOptions.CellSize > 0 {
			cellSize = opts.IndexOptions.CellSize
		}
		force = opts.IndexOptions.Force
	}

	for i, filePath := range files {
		if lasio.DetectFormat(filePath) != lasio.FormatLAS {
			glog.V(1).Infof("not indexing '%s', only LAS sources can be indexed", filePath)
			continue
		}
		sidecar := index.SidecarName(filePath)
		if !force && tools.FileExists(sidecar) {
			tools.LogOutputf("> %s already indexed", filepath.Base(filePath))
			continue
		}
		tools.LogOutputf("Indexing file %d/%d %s", i+1, len(files), filepath.Base(filePath))
		if err := indexFile(filePath, sidecar, cellSize); err != nil {
			return err
		}
	}
	return nil
}

func indexFile(filePath string, sidecar string, cellSize float64) error {
	reader, err := lasio.OpenLasReader(filePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	idx, err := index.Build(reader, cellSize)
	if err != nil {
		return err
	}
	tools.LogOutputf("> %d points in %d cells", idx.GetNumberOfPoints(), idx.GetNumberOfCells())
	return idx.Save(sidecar)
}

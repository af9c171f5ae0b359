package pkg

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager"
)

type IRunner interface {
	Run(opts *merger.Options) error
}

// Configures a merged reader over files as described by the options and opens it. Sources
// whose format differs from the first one are skipped.
func openMergedReader(files []string, opts *merger.Options, manager pipeline_manager.PipelineManager) (*merger.Reader, error) {
	reader := merger.NewReader()
	reader.SetReaderOptions(opts.Reader)
	reader.SetScaleFactor(opts.Scale)
	if opts.HasOffset {
		reader.SetOffset(opts.Offset)
	}
	if opts.Flightlines {
		reader.SetFilesAreFlightlines(opts.FlightlinesStart)
	}
	reader.SetApplyFileSourceID(opts.ApplyFileSourceID)
	reader.SetKeepTiling(opts.KeepTiling)
	reader.SetAutoUpgrade(opts.AutoUpgrade)
	reader.SetUseIndex(opts.UseIndex)
	if manager != nil {
		reader.SetFilter(manager.GetFilter())
		reader.SetTransform(manager.GetTransform())
	}

	for _, file := range files {
		if err := reader.AddSource(file); err != nil {
			if errors.Cause(err) == merger.ErrFormatMismatch {
				glog.Warning(err)
				continue
			}
			return nil, err
		}
	}
	if err := reader.Open(); err != nil {
		return nil, err
	}
	if kind := opts.GetClipKind(); kind != merger.ClipKindNone {
		glog.V(1).Infof("clipping the merged stream, clip %s", kind)
	}
	reader.SetClip(opts.Clip)
	return reader, nil
}

package std_pipeline_manager

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/filter"
	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/internal/transform"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager"
)

type StandardPipelineManager struct {
	filter    *filter.Filter
	transform *transform.Pipeline
}

// Builds the filter and the transform from the command strings of the options
func NewPipelineManager(opts *merger.Options) (pipeline_manager.PipelineManager, error) {
	m := &StandardPipelineManager{}

	if opts.FilterCommand != "" {
		f := filter.NewFilter()
		if _, err := f.ParseString(opts.FilterCommand); err != nil {
			return nil, errors.Wrap(err, "filter")
		}
		m.filter = f
	}

	if opts.TransformCommand != "" {
		t := transform.NewPipeline()
		if _, err := t.ParseString(opts.TransformCommand); err != nil {
			t.Close()
			return nil, errors.Wrap(err, "transform")
		}
		m.transform = t
	}

	return m, nil
}

func (m *StandardPipelineManager) GetFilter() *filter.Filter {
	return m.filter
}

func (m *StandardPipelineManager) GetTransform() *transform.Pipeline {
	return m.transform
}

func (m *StandardPipelineManager) Report() {
	if m.filter != nil {
		m.filter.Report()
	}
	if m.transform == nil {
		return
	}
	if f := m.transform.GetFilter(); f != nil {
		f.Report()
	}
	if overflows := m.transform.CheckForOverflow(); len(overflows) > 0 {
		glog.Warningf("%d transform operations produced out of range values", len(overflows))
	}
}

func (m *StandardPipelineManager) Close() {
	if m.transform != nil {
		m.transform.Close()
	}
}

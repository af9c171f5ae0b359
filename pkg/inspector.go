package pkg

import (
	"fmt"
	"io"

	"github.com/ecopia-map/las_merger/internal/data"
	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager"
	"github.com/ecopia-map/las_merger/tools"
)

// Summary of a merged header
type HeaderReport struct {
	Sources         int              `json:"sources"`
	Version         string           `json:"version"`
	PointDataFormat uint8            `json:"point_data_format"`
	RecordLength    uint16           `json:"record_length"`
	PointCount      uint64           `json:"point_count"`
	PointsByReturn  [15]uint64       `json:"points_by_return"`
	Scale           [3]float64       `json:"scale"`
	Offset          [3]float64       `json:"offset"`
	Bounds          data.BoundingBox `json:"bounds"`
	FileSourceID    uint16           `json:"file_source_id"`
	Attributes      []string         `json:"attributes,omitempty"`
	Warnings        merger.Warnings  `json:"warnings"`
}

type Inspector struct {
	fileFinder      tools.FileFinder
	pipelineManager pipeline_manager.PipelineManager
	out             io.Writer
}

func NewInspector(fileFinder tools.FileFinder, pipelineManager pipeline_manager.PipelineManager, out io.Writer) IRunner {
	return &Inspector{
		fileFinder:      fileFinder,
		pipelineManager: pipelineManager,
		out:             out,
	}
}

// Opens the merge and prints its header
func (inspector *Inspector) Run(opts *merger.Options) error {
	files, err := inspector.fileFinder.GetFilesToProcess(opts)
	if err != nil {
		return err
	}
	reader, err := openMergedReader(files, opts, inspector.pipelineManager)
	if err != nil {
		return err
	}
	defer reader.Close()

	report := NewHeaderReport(reader)
	if opts.InspectOptions != nil && opts.InspectOptions.JSON {
		_, err = fmt.Fprintln(inspector.out, tools.FmtIndentedJSONString(report))
		return err
	}
	_, err = fmt.Fprint(inspector.out, report.String())
	return err
}

func NewHeaderReport(reader *merger.Reader) *HeaderReport {
	h := reader.GetHeader()
	report := &HeaderReport{
		Sources:         reader.GetSourceCount(),
		Version:         fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor),
		PointDataFormat: h.PointDataFormat,
		RecordLength:    h.PointDataRecordLength,
		PointCount:      reader.GetPointCount(),
		PointsByReturn:  h.ExtendedNumberOfPointsByReturn,
		Scale:           h.Scale,
		Offset:          h.Offset,
		Bounds:          h.Bounds,
		FileSourceID:    h.FileSourceID,
		Warnings:        reader.GetWarnings(),
	}
	for _, a := range h.Attributes {
		report.Attributes = append(report.Attributes, a.Name)
	}
	return report
}

func (r *HeaderReport) String() string {
	s := fmt.Sprintf("sources:           %d\n", r.Sources)
	s += fmt.Sprintf("version:           %s\n", r.Version)
	s += fmt.Sprintf("point data format: %d (%d bytes)\n", r.PointDataFormat, r.RecordLength)
	s += fmt.Sprintf("points:            %d\n", r.PointCount)
	s += fmt.Sprintf("scale:             %g %g %g\n", r.Scale[0], r.Scale[1], r.Scale[2])
	s += fmt.Sprintf("offset:            %g %g %g\n", r.Offset[0], r.Offset[1], r.Offset[2])
	s += fmt.Sprintf("min:               %g %g %g\n", r.Bounds.MinX, r.Bounds.MinY, r.Bounds.MinZ)
	s += fmt.Sprintf("max:               %g %g %g\n", r.Bounds.MaxX, r.Bounds.MaxY, r.Bounds.MaxZ)
	s += fmt.Sprintf("file source id:    %d\n", r.FileSourceID)
	for i, a := range r.Attributes {
		s += fmt.Sprintf("attribute %d:       %s\n", i, a)
	}
	return s
}

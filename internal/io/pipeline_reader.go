package io

import (
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
	"github.com/ecopia-map/las_merger/internal/filter"
	"github.com/ecopia-map/las_merger/internal/transform"
)

type ClipMode int

const (
	ClipNone ClipMode = iota
	ClipTile
	ClipCircle
	ClipRectangle
)

// Spatial region the delivered points must fall into
type Clip struct {
	Mode ClipMode

	// tile
	LLX  float32
	LLY  float32
	Size float32

	// circle
	CenterX float64
	CenterY float64
	Radius  float64

	// rectangle
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

func NewTileClip(llX, llY, size float32) Clip {
	return Clip{Mode: ClipTile, LLX: llX, LLY: llY, Size: size}
}

func NewCircleClip(x, y, radius float64) Clip {
	return Clip{Mode: ClipCircle, CenterX: x, CenterY: y, Radius: radius}
}

func NewRectangleClip(minX, minY, maxX, maxY float64) Clip {
	return Clip{Mode: ClipRectangle, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Bounds returns the enclosing rectangle of the clip
func (c Clip) Bounds() (minX, minY, maxX, maxY float64) {
	switch c.Mode {
	case ClipTile:
		return float64(c.LLX), float64(c.LLY), float64(c.LLX + c.Size), float64(c.LLY + c.Size)
	case ClipCircle:
		return c.CenterX - c.Radius, c.CenterY - c.Radius, c.CenterX + c.Radius, c.CenterY + c.Radius
	case ClipRectangle:
		return c.MinX, c.MinY, c.MaxX, c.MaxY
	}
	return 0, 0, 0, 0
}

func (c Clip) Contains(p *data.Point) bool {
	switch c.Mode {
	case ClipTile:
		return p.InsideTile(float64(c.LLX), float64(c.LLY), float64(c.LLX+c.Size), float64(c.LLY+c.Size))
	case ClipCircle:
		return p.InsideCircle(c.CenterX, c.CenterY, c.Radius*c.Radius)
	case ClipRectangle:
		return p.InsideRectangle(c.MinX, c.MinY, c.MaxX, c.MaxY)
	}
	return true
}

// PipelineReader applies a clip, a filter and a transform to the points of an inner
// reader. With a spatial index and a seekable inner reader only the index intervals
// overlapping the clip are visited.
type PipelineReader struct {
	inner     Reader
	clip      Clip
	filter    *filter.Filter
	transform *transform.Pipeline
	index     SpatialIndex
	intervals []Interval
	current   int
	pCount    uint64
}

func NewPipelineReader(inner Reader) *PipelineReader {
	return &PipelineReader{inner: inner}
}

func (r *PipelineReader) SetClip(c Clip) {
	r.clip = c
	r.intervals = nil
}

func (r *PipelineReader) SetFilter(f *filter.Filter) {
	r.filter = f
}

func (r *PipelineReader) SetTransform(t *transform.Pipeline) {
	r.transform = t
}

// SetIndex attaches a spatial index, ignored when the inner reader cannot seek
func (r *PipelineReader) SetIndex(index SpatialIndex) {
	if _, ok := r.inner.(Seeker); !ok {
		glog.V(2).Info("spatial index ignored, reader cannot seek")
		return
	}
	r.index = index
	r.intervals = nil
}

func (r *PipelineReader) GetHeader() *data.Header {
	return r.inner.GetHeader()
}

func (r *PipelineReader) GetPoint() *data.Point {
	return r.inner.GetPoint()
}

// Number of points that passed the clip and the filter
func (r *PipelineReader) GetPCount() uint64 {
	return r.pCount
}

func (r *PipelineReader) ReadPoint() error {
	for {
		if err := r.positionInIndex(); err != nil {
			return err
		}
		if err := r.inner.ReadPoint(); err != nil {
			return err
		}
		p := r.inner.GetPoint()
		if !r.clip.Contains(p) {
			continue
		}
		if r.filter != nil && r.filter.Filter(p) {
			continue
		}
		if r.transform != nil {
			r.transform.Transform(p)
		}
		r.pCount++
		return nil
	}
}

// moves the inner reader into the next index interval
func (r *PipelineReader) positionInIndex() error {
	if r.index == nil || r.clip.Mode == ClipNone {
		return nil
	}
	if r.intervals == nil {
		r.intervals = r.index.Intervals(r.clip.Bounds())
		r.current = 0
		if r.intervals == nil {
			r.intervals = []Interval{}
		}
	}
	for {
		if r.current >= len(r.intervals) {
			return io.EOF
		}
		iv := r.intervals[r.current]
		next := r.inner.GetPCount()
		if next > iv.End {
			r.current++
			continue
		}
		if next < iv.Start {
			if err := r.inner.(Seeker).Seek(iv.Start); err != nil {
				return errors.Wrap(err, "following spatial index")
			}
		}
		return nil
	}
}

func (r *PipelineReader) Close() error {
	return r.inner.Close()
}

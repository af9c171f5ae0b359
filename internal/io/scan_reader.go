package io

import (
	"io"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

// recordSource yields the points of a text-like format one record at a time. Coordinates
// are returned as world values, the remaining fields are written into p.
type recordSource interface {
	next(p *data.Point) ([3]float64, error)
	rewind() error
	close() error
}

// ScanReader streams a format whose files carry no usable header. The whole file is scanned
// once when it is opened to know its bounds and return counts, the raw coordinates are then
// quantized with the requested scale and an offset centered on the data.
type ScanReader struct {
	name   string
	source recordSource
	header *data.Header
	point  *data.Point
	pCount uint64
}

const defaultTextScale = 0.01

func newScanReader(name string, source recordSource, header *data.Header, opts ReaderOptions) (*ScanReader, error) {
	scratch := header.NewPoint()
	bounds := data.NewEmptyBoundingBox()
	for {
		scratch.Zero()
		c, err := source.next(scratch)
		if err == io.EOF {
			break
		}
		if err != nil {
			source.close()
			return nil, err
		}
		bounds.Add(c[0], c[1], c[2])
		header.ExtendedNumberOfPointRecords++
		if r := scratch.GetReturnNumber(); r >= 1 && r <= 15 {
			header.ExtendedNumberOfPointsByReturn[r-1]++
		}
	}

	for axis := 0; axis < 3; axis++ {
		scale := opts.Scale[axis]
		if scale == 0 {
			scale = defaultTextScale
		}
		offset := opts.Offset[axis]
		if offset == 0 && !bounds.IsEmpty() {
			center := (bounds.Min(axis) + bounds.Max(axis)) / 2
			offset = float64(data.I64Quantize(center/scale/1e7)) * 1e7 * scale
		}
		header.Scale[axis] = scale
		header.Offset[axis] = offset
		if !bounds.IsEmpty() && !header.Fits(axis, bounds.Min(axis), bounds.Max(axis)) {
			source.close()
			return nil, errors.Errorf("'%s' spans [%g, %g] on axis %d which scale %g cannot represent", name, bounds.Min(axis), bounds.Max(axis), axis, scale)
		}
	}
	if bounds.IsEmpty() {
		header.Bounds = data.BoundingBox{}
	} else {
		header.Bounds = bounds
	}
	setLegacyCounters(header)
	if err := source.rewind(); err != nil {
		source.close()
		return nil, errors.Wrapf(err, "rewinding '%s'", name)
	}
	glog.V(2).Infof("scanned '%s': %d points", name, header.ExtendedNumberOfPointRecords)

	return &ScanReader{
		name:   name,
		source: source,
		header: header,
		point:  header.NewPoint(),
	}, nil
}

// builds the header shared by the text formats
func newScanHeader(format uint8, attributes []data.AttributeDescriptor) *data.Header {
	h := data.NewHeader()
	h.PointDataFormat = format
	if format >= 6 {
		h.VersionMinor = 4
		h.HeaderSize = LasHeaderSize(4)
		h.OffsetToPointData = uint32(h.HeaderSize)
	}
	h.Attributes = attributes
	h.PointDataRecordLength = data.PointFormatLength[format] + uint16(h.AttributesSize())
	h.GeneratingSoftware = "las_merger"
	return h
}

func (r *ScanReader) GetHeader() *data.Header {
	return r.header
}

func (r *ScanReader) GetPoint() *data.Point {
	return r.point
}

func (r *ScanReader) GetPCount() uint64 {
	return r.pCount
}

func (r *ScanReader) ReadPoint() error {
	if r.source == nil {
		return ErrNotOpen
	}
	r.point.Zero()
	c, err := r.source.next(r.point)
	if err != nil {
		return err
	}
	if !r.point.SetX(c[0]) || !r.point.SetY(c[1]) || !r.point.SetZ(c[2]) {
		return errors.Errorf("point %d of '%s' does not fit its coordinate frame", r.pCount, r.name)
	}
	r.pCount++
	return nil
}

// Seek rewinds and skips records, text formats cannot jump
func (r *ScanReader) Seek(index uint64) error {
	if r.source == nil {
		return ErrNotOpen
	}
	if index < r.pCount {
		if err := r.source.rewind(); err != nil {
			return errors.Wrapf(err, "rewinding '%s'", r.name)
		}
		r.pCount = 0
	}
	for r.pCount < index {
		if _, err := r.source.next(r.point); err != nil {
			if err == io.EOF {
				return errors.Errorf("'%s' has no point %d", r.name, index)
			}
			return err
		}
		r.pCount++
	}
	return nil
}

func (r *ScanReader) Close() error {
	if r.source == nil {
		return nil
	}
	err := r.source.close()
	r.source = nil
	return err
}

// value parsed from text, NaN and infinities are rejected
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

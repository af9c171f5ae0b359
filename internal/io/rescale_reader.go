package io

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

// RescaleReader delivers the points of an inner reader in another coordinate frame. A nil
// scale or offset keeps the inner reader's. Coordinates that do not fit the new frame are
// clamped to the 32 bit raw range and counted.
type RescaleReader struct {
	inner     Reader
	header    *data.Header
	point     *data.Point
	overflows uint64
}

func NewRescaleReader(inner Reader, scale *[3]float64, offset *[3]float64) *RescaleReader {
	h := inner.GetHeader().Clone()
	if scale != nil {
		h.Scale = *scale
	}
	if offset != nil {
		h.Offset = *offset
	}
	return &RescaleReader{
		inner:  inner,
		header: h,
		point:  h.NewPoint(),
	}
}

func (r *RescaleReader) GetHeader() *data.Header {
	return r.header
}

func (r *RescaleReader) GetPoint() *data.Point {
	return r.point
}

func (r *RescaleReader) GetPCount() uint64 {
	return r.inner.GetPCount()
}

func (r *RescaleReader) ReadPoint() error {
	if err := r.inner.ReadPoint(); err != nil {
		return err
	}
	src := r.inner.GetPoint()
	r.point.CopyFrom(src)
	x, y, z := src.GetX(), src.GetY(), src.GetZ()
	q := &r.header.Quantizer
	r.point.Quantizer = q
	r.point.X = r.clamp(q.QuantizeX(x))
	r.point.Y = r.clamp(q.QuantizeY(y))
	r.point.Z = r.clamp(q.QuantizeZ(z))
	return nil
}

func (r *RescaleReader) clamp(raw int64) int32 {
	if !data.FitsInt32(raw) {
		r.overflows++
		return data.I32Clamp(float64(raw))
	}
	return int32(raw)
}

// Number of coordinates clamped so far
func (r *RescaleReader) GetOverflowCount() uint64 {
	return r.overflows
}

func (r *RescaleReader) Seek(index uint64) error {
	s, ok := r.inner.(Seeker)
	if !ok {
		return errors.New("inner reader cannot seek")
	}
	return s.Seek(index)
}

func (r *RescaleReader) Close() error {
	if r.overflows > 0 {
		glog.Warningf("%d coordinates did not fit scale %v and offset %v and were clamped", r.overflows, r.header.Scale, r.header.Offset)
	}
	return r.inner.Close()
}

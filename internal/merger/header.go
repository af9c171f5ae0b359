package merger

import (
	"math"

	"github.com/golang/glog"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Consistency issues found while folding the source headers. None of them stops the merge.
type Warnings struct {
	Rescale                   bool // sources disagree on scale factors or the box forced a new scale
	Reoffset                  bool // sources disagree on offsets or the box forced a new offset
	PointTypeChange           bool
	PointSizeChange           bool
	AdditionalAttributeChange bool
	TilingChange              bool
	TooManyPoints             bool // more than 2^32 points for a version that cannot store them
}

// Accumulates the headers of the sources into the merged header
type headerFolder struct {
	header      *data.Header
	npoints     uint64
	finest      [3]float64
	flightlines bool // zero the merged file source ID
	keepTiling  bool
	warnings    Warnings
}

// Extended counters are the reference, they are filled from the classic ones when a
// source does not carry them
func extendedCounters(h *data.Header) (uint64, [15]uint64) {
	count := h.ExtendedNumberOfPointRecords
	byReturn := h.ExtendedNumberOfPointsByReturn
	if h.NumberOfPointRecords != 0 {
		count = uint64(h.NumberOfPointRecords)
	}
	for i := range h.NumberOfPointsByReturn {
		if h.NumberOfPointsByReturn[i] != 0 {
			byReturn[i] = uint64(h.NumberOfPointsByReturn[i])
		}
	}
	return count, byReturn
}

func (f *headerFolder) fold(src *data.Header) {
	if f.header == nil {
		f.first(src)
		return
	}
	count := src.PointCount()
	if count == 0 {
		return
	}

	f.npoints += count
	if f.npoints == count {
		f.adoptCounters(src)
	} else {
		f.addCounters(src)
	}

	h := f.header
	for axis := 0; axis < 3; axis++ {
		if h.Scale[axis] != src.Scale[axis] {
			f.warnings.Rescale = true
		}
		if h.Offset[axis] != src.Offset[axis] {
			f.warnings.Reoffset = true
		}
		f.finest[axis] = math.Min(f.finest[axis], src.Scale[axis])
	}

	if h.PointDataFormat != src.PointDataFormat {
		if !f.warnings.PointTypeChange {
			glog.Warningf("merging point data format %d with %d", h.PointDataFormat, src.PointDataFormat)
		}
		f.warnings.PointTypeChange = true
	}
	if h.PointDataRecordLength != src.PointDataRecordLength {
		if !f.warnings.PointSizeChange {
			glog.Warningf("merging point records of %d bytes with %d bytes", h.PointDataRecordLength, src.PointDataRecordLength)
		}
		f.warnings.PointSizeChange = true
	}
	if !h.AttributesEqual(src) {
		if !f.warnings.AdditionalAttributeChange {
			glog.Warningf("merging sources with different additional attributes")
		}
		f.warnings.AdditionalAttributeChange = true
	}
	if f.keepTiling && h.Tiling != nil && !sameTiling(h.Tiling, src.Tiling) {
		if !f.warnings.TilingChange {
			glog.Warningf("merging tiles of different levels or buffering, tiling record may be wrong")
		}
		f.warnings.TilingChange = true
	}
}

func sameTiling(a, b *data.Tiling) bool {
	if b == nil {
		return false
	}
	return a.Level == b.Level && a.Buffer == b.Buffer
}

func (f *headerFolder) first(src *data.Header) {
	h := src.Clone()
	h.ExtendedNumberOfPointRecords, h.ExtendedNumberOfPointsByReturn = extendedCounters(src)
	if h.Tiling != nil {
		if h.Tiling.Buffer {
			glog.Warningf("first source is a buffered tile, merged header keeps its buffer")
		}
		if !f.keepTiling {
			h.Tiling = nil
		}
	} else if f.keepTiling {
		glog.Warningf("tiling requested to be kept but first source is not a tile")
	}
	if f.flightlines {
		h.FileSourceID = 0
	}
	if h.PointCount() == 0 {
		h.Bounds = data.NewEmptyBoundingBox()
	}
	f.header = h
	f.npoints = src.PointCount()
	f.finest = h.Scale
}

// A source bringing the first points of the merge dictates the counters, box and frame
func (f *headerFolder) adoptCounters(src *data.Header) {
	h := f.header
	h.NumberOfPointRecords = src.NumberOfPointRecords
	h.NumberOfPointsByReturn = src.NumberOfPointsByReturn
	h.ExtendedNumberOfPointRecords, h.ExtendedNumberOfPointsByReturn = extendedCounters(src)
	h.Bounds = src.Bounds
	h.Scale = src.Scale
	h.Offset = src.Offset
	f.finest = src.Scale
}

// Classic counters keep the wrap around semantics of their 32 bit fields
func (f *headerFolder) addCounters(src *data.Header) {
	h := f.header
	h.NumberOfPointRecords += src.NumberOfPointRecords
	for i := range h.NumberOfPointsByReturn {
		h.NumberOfPointsByReturn[i] += src.NumberOfPointsByReturn[i]
	}
	count, byReturn := extendedCounters(src)
	h.ExtendedNumberOfPointRecords += count
	for i := range h.ExtendedNumberOfPointsByReturn {
		if i >= 5 && src.VersionMinor < 4 {
			break
		}
		h.ExtendedNumberOfPointsByReturn[i] += byReturn[i]
	}
	h.Bounds.Union(src.Bounds)
}

// Adds points counted while streaming a source whose header did not know them
func (f *headerFolder) foldTrailing(count uint64, byReturn [15]uint64, bounds data.BoundingBox, into *data.BoundingBox) {
	h := f.header
	f.npoints += count
	h.ExtendedNumberOfPointRecords += count
	for i := range byReturn {
		h.ExtendedNumberOfPointsByReturn[i] += byReturn[i]
	}
	if h.PointDataFormat < 6 && h.ExtendedNumberOfPointRecords <= math.MaxUint32 {
		h.NumberOfPointRecords = uint32(h.ExtendedNumberOfPointRecords)
		for i := range h.NumberOfPointsByReturn {
			h.NumberOfPointsByReturn[i] = uint32(h.ExtendedNumberOfPointsByReturn[i])
		}
	}
	into.Union(bounds)
}

// Warns about, or fixes, point counts the merged LAS version cannot store
func (f *headerFolder) checkCount(autoUpgrade bool) {
	h := f.header
	if f.npoints <= math.MaxUint32 || h.VersionMinor >= 4 {
		return
	}
	if !autoUpgrade {
		glog.Warningf("merging %d points, LAS 1.%d cannot store more than %d", f.npoints, h.VersionMinor, uint32(math.MaxUint32))
		f.warnings.TooManyPoints = true
		return
	}
	glog.Warningf("merging %d points, upgrading LAS 1.%d to 1.4", f.npoints, h.VersionMinor)
	if h.VersionMinor == 3 {
		h.HeaderSize += 140
		h.OffsetToPointData += 140
	} else {
		h.HeaderSize += 148
		h.OffsetToPointData += 148
	}
	h.VersionMinor = 4
}

// Resolves the merged frame. Without a request disagreeing sources get the finest scale and
// an offset centered on the box, a request overrides that.
func (f *headerFolder) resolveFrame(scale [3]float64, offset *[3]float64) {
	h := f.header
	bounds := h.Bounds
	if f.warnings.Rescale && scale == [3]float64{} {
		h.Scale = f.finest
	}
	if f.warnings.Reoffset && offset == nil && !bounds.IsEmpty() {
		for axis := 0; axis < 3; axis++ {
			h.Offset[axis] = float64(data.I64Quantize((bounds.Min(axis) + bounds.Max(axis)) / 2))
		}
	}
	for axis := 0; axis < 3; axis++ {
		if scale[axis] != 0 && scale[axis] != h.Scale[axis] {
			h.Scale[axis] = scale[axis]
			f.warnings.Rescale = true
		}
	}
	if offset != nil && *offset != h.Offset {
		h.Offset = *offset
		f.warnings.Reoffset = true
	}
	if !bounds.IsEmpty() {
		f.fit()
	}
}

// Grows the scale by powers of ten, then moves the offset, until the box fits 32 bit raw
// coordinates on every axis
func (f *headerFolder) fit() {
	h := f.header
	names := [3]string{"x", "y", "z"}
	for axis := 0; axis < 3; axis++ {
		min, max := h.Bounds.Min(axis), h.Bounds.Max(axis)
		if h.Fits(axis, min, max) {
			continue
		}
		center := float64(data.I64Quantize((min + max) / 2))
		scale := h.Scale[axis]
		probe := data.Quantizer{}
		probe.Scale[axis], probe.Offset[axis] = scale, center
		for !probe.Fits(axis, min, max) {
			scale *= 10
			probe.Scale[axis] = scale
		}
		if scale != h.Scale[axis] {
			glog.Warningf("%s scale %g too small for [%g, %g], using %g", names[axis], h.Scale[axis], min, max, scale)
			h.Scale[axis] = scale
			f.warnings.Rescale = true
		}
		if !h.Fits(axis, min, max) {
			glog.Warningf("%s offset %g does not fit [%g, %g], using %g", names[axis], h.Offset[axis], min, max, center)
			h.Offset[axis] = center
			f.warnings.Reoffset = true
		}
	}
}

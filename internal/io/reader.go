package io

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

var ErrNotOpen = errors.New("reader is not open")

// Reader streams the points of one source. ReadPoint advances to the next point and
// returns io.EOF at the end of the stream, the current point stays valid until the next
// call.
type Reader interface {
	GetHeader() *data.Header
	ReadPoint() error
	GetPoint() *data.Point
	// Number of points delivered so far
	GetPCount() uint64
	Close() error
}

// Seeker is implemented by readers that can jump to a point index
type Seeker interface {
	Seek(index uint64) error
}

// Inclusive range of point indices
type Interval struct {
	Start uint64
	End   uint64
}

// SpatialIndex lists the point index ranges of a source whose cells may hold points of a
// region. Intervals are sorted and disjoint.
type SpatialIndex interface {
	Intervals(minX, minY, maxX, maxY float64) []Interval
}

// Options of the per-format readers
type ReaderOptions struct {
	// TXT column layout, see TxtReader
	ParseString string
	// Scale and offset of the raw coordinates of text formats, zero components are
	// chosen automatically
	Scale  [3]float64
	Offset [3]float64
	// Number of leading lines of a TXT file to ignore
	SkipLines int
	// Applied to the intensity and scan angle of text formats while reading
	ScaleIntensity     float32
	TranslateIntensity float32
	ScaleScanAngle     float32
	TranslateScanAngle float32
}

func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		ParseString:    "xyz",
		ScaleIntensity: 1,
		ScaleScanAngle: 1,
	}
}

// Opens a point stream over the named source
func Open(name string, format Format, opts ReaderOptions) (Reader, error) {
	var (
		r   Reader
		err error
	)
	switch format {
	case FormatLAS:
		var lr *LasReader
		if lr, err = OpenLasReader(name); err == nil {
			r = lr
		}
	case FormatTXT:
		var sr *ScanReader
		if sr, err = OpenTxtReader(name, opts); err == nil {
			r = sr
		}
	case FormatPLY:
		var sr *ScanReader
		if sr, err = OpenPlyReader(name, opts); err == nil {
			r = sr
		}
	default:
		err = errors.Wrapf(ErrUnknownFormat, "'%s'", name)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ReadHeader returns the header of a source without streaming its points. LAS headers are
// read as they are, text formats are scanned once to know their bounds and counts.
func ReadHeader(name string, format Format, opts ReaderOptions) (*data.Header, error) {
	if format == FormatLAS {
		return ReadLasHeader(name)
	}
	r, err := Open(name, format, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.GetHeader().Clone(), nil
}

// Counts the points left in r, used by tests and the inspector
func Drain(r Reader) (uint64, error) {
	var n uint64
	for {
		err := r.ReadPoint()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

package io

import (
	"bufio"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Streams the point records of an uncompressed LAS file
type LasReader struct {
	name    string
	file    *os.File
	reader  *bufio.Reader
	header  *data.Header
	point   *data.Point
	record  []byte
	pCount  uint64
	nPoints uint64
}

func OpenLasReader(name string) (*LasReader, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening '%s'", name)
	}
	h, err := decodeLasHeader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "reading header of '%s'", name)
	}
	required := int(data.PointFormatLength[h.PointDataFormat]) + h.AttributesSize()
	if int(h.PointDataRecordLength) < required {
		file.Close()
		return nil, errors.Errorf("'%s' has point records of %d bytes but format %d needs %d", name, h.PointDataRecordLength, h.PointDataFormat, required)
	}

	r := &LasReader{
		name:    name,
		file:    file,
		header:  h,
		point:   h.NewPoint(),
		record:  make([]byte, h.PointDataRecordLength),
		nPoints: h.PointCount(),
	}
	if info, err := file.Stat(); err == nil {
		// streaming writers leave the counters at zero, trust the file size then
		available := uint64(info.Size()-int64(h.OffsetToPointData)) / uint64(h.PointDataRecordLength)
		if r.nPoints == 0 || r.nPoints > available {
			if r.nPoints > available {
				glog.Warningf("'%s' announces %d points but holds %d", name, r.nPoints, available)
			}
			r.nPoints = available
		}
	}
	if err := r.Seek(0); err != nil {
		file.Close()
		return nil, err
	}
	glog.V(2).Infof("opened '%s' with %d points of format %d", name, r.nPoints, h.PointDataFormat)
	return r, nil
}

func (r *LasReader) GetHeader() *data.Header {
	return r.header
}

func (r *LasReader) GetPoint() *data.Point {
	return r.point
}

func (r *LasReader) GetPCount() uint64 {
	return r.pCount
}

// Number of point records in the file
func (r *LasReader) GetNPoints() uint64 {
	return r.nPoints
}

func (r *LasReader) ReadPoint() error {
	if r.file == nil {
		return ErrNotOpen
	}
	if r.pCount >= r.nPoints {
		return io.EOF
	}
	if _, err := io.ReadFull(r.reader, r.record); err != nil {
		return errors.Wrapf(err, "reading point %d of '%s'", r.pCount, r.name)
	}
	decodePoint(r.record, r.header.PointDataFormat, r.header.Attributes, r.point)
	r.pCount++
	return nil
}

// Seek positions the stream before the point with the given index
func (r *LasReader) Seek(index uint64) error {
	if r.file == nil {
		return ErrNotOpen
	}
	offset := int64(r.header.OffsetToPointData) + int64(index)*int64(r.header.PointDataRecordLength)
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seeking point %d of '%s'", index, r.name)
	}
	r.reader = bufio.NewReaderSize(r.file, 1<<16)
	r.pCount = index
	return nil
}

func (r *LasReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

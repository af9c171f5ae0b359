package io

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Writes points into a LAS file. The counters and bounds of the header are computed from
// the written points and stored when the writer is closed.
type LasWriter struct {
	name    string
	file    *os.File
	writer  *bufio.Writer
	header  *data.Header
	record  []byte
	scratch *data.Point
	bounds  data.BoundingBox
}

func CreateLasWriter(name string, header *data.Header) (*LasWriter, error) {
	h := header.Clone()
	required := data.PointFormatLength[h.PointDataFormat] + uint16(h.AttributesSize())
	if h.PointDataRecordLength < required {
		h.PointDataRecordLength = required
	}
	h.NumberOfPointRecords = 0
	h.NumberOfPointsByReturn = [5]uint32{}
	h.ExtendedNumberOfPointRecords = 0
	h.ExtendedNumberOfPointsByReturn = [15]uint64{}

	file, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "creating '%s'", name)
	}
	w := &LasWriter{
		name:    name,
		file:    file,
		writer:  bufio.NewWriterSize(file, 1<<16),
		header:  h,
		record:  make([]byte, h.PointDataRecordLength),
		scratch: h.NewPoint(),
		bounds:  data.NewEmptyBoundingBox(),
	}
	if err := encodeLasHeader(w.writer, h); err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "writing header of '%s'", name)
	}
	return w, nil
}

func (w *LasWriter) GetHeader() *data.Header {
	return w.header
}

// WritePoint stores p, points of another coordinate frame are moved into the header's frame
func (w *LasWriter) WritePoint(p *data.Point) error {
	if p.Quantizer != nil && !p.Quantizer.Equal(&w.header.Quantizer) {
		w.scratch.CopyFrom(p)
		if !w.scratch.Requantize(&w.header.Quantizer) {
			return errors.Errorf("point %d does not fit the coordinate frame of '%s'", w.header.ExtendedNumberOfPointRecords, w.name)
		}
		p = w.scratch
	}
	for i := range w.record {
		w.record[i] = 0
	}
	encodePoint(w.record, w.header.PointDataFormat, w.header.Attributes, p)
	if _, err := w.writer.Write(w.record); err != nil {
		return errors.Wrapf(err, "writing '%s'", w.name)
	}

	q := &w.header.Quantizer
	w.bounds.Add(q.GetX(p.X), q.GetY(p.Y), q.GetZ(p.Z))
	w.header.ExtendedNumberOfPointRecords++
	if r := p.GetReturnNumber(); r >= 1 && r <= 15 {
		w.header.ExtendedNumberOfPointsByReturn[r-1]++
	}
	return nil
}

// Close stores the final header and closes the file
func (w *LasWriter) Close() error {
	if w.file == nil {
		return nil
	}
	defer func() { w.file = nil }()
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "writing '%s'", w.name)
	}
	if w.header.ExtendedNumberOfPointRecords > 0 {
		w.header.Bounds = w.bounds
	} else {
		w.header.Bounds = data.BoundingBox{}
	}
	setLegacyCounters(w.header)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "rewinding '%s'", w.name)
	}
	hw := bufio.NewWriter(w.file)
	if err := encodeLasHeader(hw, w.header); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "writing header of '%s'", w.name)
	}
	if err := hw.Flush(); err != nil {
		w.file.Close()
		return errors.Wrapf(err, "writing header of '%s'", w.name)
	}
	return errors.Wrapf(w.file.Close(), "closing '%s'", w.name)
}

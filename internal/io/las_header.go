package io

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

const (
	lasSignature   = "LASF"
	vlrHeaderSize  = 54
	extraBytesSize = 192
	tilingSize     = 28

	extraBytesUserID   = "LASF_Spec"
	extraBytesRecordID = 4
	tilingUserID       = "LAStools"
	tilingRecordID     = 10

	tilingBuffer     = 0x80000000
	tilingReversible = 0x40000000
)

// Size of the public header block of a LAS version
func LasHeaderSize(minor uint8) uint16 {
	switch {
	case minor >= 4:
		return 375
	case minor == 3:
		return 235
	}
	return 227
}

// Fixed size public header block fields as stored on disk
type lasPublicHeader struct {
	Signature          [4]byte
	FileSourceID       uint16
	GlobalEncoding     uint16
	ProjectID          [16]byte
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   [32]byte
	GeneratingSoftware [32]byte
	FileCreationDay    uint16
	FileCreationYear   uint16
	HeaderSize         uint16
	OffsetToPointData  uint32
	NumberOfVLRs       uint32
	PointDataFormat    uint8
	PointRecordLength  uint16
	NumberOfPoints     uint32
	PointsByReturn     [5]uint32
	Scale              [3]float64
	Offset             [3]float64
	MaxX, MinX         float64
	MaxY, MinY         float64
	MaxZ, MinZ         float64
}

// Fields appended by LAS 1.3 and 1.4
type lasExtendedHeader struct {
	StartOfWaveformData    uint64
	StartOfFirstEVLR       uint64
	NumberOfEVLRs          uint32
	ExtendedNumberOfPoints uint64
	ExtendedPointsByReturn [15]uint64
}

type vlrHeader struct {
	Reserved    uint16
	UserID      [16]byte
	RecordID    uint16
	Length      uint16
	Description [32]byte
}

type extraBytesDescriptor struct {
	Reserved    [2]byte
	DataType    uint8
	Options     uint8
	Name        [32]byte
	Unused      [4]byte
	NoData      [3]float64
	Min         [3]float64
	Max         [3]float64
	Scale       [3]float64
	Offset      [3]float64
	Description [32]byte
}

type tilingRecord struct {
	Level          uint32
	LevelIndex     uint32
	ImplicitLevels uint32
	MinX, MaxX     float32
	MinY, MaxY     float32
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

func putCString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// ReadLasHeader reads the header and variable length records of a LAS file
func ReadLasHeader(name string) (*data.Header, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening '%s'", name)
	}
	defer file.Close()
	h, err := decodeLasHeader(bufio.NewReader(file))
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of '%s'", name)
	}
	return h, nil
}

func decodeLasHeader(r io.Reader) (*data.Header, error) {
	var pub lasPublicHeader
	if err := binary.Read(r, binary.LittleEndian, &pub); err != nil {
		return nil, err
	}
	if string(pub.Signature[:]) != lasSignature {
		return nil, errors.New("missing LASF signature")
	}
	if pub.PointDataFormat >= uint8(len(data.PointFormatLength)) {
		return nil, errors.Errorf("unsupported point data format %d", pub.PointDataFormat)
	}

	h := &data.Header{
		FileSourceID:           pub.FileSourceID,
		GlobalEncoding:         pub.GlobalEncoding,
		VersionMajor:           pub.VersionMajor,
		VersionMinor:           pub.VersionMinor,
		SystemIdentifier:       cString(pub.SystemIdentifier[:]),
		GeneratingSoftware:     cString(pub.GeneratingSoftware[:]),
		FileCreationDay:        pub.FileCreationDay,
		FileCreationYear:       pub.FileCreationYear,
		HeaderSize:             pub.HeaderSize,
		OffsetToPointData:      pub.OffsetToPointData,
		PointDataFormat:        pub.PointDataFormat,
		PointDataRecordLength:  pub.PointRecordLength,
		NumberOfPointRecords:   pub.NumberOfPoints,
		NumberOfPointsByReturn: pub.PointsByReturn,
		Quantizer:              data.Quantizer{Scale: pub.Scale, Offset: pub.Offset},
		Bounds: data.BoundingBox{
			MinX: pub.MinX, MinY: pub.MinY, MinZ: pub.MinZ,
			MaxX: pub.MaxX, MaxY: pub.MaxY, MaxZ: pub.MaxZ,
		},
	}
	read := uint32(binary.Size(pub))

	if pub.HeaderSize >= 235 {
		var ext lasExtendedHeader
		n := binary.Size(ext)
		if pub.HeaderSize < 375 {
			n = 8
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		padded := make([]byte, binary.Size(ext))
		copy(padded, buf)
		if err := binary.Read(bytes.NewReader(padded), binary.LittleEndian, &ext); err != nil {
			return nil, err
		}
		h.ExtendedNumberOfPointRecords = ext.ExtendedNumberOfPoints
		h.ExtendedNumberOfPointsByReturn = ext.ExtendedPointsByReturn
		read += uint32(n)
	}
	if h.ExtendedNumberOfPointRecords == 0 {
		h.ExtendedNumberOfPointRecords = uint64(h.NumberOfPointRecords)
		for i, n := range h.NumberOfPointsByReturn {
			h.ExtendedNumberOfPointsByReturn[i] = uint64(n)
		}
	}
	if skip := int64(pub.HeaderSize) - int64(read); skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, err
		}
		read += uint32(skip)
	}

	for i := uint32(0); i < pub.NumberOfVLRs; i++ {
		var vh vlrHeader
		if err := binary.Read(r, binary.LittleEndian, &vh); err != nil {
			return nil, errors.Wrapf(err, "reading variable length record %d", i)
		}
		payload := make([]byte, vh.Length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrapf(err, "reading variable length record %d", i)
		}
		read += vlrHeaderSize + uint32(vh.Length)
		if err := decodeRecord(h, vh, payload); err != nil {
			return nil, err
		}
	}
	if read > h.OffsetToPointData {
		return nil, errors.Errorf("offset to point data %d is inside the header", h.OffsetToPointData)
	}
	return h, nil
}

func decodeRecord(h *data.Header, vh vlrHeader, payload []byte) error {
	userID := cString(vh.UserID[:])
	switch {
	case userID == extraBytesUserID && vh.RecordID == extraBytesRecordID:
		for off := 0; off+extraBytesSize <= len(payload); off += extraBytesSize {
			var d extraBytesDescriptor
			if err := binary.Read(bytes.NewReader(payload[off:off+extraBytesSize]), binary.LittleEndian, &d); err != nil {
				return err
			}
			if d.DataType == 0 || d.DataType > data.AttributeDouble {
				return errors.Errorf("unsupported extra bytes data type %d", d.DataType)
			}
			a := data.AttributeDescriptor{DataType: d.DataType, Name: cString(d.Name[:]), Description: cString(d.Description[:])}
			if d.Options&0x08 != 0 {
				a.Scale = d.Scale[0]
			}
			if d.Options&0x10 != 0 {
				a.Offset = d.Offset[0]
			}
			h.Attributes = append(h.Attributes, a)
		}
	case userID == tilingUserID && vh.RecordID == tilingRecordID && len(payload) == tilingSize:
		var t tilingRecord
		if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &t); err != nil {
			return err
		}
		h.Tiling = &data.Tiling{
			Level:          t.Level,
			LevelIndex:     t.LevelIndex,
			ImplicitLevels: t.ImplicitLevels &^ (tilingBuffer | tilingReversible),
			Buffer:         t.ImplicitLevels&tilingBuffer != 0,
			Reversible:     t.ImplicitLevels&tilingReversible != 0,
			MinX:           t.MinX, MaxX: t.MaxX, MinY: t.MinY, MaxY: t.MaxY,
		}
	default:
		h.Records = append(h.Records, data.VariableLengthRecord{
			UserID:      userID,
			RecordID:    vh.RecordID,
			Description: cString(vh.Description[:]),
			Data:        payload,
		})
	}
	return nil
}

// Serializes the header and its records, the header size and offset to point data of h are
// updated to the written layout
func encodeLasHeader(w io.Writer, h *data.Header) error {
	type record struct {
		header  vlrHeader
		payload []byte
	}
	var records []record
	for _, r := range h.Records {
		var vh vlrHeader
		putCString(vh.UserID[:], r.UserID)
		putCString(vh.Description[:], r.Description)
		vh.RecordID = r.RecordID
		vh.Length = uint16(len(r.Data))
		records = append(records, record{vh, r.Data})
	}
	if len(h.Attributes) > 0 {
		var buf bytes.Buffer
		for _, a := range h.Attributes {
			var d extraBytesDescriptor
			d.DataType = a.DataType
			putCString(d.Name[:], a.Name)
			putCString(d.Description[:], a.Description)
			if a.Scale != 0 {
				d.Options |= 0x08
				d.Scale[0] = a.Scale
			}
			if a.Offset != 0 {
				d.Options |= 0x10
				d.Offset[0] = a.Offset
			}
			if err := binary.Write(&buf, binary.LittleEndian, &d); err != nil {
				return err
			}
		}
		var vh vlrHeader
		putCString(vh.UserID[:], extraBytesUserID)
		putCString(vh.Description[:], "extra bytes")
		vh.RecordID = extraBytesRecordID
		vh.Length = uint16(buf.Len())
		records = append(records, record{vh, buf.Bytes()})
	}
	if t := h.Tiling; t != nil {
		implicit := t.ImplicitLevels
		if t.Buffer {
			implicit |= tilingBuffer
		}
		if t.Reversible {
			implicit |= tilingReversible
		}
		var buf bytes.Buffer
		tr := tilingRecord{Level: t.Level, LevelIndex: t.LevelIndex, ImplicitLevels: implicit,
			MinX: t.MinX, MaxX: t.MaxX, MinY: t.MinY, MaxY: t.MaxY}
		if err := binary.Write(&buf, binary.LittleEndian, &tr); err != nil {
			return err
		}
		var vh vlrHeader
		putCString(vh.UserID[:], tilingUserID)
		putCString(vh.Description[:], "tile of a quadtree")
		vh.RecordID = tilingRecordID
		vh.Length = tilingSize
		records = append(records, record{vh, buf.Bytes()})
	}

	h.HeaderSize = LasHeaderSize(h.VersionMinor)
	h.OffsetToPointData = uint32(h.HeaderSize)
	for _, r := range records {
		h.OffsetToPointData += vlrHeaderSize + uint32(len(r.payload))
	}

	pub := lasPublicHeader{
		FileSourceID:      h.FileSourceID,
		GlobalEncoding:    h.GlobalEncoding,
		VersionMajor:      h.VersionMajor,
		VersionMinor:      h.VersionMinor,
		FileCreationDay:   h.FileCreationDay,
		FileCreationYear:  h.FileCreationYear,
		HeaderSize:        h.HeaderSize,
		OffsetToPointData: h.OffsetToPointData,
		NumberOfVLRs:      uint32(len(records)),
		PointDataFormat:   h.PointDataFormat,
		PointRecordLength: h.PointDataRecordLength,
		NumberOfPoints:    h.NumberOfPointRecords,
		PointsByReturn:    h.NumberOfPointsByReturn,
		Scale:             h.Scale,
		Offset:            h.Offset,
		MaxX:              h.Bounds.MaxX,
		MinX:              h.Bounds.MinX,
		MaxY:              h.Bounds.MaxY,
		MinY:              h.Bounds.MinY,
		MaxZ:              h.Bounds.MaxZ,
		MinZ:              h.Bounds.MinZ,
	}
	copy(pub.Signature[:], lasSignature)
	putCString(pub.SystemIdentifier[:], h.SystemIdentifier)
	putCString(pub.GeneratingSoftware[:], h.GeneratingSoftware)
	if err := binary.Write(w, binary.LittleEndian, &pub); err != nil {
		return err
	}

	if h.HeaderSize >= 235 {
		ext := lasExtendedHeader{
			ExtendedNumberOfPoints: h.ExtendedNumberOfPointRecords,
			ExtendedPointsByReturn: h.ExtendedNumberOfPointsByReturn,
		}
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, &ext); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()[:h.HeaderSize-uint16(binary.Size(pub))]); err != nil {
			return err
		}
	}

	for _, r := range records {
		if err := binary.Write(w, binary.LittleEndian, &r.header); err != nil {
			return err
		}
		if _, err := w.Write(r.payload); err != nil {
			return err
		}
	}
	return nil
}

// Legacy 32 bit counters are only valid for point formats below 6 and counts that fit
func setLegacyCounters(h *data.Header) {
	if h.PointDataFormat >= 6 || h.ExtendedNumberOfPointRecords > math.MaxUint32 {
		h.NumberOfPointRecords = 0
		h.NumberOfPointsByReturn = [5]uint32{}
		return
	}
	h.NumberOfPointRecords = uint32(h.ExtendedNumberOfPointRecords)
	for i := range h.NumberOfPointsByReturn {
		h.NumberOfPointsByReturn[i] = uint32(min(h.ExtendedNumberOfPointsByReturn[i], math.MaxUint32))
	}
}

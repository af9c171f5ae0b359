package data

import (
	"math"
)

// Base point record length in bytes for each LAS point data format, extra bytes excluded
var PointFormatLength = [...]uint16{20, 28, 26, 34, 57, 63, 30, 36, 38, 59, 67}

// Axis aligned box. The empty box has its minimums above its maximums so it never
// widens a union.
type BoundingBox struct {
	MinX float64
	MinY float64
	MinZ float64
	MaxX float64
	MaxY float64
	MaxZ float64
}

func NewEmptyBoundingBox() BoundingBox {
	return BoundingBox{
		MinX: math.MaxFloat64, MinY: math.MaxFloat64, MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64, MaxY: -math.MaxFloat64, MaxZ: -math.MaxFloat64,
	}
}

func (b BoundingBox) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

func (b *BoundingBox) Union(o BoundingBox) {
	b.MinX = math.Min(b.MinX, o.MinX)
	b.MinY = math.Min(b.MinY, o.MinY)
	b.MinZ = math.Min(b.MinZ, o.MinZ)
	b.MaxX = math.Max(b.MaxX, o.MaxX)
	b.MaxY = math.Max(b.MaxY, o.MaxY)
	b.MaxZ = math.Max(b.MaxZ, o.MaxZ)
}

func (b *BoundingBox) Add(x, y, z float64) {
	b.Union(BoundingBox{MinX: x, MinY: y, MinZ: z, MaxX: x, MaxY: y, MaxZ: z})
}

func (b BoundingBox) Min(axis int) float64 {
	return [3]float64{b.MinX, b.MinY, b.MinZ}[axis]
}

func (b BoundingBox) Max(axis int) float64 {
	return [3]float64{b.MaxX, b.MaxY, b.MaxZ}[axis]
}

// LAS extra bytes data types
const (
	AttributeUChar     uint8 = 1
	AttributeChar      uint8 = 2
	AttributeUShort    uint8 = 3
	AttributeShort     uint8 = 4
	AttributeULong     uint8 = 5
	AttributeLong      uint8 = 6
	AttributeULongLong uint8 = 7
	AttributeLongLong  uint8 = 8
	AttributeFloat     uint8 = 9
	AttributeDouble    uint8 = 10
)

var attributeSizes = [...]int{0, 1, 1, 2, 2, 4, 4, 8, 8, 4, 8}

// Describes one extra attribute stored after the standard point fields
type AttributeDescriptor struct {
	DataType    uint8
	Name        string
	Description string
	Scale       float64 // 0 means no scale
	Offset      float64
}

func (a AttributeDescriptor) Size() int {
	if int(a.DataType) < len(attributeSizes) {
		return attributeSizes[a.DataType]
	}
	return 0
}

// Tiling metadata of a LAS file that is one tile of a larger quadtree
type Tiling struct {
	Level          uint32
	LevelIndex     uint32
	ImplicitLevels uint32
	Buffer         bool
	Reversible     bool
	MinX           float32
	MaxX           float32
	MinY           float32
	MaxY           float32
}

// Variable length record carried unchanged from a source to the merged output, typically
// projection information
type VariableLengthRecord struct {
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
}

// Metadata of one point source, or of the merged stream
type Header struct {
	FileSourceID       uint16
	GlobalEncoding     uint16
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   string
	GeneratingSoftware string
	FileCreationDay    uint16
	FileCreationYear   uint16
	HeaderSize         uint16
	OffsetToPointData  uint32

	PointDataFormat       uint8
	PointDataRecordLength uint16

	NumberOfPointRecords           uint32
	NumberOfPointsByReturn         [5]uint32
	ExtendedNumberOfPointRecords   uint64
	ExtendedNumberOfPointsByReturn [15]uint64

	Quantizer
	Bounds BoundingBox

	Attributes []AttributeDescriptor
	Tiling     *Tiling
	Records    []VariableLengthRecord
}

func NewHeader() *Header {
	return &Header{
		VersionMajor:          1,
		VersionMinor:          2,
		HeaderSize:            227,
		OffsetToPointData:     227,
		PointDataRecordLength: PointFormatLength[0],
		Quantizer:             Quantizer{Scale: [3]float64{0.01, 0.01, 0.01}},
		Bounds:                NewEmptyBoundingBox(),
	}
}

// PointCount prefers the classic counter and falls back on the extended one
func (h *Header) PointCount() uint64 {
	if h.NumberOfPointRecords != 0 {
		return uint64(h.NumberOfPointRecords)
	}
	return h.ExtendedNumberOfPointRecords
}

func (h *Header) GetQuantizer() *Quantizer {
	return &h.Quantizer
}

// Size in bytes of the extra attributes of a point record
func (h *Header) AttributesSize() int {
	size := 0
	for _, a := range h.Attributes {
		size += a.Size()
	}
	return size
}

func (h *Header) AttributesEqual(o *Header) bool {
	if len(h.Attributes) != len(o.Attributes) {
		return false
	}
	for i := range h.Attributes {
		if h.Attributes[i] != o.Attributes[i] {
			return false
		}
	}
	return true
}

// Builds a point with the layout described by this header
func (h *Header) NewPoint() *Point {
	return NewPoint(h.PointDataFormat, &h.Quantizer, len(h.Attributes))
}

func (h *Header) Clone() *Header {
	c := *h
	c.Attributes = append([]AttributeDescriptor(nil), h.Attributes...)
	c.Records = make([]VariableLengthRecord, len(h.Records))
	for i, r := range h.Records {
		c.Records[i] = r
		c.Records[i].Data = append([]byte(nil), r.Data...)
	}
	if h.Tiling != nil {
		tiling := *h.Tiling
		c.Tiling = &tiling
	}
	return &c
}

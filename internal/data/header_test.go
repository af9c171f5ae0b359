package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBox_EmptyNeverWidens(t *testing.T) {
	t.Parallel()

	b := BoundingBox{MinX: 1, MinY: 2, MinZ: 3, MaxX: 4, MaxY: 5, MaxZ: 6}
	b.Union(NewEmptyBoundingBox())
	assert.Equal(t, BoundingBox{MinX: 1, MinY: 2, MinZ: 3, MaxX: 4, MaxY: 5, MaxZ: 6}, b)

	e := NewEmptyBoundingBox()
	assert.True(t, e.IsEmpty())
	e.Add(7, 8, 9)
	assert.False(t, e.IsEmpty())
	assert.Equal(t, 7.0, e.Min(0))
	assert.Equal(t, 9.0, e.Max(2))
}

func TestHeader_PointCount(t *testing.T) {
	t.Parallel()

	h := NewHeader()
	h.ExtendedNumberOfPointRecords = math.MaxUint32 + 10
	assert.Equal(t, uint64(math.MaxUint32+10), h.PointCount())

	h.NumberOfPointRecords = 5
	assert.Equal(t, uint64(5), h.PointCount())
}

func TestHeader_CloneAndAttributes(t *testing.T) {
	t.Parallel()

	h := NewHeader()
	h.Attributes = []AttributeDescriptor{{DataType: AttributeUShort, Name: "range"}, {DataType: AttributeDouble, Name: "height"}}
	h.Tiling = &Tiling{Level: 2}

	c := h.Clone()
	assert.True(t, h.AttributesEqual(c))
	assert.Equal(t, 10, c.AttributesSize())

	c.Attributes[0].Scale = 0.1
	c.Tiling.Level = 3
	assert.False(t, h.AttributesEqual(c))
	assert.Equal(t, uint32(2), h.Tiling.Level)

	p := h.NewPoint()
	assert.Len(t, p.Attributes, 2)
	assert.Same(t, &h.Quantizer, p.Quantizer)
}

func TestQuantizer_Fits(t *testing.T) {
	t.Parallel()

	q := NewQuantizer([3]float64{0.001, 0.001, 0.001}, [3]float64{})
	assert.True(t, q.Fits(0, -1000, 1000))
	assert.False(t, q.Fits(0, 0, 3e6))
	q.Offset[0] = 2e6
	assert.True(t, q.Fits(0, 0, 3e6))
}

func TestNumericClamps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0), U8Clamp(-3))
	assert.Equal(t, uint8(255), U8Clamp(300))
	assert.Equal(t, uint8(12), U8Clamp(12.9))
	assert.Equal(t, uint16(65535), U16Clamp(1e9))
	assert.Equal(t, int8(-128), I8Clamp(-500))
	assert.Equal(t, int32(3), I32Quantize(2.5))
	assert.Equal(t, int32(-3), I32Quantize(-2.5))
	assert.Equal(t, int64(-2), I64Quantize(-2.4))
	assert.Equal(t, uint16(0), U16Quantize(-1))
	assert.Equal(t, uint8(13), U8Quantize(12.5))
}

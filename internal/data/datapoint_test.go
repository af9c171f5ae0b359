package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoint(format uint8) *Point {
	q := NewQuantizer([3]float64{0.01, 0.01, 0.01}, [3]float64{1000, 2000, 0})
	return NewPoint(format, q, 2)
}

func TestPoint_SetCoordinates(t *testing.T) {
	t.Parallel()

	p := newTestPoint(1)
	require.True(t, p.SetX(1012.34))
	require.True(t, p.SetY(1999.99))
	require.True(t, p.SetZ(-5.5))

	assert.Equal(t, int32(1234), p.X)
	assert.Equal(t, int32(-1), p.Y)
	assert.Equal(t, int32(-550), p.Z)
	assert.InDelta(t, 1012.34, p.GetX(), 1e-9)
	assert.InDelta(t, -5.5, p.GetZ(), 1e-9)
}

func TestPoint_SetCoordinateOverflowKeepsRaw(t *testing.T) {
	t.Parallel()

	p := newTestPoint(0)
	p.X = 42
	ok := p.SetX(1000 + 0.01*float64(math.MaxInt32) + 1)
	assert.False(t, ok)
	assert.Equal(t, int32(42), p.X)

	assert.True(t, p.SetX(1000+0.01*float64(math.MaxInt32)))
	assert.Equal(t, int32(math.MaxInt32), p.X)
}

func TestPoint_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format                              uint8
		extended, gps, rgb, nir, wavepacket bool
	}{
		{0, false, false, false, false, false},
		{1, false, true, false, false, false},
		{2, false, false, true, false, false},
		{3, false, true, true, false, false},
		{5, false, true, true, false, true},
		{6, true, true, false, false, false},
		{8, true, true, true, true, false},
		{10, true, true, true, true, true},
	}
	for _, tt := range tests {
		p := newTestPoint(tt.format)
		assert.Equal(t, tt.extended, p.ExtendedPointType, "format %d", tt.format)
		assert.Equal(t, tt.gps, p.HasGPSTime, "format %d", tt.format)
		assert.Equal(t, tt.rgb, p.HasRGB, "format %d", tt.format)
		assert.Equal(t, tt.nir, p.HasNIR, "format %d", tt.format)
		assert.Equal(t, tt.wavepacket, p.HasWavepacket, "format %d", tt.format)
	}
}

func TestPoint_Classification(t *testing.T) {
	t.Parallel()

	p := newTestPoint(6)
	p.SetExtendedClassification(40)
	assert.Equal(t, uint8(0), p.Classification)
	assert.Equal(t, uint8(40), p.GetExtendedClassification())

	p.SetExtendedClassification(7)
	assert.Equal(t, uint8(7), p.GetClassification())

	p.SetClassification(33)
	assert.Equal(t, uint8(7), p.GetClassification(), "values above 31 are ignored")
}

func TestPoint_Returns(t *testing.T) {
	t.Parallel()

	legacy := newTestPoint(1)
	legacy.SetReturnNumber(9)
	legacy.SetNumberOfReturns(12)
	assert.Equal(t, uint8(7), legacy.GetReturnNumber())
	assert.Equal(t, uint8(7), legacy.GetNumberOfReturns())

	extended := newTestPoint(6)
	extended.SetExtendedReturnNumber(9)
	extended.SetExtendedNumberOfReturns(12)
	assert.Equal(t, uint8(9), extended.GetReturnNumber())
	assert.Equal(t, uint8(12), extended.GetNumberOfReturns())
	assert.Equal(t, uint8(7), extended.ReturnNumber)
}

func TestPoint_ScanAngle(t *testing.T) {
	t.Parallel()

	p := newTestPoint(6)
	p.SetScanAngle(-12.3)
	assert.Equal(t, int8(-12), p.ScanAngleRank)
	assert.Equal(t, int16(-2050), p.ExtendedScanAngle)
	assert.InDelta(t, 12.3, p.GetAbsScanAngle(), 1e-3)
}

func TestPoint_InsideTests(t *testing.T) {
	t.Parallel()

	q := NewQuantizer([3]float64{0.01, 0.01, 0.01}, [3]float64{})
	p := NewPoint(0, q, 0)
	p.SetX(100)
	p.SetY(50)
	p.SetZ(10)

	assert.False(t, p.InsideTile(0, 0, 100, 100), "upper edge is exclusive")
	assert.True(t, p.InsideTile(100, 0, 200, 100), "lower edge is inclusive")
	assert.True(t, p.InsideCircle(100, 45, 26))
	assert.False(t, p.InsideCircle(100, 45, 25))
	assert.True(t, p.InsideBox(0, 0, 10, 101, 51, 11))
	assert.False(t, p.InsideBox(0, 0, 0, 101, 51, 10))
}

func TestPoint_CloneIsDeep(t *testing.T) {
	t.Parallel()

	p := newTestPoint(3)
	p.Attributes[0] = 1.5
	c := p.Clone()
	c.Attributes[0] = 2.5
	assert.Equal(t, 1.5, p.Attributes[0])

	var dst Point
	dst.CopyFrom(p)
	assert.Equal(t, p.Attributes, dst.Attributes)
}

func TestPoint_Requantize(t *testing.T) {
	t.Parallel()

	p := newTestPoint(0)
	p.SetX(1001.25)
	p.SetY(2002.5)
	p.SetZ(3)

	target := NewQuantizer([3]float64{0.001, 0.001, 0.001}, [3]float64{1000, 2000, 0})
	require.True(t, p.Requantize(target))
	assert.Equal(t, int32(1250), p.X)
	assert.Equal(t, int32(2500), p.Y)
	assert.Equal(t, int32(3000), p.Z)
}

package filter

import (
	"math"
	"strconv"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

// A point field a criterion compares against its bounds
type field struct {
	selective uint32
	integer   bool
	min, max  float64 // accepted argument range, only checked for integer fields
	value     func(p *data.Point) float64
	present   func(p *data.Point) bool // nil when every point carries the field
}

var (
	fieldX = field{selective: data.DecompressChannelReturnsXY, value: func(p *data.Point) float64 { return p.GetX() }}
	fieldY = field{selective: data.DecompressChannelReturnsXY, value: func(p *data.Point) float64 { return p.GetY() }}
	fieldZ = field{selective: data.DecompressZ, value: func(p *data.Point) float64 { return p.GetZ() }}

	fieldRawX = field{selective: data.DecompressChannelReturnsXY, integer: true, min: math.MinInt32, max: math.MaxInt32, value: func(p *data.Point) float64 { return float64(p.X) }}
	fieldRawY = field{selective: data.DecompressChannelReturnsXY, integer: true, min: math.MinInt32, max: math.MaxInt32, value: func(p *data.Point) float64 { return float64(p.Y) }}
	fieldRawZ = field{selective: data.DecompressZ, integer: true, min: math.MinInt32, max: math.MaxInt32, value: func(p *data.Point) float64 { return float64(p.Z) }}

	fieldIntensity = field{selective: data.DecompressIntensity, integer: true, max: math.MaxUint16,
		value: func(p *data.Point) float64 { return float64(p.Intensity) }}
	fieldUserData = field{selective: data.DecompressUserData, integer: true, max: math.MaxUint8,
		value: func(p *data.Point) float64 { return float64(p.UserData) }}
	fieldPointSource = field{selective: data.DecompressPointSource, integer: true, max: math.MaxUint16,
		value: func(p *data.Point) float64 { return float64(p.PointSourceID) }}
	fieldScanAngle = field{selective: data.DecompressScanAngle, integer: true, min: math.MinInt8, max: math.MaxInt8,
		value: func(p *data.Point) float64 { return float64(p.ScanAngleRank) }}
	fieldAbsScanAngle = field{selective: data.DecompressScanAngle, integer: true, max: 128,
		value: func(p *data.Point) float64 { return math.Abs(float64(p.ScanAngleRank)) }}
	fieldGPSTime = field{selective: data.DecompressGpsTime,
		value:   func(p *data.Point) float64 { return p.GPSTime },
		present: func(p *data.Point) bool { return p.HasGPSTime }}
	fieldWavepacket = field{selective: data.DecompressWavepacket, integer: true, max: math.MaxUint8,
		value: func(p *data.Point) float64 { return float64(p.Wavepacket.Index) }}
	fieldScannerChannel = field{selective: data.DecompressChannelReturnsXY, integer: true, max: 3,
		value: func(p *data.Point) float64 { return float64(p.ExtendedScannerChannel) }}
	fieldScanDirection = field{selective: data.DecompressFlags, integer: true, max: 1,
		value: func(p *data.Point) float64 { return float64(p.ScanDirectionFlag) }}
	fieldNumberOfReturns = field{selective: data.DecompressChannelReturnsXY, integer: true, max: 15,
		value: func(p *data.Point) float64 { return float64(p.GetNumberOfReturns()) }}
)

var rgbChannelNames = [4]string{"red", "green", "blue", "nir"}

func rgbField(channel int) field {
	selective := data.DecompressRGB
	if channel == 3 {
		selective = data.DecompressNIR
	}
	return field{selective: selective, integer: true, max: math.MaxUint16,
		value: func(p *data.Point) float64 { return float64(p.RGB[channel]) }}
}

func attributeField(index int) field {
	return field{selective: data.DecompressByte0 << uint(index),
		value: func(p *data.Point) float64 { return p.GetAttributeAsFloat(index) }}
}

type valueMode int

const (
	keepEqual     valueMode = iota // drop v != a
	dropEqual                      // drop v == a
	keepRange                      // drop v < a || v > b
	dropRange                      // drop a <= v <= b
	keepHalfOpen                   // drop v < a || v >= b
	dropHalfOpen                   // drop a <= v < b
	keepBelow                      // drop v >= a
	keepAbove                      // drop v <= a
	dropBelow                      // drop v < a
	dropAbove                      // drop v > a
	dropAtOrAbove                  // drop v >= a
)

func (m valueMode) arguments() int {
	switch m {
	case keepRange, dropRange, keepHalfOpen, dropHalfOpen:
		return 2
	}
	return 1
}

// Compares one field of the point with one or two bounds
type valueCriterion struct {
	stateless
	name   string
	field  field
	mode   valueMode
	a, b   float64
	prefix []string
}

func (c *valueCriterion) Name() string { return c.name }

func (c *valueCriterion) format(v float64) string {
	if c.field.integer {
		return command.Int(int64(v))
	}
	return command.Float(v)
}

func (c *valueCriterion) Command() string {
	args := append([]string(nil), c.prefix...)
	args = append(args, c.format(c.a))
	if c.mode.arguments() == 2 {
		args = append(args, c.format(c.b))
	}
	return command.Join(c.name, args...)
}

func (c *valueCriterion) DecompressSelective() uint32 { return c.field.selective }

func (c *valueCriterion) Filter(p *data.Point) bool {
	if c.field.present != nil && !c.field.present(p) {
		return false
	}
	v := c.field.value(p)
	switch c.mode {
	case keepEqual:
		return v != c.a
	case dropEqual:
		return v == c.a
	case keepRange:
		return v < c.a || v > c.b
	case dropRange:
		return c.a <= v && v <= c.b
	case keepHalfOpen:
		return v < c.a || v >= c.b
	case dropHalfOpen:
		return c.a <= v && v < c.b
	case keepBelow:
		return v >= c.a
	case keepAbove:
		return v <= c.a
	case dropBelow:
		return v < c.a
	case dropAbove:
		return v > c.a
	case dropAtOrAbove:
		return v >= c.a
	}
	return false
}

func newAttributeCriterion(name string, index int, mode valueMode, a, b float64) Criterion {
	return &valueCriterion{name: name, field: attributeField(index), mode: mode, a: a, b: b, prefix: []string{strconv.Itoa(index)}}
}

package data

import "math"

// Wavepacket holds the waveform descriptor of point formats 4, 5, 9 and 10
type Wavepacket struct {
	Index    uint8
	Offset   uint64
	Size     uint32
	Location float32
	XT       float32
	YT       float32
	ZT       float32
}

// Reverses the direction of the return point waveform location vector
func (w *Wavepacket) FlipDirection() {
	w.XT = -w.XT
	w.YT = -w.YT
	w.ZT = -w.ZT
}

// Contains data of a Point Cloud Point: raw X,Y,Z coords (scaled through the Quantizer),
// the classic and extended return / classification fields, flags, GPS time, R,G,B,NIR
// color components, waveform descriptor and the extra attributes as scaled values
type Point struct {
	X int32
	Y int32
	Z int32

	Intensity         uint16
	ReturnNumber      uint8 // 0-7
	NumberOfReturns   uint8 // 0-7
	ScanDirectionFlag uint8
	EdgeOfFlightLine  uint8
	Classification    uint8 // 0-31
	SyntheticFlag     bool
	KeypointFlag      bool
	WithheldFlag      bool
	ScanAngleRank     int8
	UserData          uint8
	PointSourceID     uint16

	// point formats 6 to 10
	ExtendedPointType       bool
	OverlapFlag             bool
	ExtendedScannerChannel  uint8 // 0-3
	ExtendedClassification  uint8
	ExtendedReturnNumber    uint8 // 0-15
	ExtendedNumberOfReturns uint8 // 0-15
	ExtendedScanAngle       int16 // 0.006 degree increments

	HasGPSTime    bool
	HasRGB        bool
	HasNIR        bool
	HasWavepacket bool

	GPSTime    float64
	RGB        [4]uint16 // R, G, B, NIR
	Wavepacket Wavepacket
	Attributes []float64

	Quantizer *Quantizer
}

// Builds an empty point able to hold the fields of the given LAS point data format
func NewPoint(pointDataFormat uint8, quantizer *Quantizer, numberOfAttributes int) *Point {
	p := &Point{
		Quantizer:  quantizer,
		Attributes: make([]float64, numberOfAttributes),
	}
	p.SetFormat(pointDataFormat)
	return p
}

// Sets which optional fields the point carries according to a LAS point data format
func (p *Point) SetFormat(pointDataFormat uint8) {
	p.ExtendedPointType = pointDataFormat >= 6
	p.HasGPSTime = pointDataFormat != 0 && pointDataFormat != 2
	p.HasRGB = pointDataFormat == 2 || pointDataFormat == 3 || pointDataFormat == 5 || pointDataFormat == 7 || pointDataFormat == 8 || pointDataFormat == 10
	p.HasNIR = pointDataFormat == 8 || pointDataFormat == 10
	p.HasWavepacket = pointDataFormat == 4 || pointDataFormat == 5 || pointDataFormat == 9 || pointDataFormat == 10
}

// Resets every field but the layout information
func (p *Point) Zero() {
	attributes := p.Attributes
	for i := range attributes {
		attributes[i] = 0
	}
	*p = Point{
		ExtendedPointType: p.ExtendedPointType,
		HasGPSTime:        p.HasGPSTime,
		HasRGB:            p.HasRGB,
		HasNIR:            p.HasNIR,
		HasWavepacket:     p.HasWavepacket,
		Attributes:        attributes,
		Quantizer:         p.Quantizer,
	}
}

// Deep copy of the point, the quantizer is shared
func (p *Point) Clone() *Point {
	c := *p
	c.Attributes = append([]float64(nil), p.Attributes...)
	return &c
}

// Copies the content of src into p reusing p's attribute slice
func (p *Point) CopyFrom(src *Point) {
	attributes := p.Attributes
	*p = *src
	p.Attributes = append(attributes[:0], src.Attributes...)
}

func (p *Point) GetX() float64 {
	return p.Quantizer.GetX(p.X)
}

func (p *Point) GetY() float64 {
	return p.Quantizer.GetY(p.Y)
}

func (p *Point) GetZ() float64 {
	return p.Quantizer.GetZ(p.Z)
}

// SetX stores x through the quantizer. It returns false and leaves X untouched when
// the raw value does not fit 32 bits.
func (p *Point) SetX(x float64) bool {
	raw := p.Quantizer.QuantizeX(x)
	if !FitsInt32(raw) {
		return false
	}
	p.X = int32(raw)
	return true
}

func (p *Point) SetY(y float64) bool {
	raw := p.Quantizer.QuantizeY(y)
	if !FitsInt32(raw) {
		return false
	}
	p.Y = int32(raw)
	return true
}

func (p *Point) SetZ(z float64) bool {
	raw := p.Quantizer.QuantizeZ(z)
	if !FitsInt32(raw) {
		return false
	}
	p.Z = int32(raw)
	return true
}

// Moves the point into another coordinate frame keeping its world position
func (p *Point) Requantize(q *Quantizer) bool {
	x, y, z := p.GetX(), p.GetY(), p.GetZ()
	p.Quantizer = q
	ok := p.SetX(x)
	ok = p.SetY(y) && ok
	return p.SetZ(z) && ok
}

// InsideRectangle uses half-open bounds
func (p *Point) InsideRectangle(minX, minY, maxX, maxY float64) bool {
	x := p.GetX()
	if x < minX || x >= maxX {
		return false
	}
	y := p.GetY()
	return !(y < minY || y >= maxY)
}

func (p *Point) InsideTile(llX, llY, urX, urY float64) bool {
	return p.InsideRectangle(llX, llY, urX, urY)
}

func (p *Point) InsideCircle(centerX, centerY, squaredRadius float64) bool {
	dx := centerX - p.GetX()
	dy := centerY - p.GetY()
	return dx*dx+dy*dy < squaredRadius
}

func (p *Point) InsideBox(minX, minY, minZ, maxX, maxY, maxZ float64) bool {
	if !p.InsideRectangle(minX, minY, maxX, maxY) {
		return false
	}
	z := p.GetZ()
	return !(z < minZ || z >= maxZ)
}

func (p *Point) GetReturnNumber() uint8 {
	if p.ExtendedPointType {
		return p.ExtendedReturnNumber
	}
	return p.ReturnNumber
}

func (p *Point) GetNumberOfReturns() uint8 {
	if p.ExtendedPointType {
		return p.ExtendedNumberOfReturns
	}
	return p.NumberOfReturns
}

func (p *Point) SetReturnNumber(v uint8) {
	p.ReturnNumber = min(v, 7)
	p.ExtendedReturnNumber = min(v, 15)
}

func (p *Point) SetNumberOfReturns(v uint8) {
	p.NumberOfReturns = min(v, 7)
	p.ExtendedNumberOfReturns = min(v, 15)
}

func (p *Point) SetExtendedReturnNumber(v uint8) {
	p.ExtendedReturnNumber = min(v, 15)
	p.ReturnNumber = min(v, 7)
}

func (p *Point) SetExtendedNumberOfReturns(v uint8) {
	p.ExtendedNumberOfReturns = min(v, 15)
	p.NumberOfReturns = min(v, 7)
}

func (p *Point) GetClassification() uint8 {
	return p.Classification
}

func (p *Point) GetExtendedClassification() uint8 {
	if p.ExtendedPointType {
		return p.ExtendedClassification
	}
	return p.Classification
}

// SetClassification ignores values above 31
func (p *Point) SetClassification(v uint8) {
	if v < 32 {
		p.Classification = v
		p.ExtendedClassification = v
	}
}

func (p *Point) SetExtendedClassification(v uint8) {
	p.ExtendedClassification = v
	if v < 32 {
		p.Classification = v
	} else {
		p.Classification = 0
	}
}

// GetScanAngle returns degrees
func (p *Point) GetScanAngle() float32 {
	if p.ExtendedPointType {
		return 0.006 * float32(p.ExtendedScanAngle)
	}
	return float32(p.ScanAngleRank)
}

func (p *Point) GetAbsScanAngle() float32 {
	return float32(math.Abs(float64(p.GetScanAngle())))
}

func (p *Point) SetScanAngle(degrees float32) {
	p.ScanAngleRank = I8Clamp(float64(I32Quantize(float64(degrees))))
	p.ExtendedScanAngle = I16Quantize(float64(degrees) / 0.006)
}

func (p *Point) SetScannerChannel(v uint8) {
	p.ExtendedScannerChannel = min(v, 3)
}

func (p *Point) GetR() uint16   { return p.RGB[0] }
func (p *Point) GetG() uint16   { return p.RGB[1] }
func (p *Point) GetB() uint16   { return p.RGB[2] }
func (p *Point) GetNIR() uint16 { return p.RGB[3] }

func (p *Point) SetRGB(r, g, b uint16) {
	p.RGB[0], p.RGB[1], p.RGB[2] = r, g, b
}

func (p *Point) GetAttributeAsFloat(index int) float64 {
	if index < 0 || index >= len(p.Attributes) {
		return 0
	}
	return p.Attributes[index]
}

func (p *Point) SetAttributeAsFloat(index int, value float64) {
	if index >= 0 && index < len(p.Attributes) {
		p.Attributes[index] = value
	}
}

package io

import (
	"encoding/binary"
	"math"

	"github.com/ecopia-map/las_merger/internal/data"
)

var le = binary.LittleEndian

// Byte offsets of the optional fields of each point data format, -1 when absent
type recordLayout struct {
	gpsTime    int
	rgb        int
	nir        int
	wavepacket int
	core       int
}

var recordLayouts = [...]recordLayout{
	{-1, -1, -1, -1, 20},
	{20, -1, -1, -1, 28},
	{-1, 20, -1, -1, 26},
	{20, 28, -1, -1, 34},
	{20, -1, -1, 28, 57},
	{20, 28, -1, 34, 63},
	{22, -1, -1, -1, 30},
	{22, 30, -1, -1, 36},
	{22, 30, 36, -1, 38},
	{22, -1, -1, 30, 59},
	{22, 30, 36, 38, 67},
}

func decodePoint(b []byte, format uint8, attributes []data.AttributeDescriptor, p *data.Point) {
	p.X = int32(le.Uint32(b[0:]))
	p.Y = int32(le.Uint32(b[4:]))
	p.Z = int32(le.Uint32(b[8:]))
	p.Intensity = le.Uint16(b[12:])

	if format >= 6 {
		p.ExtendedPointType = true
		p.SetExtendedReturnNumber(b[14] & 0x0F)
		p.SetExtendedNumberOfReturns(b[14] >> 4)
		flags := b[15]
		p.SyntheticFlag = flags&0x01 != 0
		p.KeypointFlag = flags&0x02 != 0
		p.WithheldFlag = flags&0x04 != 0
		p.OverlapFlag = flags&0x08 != 0
		p.ExtendedScannerChannel = (flags >> 4) & 0x03
		p.ScanDirectionFlag = (flags >> 6) & 0x01
		p.EdgeOfFlightLine = flags >> 7
		p.SetExtendedClassification(b[16])
		p.UserData = b[17]
		p.ExtendedScanAngle = int16(le.Uint16(b[18:]))
		p.ScanAngleRank = data.I8Clamp(float64(data.I32Quantize(0.006 * float64(p.ExtendedScanAngle))))
		p.PointSourceID = le.Uint16(b[20:])
	} else {
		p.SetReturnNumber(b[14] & 0x07)
		p.SetNumberOfReturns((b[14] >> 3) & 0x07)
		p.ScanDirectionFlag = (b[14] >> 6) & 0x01
		p.EdgeOfFlightLine = b[14] >> 7
		p.SetClassification(b[15] & 0x1F)
		p.SyntheticFlag = b[15]&0x20 != 0
		p.KeypointFlag = b[15]&0x40 != 0
		p.WithheldFlag = b[15]&0x80 != 0
		p.ScanAngleRank = int8(b[16])
		p.ExtendedScanAngle = data.I16Quantize(float64(p.ScanAngleRank) / 0.006)
		p.UserData = b[17]
		p.PointSourceID = le.Uint16(b[18:])
	}

	l := recordLayouts[format]
	if l.gpsTime >= 0 {
		p.GPSTime = math.Float64frombits(le.Uint64(b[l.gpsTime:]))
	}
	if l.rgb >= 0 {
		p.RGB[0] = le.Uint16(b[l.rgb:])
		p.RGB[1] = le.Uint16(b[l.rgb+2:])
		p.RGB[2] = le.Uint16(b[l.rgb+4:])
	}
	if l.nir >= 0 {
		p.RGB[3] = le.Uint16(b[l.nir:])
	}
	if o := l.wavepacket; o >= 0 {
		p.Wavepacket = data.Wavepacket{
			Index:    b[o],
			Offset:   le.Uint64(b[o+1:]),
			Size:     le.Uint32(b[o+9:]),
			Location: math.Float32frombits(le.Uint32(b[o+13:])),
			XT:       math.Float32frombits(le.Uint32(b[o+17:])),
			YT:       math.Float32frombits(le.Uint32(b[o+21:])),
			ZT:       math.Float32frombits(le.Uint32(b[o+25:])),
		}
	}

	off := l.core
	for i, a := range attributes {
		if i < len(p.Attributes) {
			p.Attributes[i] = decodeAttribute(b[off:], a)
		}
		off += a.Size()
	}
}

func decodeAttribute(b []byte, a data.AttributeDescriptor) float64 {
	var v float64
	switch a.DataType {
	case data.AttributeUChar:
		v = float64(b[0])
	case data.AttributeChar:
		v = float64(int8(b[0]))
	case data.AttributeUShort:
		v = float64(le.Uint16(b))
	case data.AttributeShort:
		v = float64(int16(le.Uint16(b)))
	case data.AttributeULong:
		v = float64(le.Uint32(b))
	case data.AttributeLong:
		v = float64(int32(le.Uint32(b)))
	case data.AttributeULongLong:
		v = float64(le.Uint64(b))
	case data.AttributeLongLong:
		v = float64(int64(le.Uint64(b)))
	case data.AttributeFloat:
		v = float64(math.Float32frombits(le.Uint32(b)))
	case data.AttributeDouble:
		v = math.Float64frombits(le.Uint64(b))
	}
	if a.Scale != 0 {
		v = v*a.Scale + a.Offset
	} else {
		v += a.Offset
	}
	return v
}

// Encodes p with the layout of the given point data format. b must hold the full record
// and is expected to be zeroed beyond the encoded fields.
func encodePoint(b []byte, format uint8, attributes []data.AttributeDescriptor, p *data.Point) {
	le.PutUint32(b[0:], uint32(p.X))
	le.PutUint32(b[4:], uint32(p.Y))
	le.PutUint32(b[8:], uint32(p.Z))
	le.PutUint16(b[12:], p.Intensity)

	angle := float64(p.GetScanAngle())
	if format >= 6 {
		b[14] = min(p.GetReturnNumber(), 15) | min(p.GetNumberOfReturns(), 15)<<4
		var flags uint8
		if p.SyntheticFlag {
			flags |= 0x01
		}
		if p.KeypointFlag {
			flags |= 0x02
		}
		if p.WithheldFlag {
			flags |= 0x04
		}
		if p.OverlapFlag {
			flags |= 0x08
		}
		flags |= (p.ExtendedScannerChannel & 0x03) << 4
		flags |= (p.ScanDirectionFlag & 0x01) << 6
		flags |= (p.EdgeOfFlightLine & 0x01) << 7
		b[15] = flags
		b[16] = p.GetExtendedClassification()
		b[17] = p.UserData
		scanAngle := p.ExtendedScanAngle
		if !p.ExtendedPointType {
			scanAngle = data.I16Quantize(angle / 0.006)
		}
		le.PutUint16(b[18:], uint16(scanAngle))
		le.PutUint16(b[20:], p.PointSourceID)
	} else {
		b[14] = min(p.GetReturnNumber(), 7) | min(p.GetNumberOfReturns(), 7)<<3 |
			(p.ScanDirectionFlag&0x01)<<6 | (p.EdgeOfFlightLine&0x01)<<7
		class := p.Classification & 0x1F
		if p.SyntheticFlag {
			class |= 0x20
		}
		if p.KeypointFlag {
			class |= 0x40
		}
		if p.WithheldFlag {
			class |= 0x80
		}
		b[15] = class
		b[16] = uint8(data.I8Clamp(float64(data.I32Quantize(angle))))
		b[17] = p.UserData
		le.PutUint16(b[18:], p.PointSourceID)
	}

	l := recordLayouts[format]
	if l.gpsTime >= 0 {
		le.PutUint64(b[l.gpsTime:], math.Float64bits(p.GPSTime))
	}
	if l.rgb >= 0 {
		le.PutUint16(b[l.rgb:], p.RGB[0])
		le.PutUint16(b[l.rgb+2:], p.RGB[1])
		le.PutUint16(b[l.rgb+4:], p.RGB[2])
	}
	if l.nir >= 0 {
		le.PutUint16(b[l.nir:], p.RGB[3])
	}
	if o := l.wavepacket; o >= 0 {
		w := p.Wavepacket
		b[o] = w.Index
		le.PutUint64(b[o+1:], w.Offset)
		le.PutUint32(b[o+9:], w.Size)
		le.PutUint32(b[o+13:], math.Float32bits(w.Location))
		le.PutUint32(b[o+17:], math.Float32bits(w.XT))
		le.PutUint32(b[o+21:], math.Float32bits(w.YT))
		le.PutUint32(b[o+25:], math.Float32bits(w.ZT))
	}

	off := l.core
	for i, a := range attributes {
		encodeAttribute(b[off:], a, p.GetAttributeAsFloat(i))
		off += a.Size()
	}
}

func encodeAttribute(b []byte, a data.AttributeDescriptor, v float64) {
	v -= a.Offset
	if a.Scale != 0 {
		v /= a.Scale
	}
	switch a.DataType {
	case data.AttributeUChar:
		b[0] = data.U8Quantize(v)
	case data.AttributeChar:
		b[0] = uint8(data.I8Clamp(float64(data.I64Quantize(v))))
	case data.AttributeUShort:
		le.PutUint16(b, data.U16Quantize(v))
	case data.AttributeShort:
		le.PutUint16(b, uint16(data.I16Quantize(v)))
	case data.AttributeULong:
		le.PutUint32(b, uint32(max(0, min(data.I64Quantize(v), math.MaxUint32))))
	case data.AttributeLong:
		le.PutUint32(b, uint32(data.I32Clamp(float64(data.I64Quantize(v)))))
	case data.AttributeULongLong:
		le.PutUint64(b, uint64(max(0, data.I64Quantize(v))))
	case data.AttributeLongLong:
		le.PutUint64(b, uint64(data.I64Quantize(v)))
	case data.AttributeFloat:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case data.AttributeDouble:
		le.PutUint64(b, math.Float64bits(v))
	}
}

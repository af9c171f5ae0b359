package data

import "math"

// Quantizer maps raw integer coordinates to world coordinates and back
type Quantizer struct {
	Scale  [3]float64 // x, y, z scale factors
	Offset [3]float64 // x, y, z offsets
}

func NewQuantizer(scale [3]float64, offset [3]float64) *Quantizer {
	return &Quantizer{Scale: scale, Offset: offset}
}

func (q *Quantizer) GetX(raw int32) float64 {
	return q.Scale[0]*float64(raw) + q.Offset[0]
}

func (q *Quantizer) GetY(raw int32) float64 {
	return q.Scale[1]*float64(raw) + q.Offset[1]
}

func (q *Quantizer) GetZ(raw int32) float64 {
	return q.Scale[2]*float64(raw) + q.Offset[2]
}

func (q *Quantizer) QuantizeX(x float64) int64 {
	return I64Quantize((x - q.Offset[0]) / q.Scale[0])
}

func (q *Quantizer) QuantizeY(y float64) int64 {
	return I64Quantize((y - q.Offset[1]) / q.Scale[1])
}

func (q *Quantizer) QuantizeZ(z float64) int64 {
	return I64Quantize((z - q.Offset[2]) / q.Scale[2])
}

// Fits reports whether the world interval [min, max] on the given axis can be
// represented with 32 bit raw values
func (q *Quantizer) Fits(axis int, min float64, max float64) bool {
	return fits(q.Scale[axis], q.Offset[axis], min, max)
}

func fits(scale float64, offset float64, min float64, max float64) bool {
	return (max-offset)/scale <= math.MaxInt32 && (min-offset)/scale >= math.MinInt32
}

func (q *Quantizer) Equal(o *Quantizer) bool {
	return q.Scale == o.Scale && q.Offset == o.Offset
}

package data

import "math"

// Clamping and rounding helpers shared by the filter and transform packages.
// Clamps truncate toward zero, quantizers round half away from zero.

func U8Clamp(n float64) uint8 {
	if n <= 0 {
		return 0
	} else if n >= math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(n)
}

func U16Clamp(n float64) uint16 {
	if n <= 0 {
		return 0
	} else if n >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}

func I8Clamp(n float64) int8 {
	if n <= math.MinInt8 {
		return math.MinInt8
	} else if n >= math.MaxInt8 {
		return math.MaxInt8
	}
	return int8(n)
}

func I16Clamp(n float64) int16 {
	if n <= math.MinInt16 {
		return math.MinInt16
	} else if n >= math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(n)
}

func I32Clamp(n float64) int32 {
	if n <= math.MinInt32 {
		return math.MinInt32
	} else if n >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}

func I64Quantize(n float64) int64 {
	if n >= 0 {
		return int64(n + 0.5)
	}
	return int64(n - 0.5)
}

func I32Quantize(n float64) int32 {
	if n >= 0 {
		return int32(n + 0.5)
	}
	return int32(n - 0.5)
}

func I16Quantize(n float64) int16 {
	return I16Clamp(float64(I32Quantize(n)))
}

func U8Quantize(n float64) uint8 {
	if n >= 0 {
		return U8Clamp(n + 0.5)
	}
	return 0
}

func U16Quantize(n float64) uint16 {
	if n >= 0 {
		return U16Clamp(n + 0.5)
	}
	return 0
}

// FitsInt32 reports whether n can be stored as a raw 32 bit coordinate
func FitsInt32(n int64) bool {
	return n >= math.MinInt32 && n <= math.MaxInt32
}

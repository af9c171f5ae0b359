package proj4_coordinate_converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestConvertWGS84ToUTM(t *testing.T) {
	cc := NewProj4CoordinateConverter()
	defer cc.Cleanup()

	utm, err := cc.ConvertCoordinateSrid(4326, 32632, r3.Vec{X: 9, Y: 45, Z: 100})
	require.NoError(t, err)
	assert.InDelta(t, 500000.0, utm.X, 1e-3)
	assert.InDelta(t, 4982950.4, utm.Y, 1)
	assert.InDelta(t, 100.0, utm.Z, 1e-6)

	back, err := cc.ConvertCoordinateSrid(32632, 4326, utm)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, back.X, 1e-7)
	assert.InDelta(t, 45.0, back.Y, 1e-7)
}

func TestSameSridIsIdentity(t *testing.T) {
	cc := NewProj4CoordinateConverter()
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	out, err := cc.ConvertCoordinateSrid(32633, 32633, v)
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestUnsupportedEpsg(t *testing.T) {
	cc := NewProj4CoordinateConverter()
	defer cc.Cleanup()
	_, err := cc.ConvertCoordinateSrid(4326, 99999, r3.Vec{})
	assert.EqualError(t, err, "unsupported EPSG code 99999")
	assert.True(t, IsSupported(32755))
	assert.True(t, IsSupported(26917))
	assert.False(t, IsSupported(32661))
}

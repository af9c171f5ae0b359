package converters

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Converts coordinates between spatial reference systems identified by their EPSG code.
// Geographic coordinates are expressed in degrees.
type CoordinateConverter interface {
	ConvertCoordinateSrid(sourceSrid int, targetSrid int, coord r3.Vec) (r3.Vec, error)
	// Releases the projections cached by the converter
	Cleanup()
}

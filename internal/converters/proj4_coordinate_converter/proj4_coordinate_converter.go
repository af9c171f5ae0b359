package proj4_coordinate_converter

import (
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	proj4 "github.com/xeonx/proj4"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ecopia-map/las_merger/internal/converters"
)

const toRadians = math.Pi / 180
const toDeg = 180 / math.Pi

type proj4CoordinateConverter struct {
	EpsgDatabase map[int]*epsgProjection
}

type epsgProjection struct {
	EpsgCode   int
	Definition string
	Projection *proj4.Proj
}

func NewProj4CoordinateConverter() converters.CoordinateConverter {
	return &proj4CoordinateConverter{
		EpsgDatabase: make(map[int]*epsgProjection),
	}
}

// Converts the given coordinate from the given source Srid to the given target srid.
func (cc *proj4CoordinateConverter) ConvertCoordinateSrid(sourceSrid int, targetSrid int, coord r3.Vec) (r3.Vec, error) {
	if sourceSrid == targetSrid {
		return coord, nil
	}

	src, err := cc.getProjection(sourceSrid)
	if err != nil {
		return coord, err
	}
	dst, err := cc.getProjection(targetSrid)
	if err != nil {
		return coord, err
	}

	x, y, z := []float64{coord.X}, []float64{coord.Y}, []float64{coord.Z}
	if src.IsLatLong() {
		x[0] *= toRadians
		y[0] *= toRadians
	}
	if err := proj4.TransformRaw(src, dst, x, y, z); err != nil {
		return coord, errors.Wrapf(err, "converting from EPSG:%d to EPSG:%d", sourceSrid, targetSrid)
	}
	if dst.IsLatLong() {
		x[0] *= toDeg
		y[0] *= toDeg
	}
	return r3.Vec{X: x[0], Y: y[0], Z: z[0]}, nil
}

// Releases all projection objects from memory
func (cc *proj4CoordinateConverter) Cleanup() {
	for code, val := range cc.EpsgDatabase {
		if val.Projection != nil {
			val.Projection.Close()
		}
		delete(cc.EpsgDatabase, code)
	}
}

// Returns the projection corresponding to the given EPSG code, initializing it on first use
func (cc *proj4CoordinateConverter) getProjection(code int) (*proj4.Proj, error) {
	if val, ok := cc.EpsgDatabase[code]; ok {
		return val.Projection, nil
	}
	definition, ok := epsgDefinitions[code]
	if !ok {
		return nil, errors.Errorf("unsupported EPSG code %d", code)
	}
	projection, err := proj4.InitPlus(definition)
	if err != nil {
		return nil, errors.Wrapf(err, "initializing projection EPSG:%d", code)
	}
	glog.V(2).Infof("initialized projection EPSG:%d '%s'", code, definition)
	cc.EpsgDatabase[code] = &epsgProjection{EpsgCode: code, Definition: definition, Projection: projection}
	return projection, nil
}

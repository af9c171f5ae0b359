package filter

import (
	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

type ndviSource int

const (
	ndviNIR ndviSource = iota
	ndviGreenIsNIR
	ndviBlueIsNIR
	ndviFromCIR
	ndviIntensityIsNIR
)

var ndviNames = map[ndviSource]string{
	ndviNIR:            "keep_NDVI",
	ndviGreenIsNIR:     "keep_NDVI_green_is_NIR",
	ndviBlueIsNIR:      "keep_NDVI_blue_is_NIR",
	ndviFromCIR:        "keep_NDVI_from_CIR",
	ndviIntensityIsNIR: "keep_NDVI_intensity_is_NIR",
}

// Keeps the points whose normalized difference vegetation index is within [below, above]
type keepNDVI struct {
	stateless
	source       ndviSource
	below, above float32
}

func newKeepNDVI(source ndviSource, below, above float32) Criterion {
	if above < below {
		below, above = above, below
	}
	return &keepNDVI{source: source, below: below, above: above}
}

func (c *keepNDVI) Name() string { return ndviNames[c.source] }

func (c *keepNDVI) Command() string {
	return command.Join(c.Name(), command.Float32(c.below), command.Float32(c.above))
}

func (c *keepNDVI) DecompressSelective() uint32 {
	switch c.source {
	case ndviNIR:
		return data.DecompressRGB | data.DecompressNIR
	case ndviIntensityIsNIR:
		return data.DecompressRGB | data.DecompressIntensity
	}
	return data.DecompressRGB
}

func (c *keepNDVI) Filter(p *data.Point) bool {
	var nir, red int
	switch c.source {
	case ndviNIR:
		nir, red = int(p.RGB[3]), int(p.RGB[0])
	case ndviGreenIsNIR:
		nir, red = int(p.RGB[1]), int(p.RGB[0])
	case ndviBlueIsNIR:
		nir, red = int(p.RGB[2]), int(p.RGB[0])
	case ndviFromCIR:
		nir, red = int(p.RGB[0]), int(p.RGB[1])
	case ndviIntensityIsNIR:
		nir, red = int(p.Intensity), int(p.RGB[0])
	}
	ndvi := float32(nir-red) / float32(nir+red)
	return ndvi < c.below || c.above < ndvi
}

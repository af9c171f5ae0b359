package filter

import (
	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

type keepTile struct {
	stateless
	llX, llY, size float32
	urX, urY       float32
}

func NewKeepTile(llX, llY, size float32) Criterion {
	return &keepTile{llX: llX, llY: llY, size: size, urX: llX + size, urY: llY + size}
}

func (c *keepTile) Name() string { return "keep_tile" }

func (c *keepTile) Command() string {
	return command.Join(c.Name(), command.Float32(c.llX), command.Float32(c.llY), command.Float32(c.size))
}

func (c *keepTile) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *keepTile) Filter(p *data.Point) bool {
	return !p.InsideTile(float64(c.llX), float64(c.llY), float64(c.urX), float64(c.urY))
}

type keepCircle struct {
	stateless
	x, y, radius  float64
	squaredRadius float64
}

func NewKeepCircle(x, y, radius float64) Criterion {
	return &keepCircle{x: x, y: y, radius: radius, squaredRadius: radius * radius}
}

func (c *keepCircle) Name() string { return "keep_circle" }

func (c *keepCircle) Command() string {
	return command.Join(c.Name(), command.Float(c.x), command.Float(c.y), command.Float(c.radius))
}

func (c *keepCircle) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *keepCircle) Filter(p *data.Point) bool {
	return !p.InsideCircle(c.x, c.y, c.squaredRadius)
}

// keep_xy, drop_xy, keep_xyz and drop_xyz over half-open boxes
type boxCriterion struct {
	stateless
	keep   bool
	threeD bool
	min    [3]float64
	max    [3]float64
}

func NewKeepBox(minX, minY, minZ, maxX, maxY, maxZ float64) Criterion {
	return &boxCriterion{keep: true, threeD: true, min: [3]float64{minX, minY, minZ}, max: [3]float64{maxX, maxY, maxZ}}
}

func newRectangle(keep bool, minX, minY, maxX, maxY float64) Criterion {
	return &boxCriterion{keep: keep, min: [3]float64{minX, minY}, max: [3]float64{maxX, maxY}}
}

func (c *boxCriterion) Name() string {
	name := "drop_xy"
	if c.keep {
		name = "keep_xy"
	}
	if c.threeD {
		name += "z"
	}
	return name
}

func (c *boxCriterion) Command() string {
	if c.threeD {
		return command.Join(c.Name(),
			command.Float(c.min[0]), command.Float(c.min[1]), command.Float(c.min[2]),
			command.Float(c.max[0]), command.Float(c.max[1]), command.Float(c.max[2]))
	}
	return command.Join(c.Name(), command.Float(c.min[0]), command.Float(c.min[1]), command.Float(c.max[0]), command.Float(c.max[1]))
}

func (c *boxCriterion) DecompressSelective() uint32 {
	if c.threeD {
		return data.DecompressChannelReturnsXY | data.DecompressZ
	}
	return data.DecompressChannelReturnsXY
}

func (c *boxCriterion) Filter(p *data.Point) bool {
	var inside bool
	if c.threeD {
		inside = p.InsideBox(c.min[0], c.min[1], c.min[2], c.max[0], c.max[1], c.max[2])
	} else {
		inside = p.InsideRectangle(c.min[0], c.min[1], c.max[0], c.max[1])
	}
	return inside != c.keep
}

// keep_XY on raw integer coordinates
type keepRawXY struct {
	stateless
	belowX, belowY, aboveX, aboveY int32
}

func (c *keepRawXY) Name() string { return "keep_XY" }

func (c *keepRawXY) Command() string {
	return command.Join(c.Name(), command.Int(int64(c.belowX)), command.Int(int64(c.belowY)), command.Int(int64(c.aboveX)), command.Int(int64(c.aboveY)))
}

func (c *keepRawXY) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *keepRawXY) Filter(p *data.Point) bool {
	return p.X < c.belowX || p.Y < c.belowY || p.X >= c.aboveX || p.Y >= c.aboveY
}

package transform

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ecopia-map/las_merger/internal/data"
)

const (
	selectiveXY  = data.DecompressChannelReturnsXY
	selectiveXYZ = data.DecompressChannelReturnsXY | data.DecompressZ
	// arc seconds to radians
	arcSecond = 4.84813681109536e-6
)

var axisNames = [3]string{"x", "y", "z"}

func axisSelective(axis int) uint32 {
	if axis == 2 {
		return data.DecompressZ
	}
	return selectiveXY
}

func getAxis(p *data.Point, axis int) float64 {
	switch axis {
	case 0:
		return p.GetX()
	case 1:
		return p.GetY()
	}
	return p.GetZ()
}

func setAxis(p *data.Point, axis int, v float64) bool {
	switch axis {
	case 0:
		return p.SetX(v)
	case 1:
		return p.SetY(v)
	}
	return p.SetZ(v)
}

func rawAxis(p *data.Point, axis int) *int32 {
	switch axis {
	case 0:
		return &p.X
	case 1:
		return &p.Y
	}
	return &p.Z
}

func getVec(p *data.Point) r3.Vec {
	return r3.Vec{X: p.GetX(), Y: p.GetY(), Z: p.GetZ()}
}

func setVec(p *data.Point, v r3.Vec, c *overflowCounter) {
	c.check(p.SetX(v.X))
	c.check(p.SetY(v.Y))
	c.check(p.SetZ(v.Z))
}

// Rotation by angle degrees in the plane of axes a and b around (oa, ob)
func rotation(a, b int, sign float64) func(v values) applyFunc {
	return func(v values) applyFunc {
		axis := r3.Vec{}
		switch 3 - a - b {
		case 0:
			axis.X = sign
		case 1:
			axis.Y = sign
		case 2:
			axis.Z = sign
		}
		rot := r3.NewRotation(v.Float(0)*math.Pi/180, axis)
		oa, ob := v.Float(1), v.Float(2)
		return func(p *data.Point, _ *Registers, c *overflowCounter) {
			var in r3.Vec
			setComponent(&in, a, getAxis(p, a)-oa)
			setComponent(&in, b, getAxis(p, b)-ob)
			out := rot.Rotate(in)
			c.check(setAxis(p, a, component(out, a)+oa))
			c.check(setAxis(p, b, component(out, b)+ob))
		}
	}
}

func component(v r3.Vec, axis int) float64 {
	return [3]float64{v.X, v.Y, v.Z}[axis]
}

func setComponent(v *r3.Vec, axis int, value float64) {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
}

func coordinateDefinitions() map[string]definition {
	defs := map[string]definition{}
	for axis, name := range axisNames {
		axis := axis
		selective := axisSelective(axis)
		defs["translate_"+name] = definition{args: []arg{f64("offset")}, selective: selective,
			build: func(v values) applyFunc {
				offset := v.Float(0)
				return func(p *data.Point, _ *Registers, c *overflowCounter) {
					c.check(setAxis(p, axis, getAxis(p, axis)+offset))
				}
			}}
		defs["scale_"+name] = definition{args: []arg{f64("scale")}, selective: selective,
			build: func(v values) applyFunc {
				scale := v.Float(0)
				return func(p *data.Point, _ *Registers, c *overflowCounter) {
					c.check(setAxis(p, axis, getAxis(p, axis)*scale))
				}
			}}
		defs["translate_then_scale_"+name] = definition{args: []arg{f64("offset"), f64("scale")}, selective: selective,
			build: func(v values) applyFunc {
				offset, scale := v.Float(0), v.Float(1)
				return func(p *data.Point, _ *Registers, c *overflowCounter) {
					c.check(setAxis(p, axis, (getAxis(p, axis)+offset)*scale))
				}
			}}
		defs["translate_raw_"+name] = definition{args: []arg{i32("raw_offset")}, selective: selective,
			build: func(v values) applyFunc {
				offset := v.Int32(0)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					*rawAxis(p, axis) += offset
				}
			}}
		defs["copy_attribute_into_"+name] = definition{args: []arg{index("index")}, selective: selective | data.DecompressExtraBytes,
			build: func(v values) applyFunc {
				index := v.Index(0)
				return func(p *data.Point, _ *Registers, c *overflowCounter) {
					c.check(setAxis(p, axis, p.GetAttributeAsFloat(index)))
				}
			}}
		defs["copy_register_into_"+name] = definition{args: []arg{register("register")}, selective: selective,
			build: func(v values) applyFunc {
				index := v.Index(0)
				return func(p *data.Point, r *Registers, c *overflowCounter) {
					c.check(setAxis(p, axis, r[index]))
				}
			}}
	}

	defs["translate_xyz"] = definition{args: []arg{f64("offset_x"), f64("offset_y"), f64("offset_z")}, selective: selectiveXYZ,
		build: func(v values) applyFunc {
			offset := r3.Vec{X: v.Float(0), Y: v.Float(1), Z: v.Float(2)}
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				setVec(p, r3.Add(getVec(p), offset), c)
			}
		}}
	defs["scale_xyz"] = definition{args: []arg{f64("scale_x"), f64("scale_y"), f64("scale_z")}, selective: selectiveXYZ,
		build: func(v values) applyFunc {
			scale := [3]float64{v.Float(0), v.Float(1), v.Float(2)}
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				for axis := range scale {
					c.check(setAxis(p, axis, getAxis(p, axis)*scale[axis]))
				}
			}
		}}
	defs["translate_raw_xyz"] = definition{args: []arg{i32("raw_offset_x"), i32("raw_offset_y"), i32("raw_offset_z")}, selective: selectiveXYZ,
		build: func(v values) applyFunc {
			x, y, z := v.Int32(0), v.Int32(1), v.Int32(2)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.X += x
				p.Y += y
				p.Z += z
			}
		}}

	rotateArgs := func(a, b string) []arg { return []arg{f64("angle"), f64("rot_center_" + a), f64("rot_center_" + b)} }
	defs["rotate_xy"] = definition{args: rotateArgs("x", "y"), selective: selectiveXY, build: rotation(0, 1, 1)}
	defs["rotate_xz"] = definition{args: rotateArgs("x", "z"), selective: selectiveXYZ, build: rotation(0, 2, -1)}
	defs["rotate_yz"] = definition{args: rotateArgs("y", "z"), selective: selectiveXYZ, build: rotation(1, 2, 1)}

	// dx,dy,dz in meters, rx,ry,rz in arc seconds, m in ppm
	defs["transform_helmert"] = definition{args: []arg{list("dx,dy,dz,rx,ry,rz,m", 7)}, selective: selectiveXYZ,
		build: func(v values) applyFunc {
			h := v.List(0)
			rx, ry, rz := arcSecond*h[3], arcSecond*h[4], arcSecond*h[5]
			m := r3.NewMat([]float64{
				1, -rz, ry,
				rz, 1, -rx,
				-ry, rx, 1,
			})
			scale := 1 + 1e-6*h[6]
			shift := r3.Vec{X: h[0], Y: h[1], Z: h[2]}
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				setVec(p, r3.Add(r3.Scale(scale, m.MulVec(getVec(p))), shift), c)
			}
		}}
	// r scale, w rotation in arc seconds
	defs["transform_affine"] = definition{args: []arg{list("r,w,tx,ty", 4)}, selective: selectiveXY,
		build: func(v values) applyFunc {
			a := v.List(0)
			r, cosw, sinw, tx, ty := a[0], math.Cos(arcSecond*a[1]), math.Sin(arcSecond*a[1]), a[2], a[3]
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				x, y := p.GetX(), p.GetY()
				c.check(p.SetX(r*(cosw*x+sinw*y) + tx))
				c.check(p.SetY(r*(cosw*y-sinw*x) + ty))
			}
		}}
	defs["transform_matrix"] = definition{args: []arg{list("r11,r12,r13", 3), list("r21,r22,r23", 3), list("r31,r32,r33", 3), list("tr1,tr2,tr3", 3)}, selective: selectiveXYZ,
		build: func(v values) applyFunc {
			rows := append(append(append([]float64(nil), v.List(0)...), v.List(1)...), v.List(2)...)
			m := r3.NewMat(rows)
			t := v.List(3)
			shift := r3.Vec{X: t[0], Y: t[1], Z: t[2]}
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				setVec(p, r3.Add(m.MulVec(getVec(p)), shift), c)
			}
		}}

	defs["clamp_z"] = definition{args: []arg{f64("below"), f64("above")}, selective: data.DecompressZ,
		build: func(v values) applyFunc {
			below, above := v.Float(0), v.Float(1)
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				z := p.GetZ()
				if z < below {
					c.check(p.SetZ(below))
				} else if z > above {
					c.check(p.SetZ(above))
				}
			}
		}}
	defs["clamp_z_below"] = definition{args: []arg{f64("below")}, selective: data.DecompressZ,
		build: func(v values) applyFunc {
			below := v.Float(0)
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				if p.GetZ() < below {
					c.check(p.SetZ(below))
				}
			}
		}}
	defs["clamp_z_above"] = definition{args: []arg{f64("above")}, selective: data.DecompressZ,
		build: func(v values) applyFunc {
			above := v.Float(0)
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				if p.GetZ() > above {
					c.check(p.SetZ(above))
				}
			}
		}}
	defs["clamp_raw_z"] = definition{args: []arg{i32("below"), i32("above")}, selective: data.DecompressZ,
		build: func(v values) applyFunc {
			below, above := v.Int32(0), v.Int32(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if p.Z < below {
					p.Z = below
				} else if p.Z > above {
					p.Z = above
				}
			}
		}}

	defs["copy_intensity_into_z"] = definition{selective: data.DecompressZ | data.DecompressIntensity,
		build: func(values) applyFunc {
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				c.check(p.SetZ(float64(p.Intensity)))
			}
		}}
	defs["copy_user_data_into_z"] = definition{selective: data.DecompressZ | data.DecompressUserData,
		build: func(values) applyFunc {
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				c.check(p.SetZ(float64(p.UserData)))
			}
		}}
	defs["add_attribute_to_z"] = definition{args: []arg{index("index")}, selective: data.DecompressZ | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index := v.Index(0)
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				c.check(p.SetZ(p.GetZ() + p.GetAttributeAsFloat(index)))
			}
		}}
	defs["add_scaled_attribute_to_z"] = definition{args: []arg{index("index"), f32("scale")}, selective: data.DecompressZ | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index, scale := v.Index(0), float64(v.Float32(1))
			return func(p *data.Point, _ *Registers, c *overflowCounter) {
				c.check(p.SetZ(p.GetZ() + p.GetAttributeAsFloat(index)*scale))
			}
		}}

	switches := map[string][2]int{"switch_x_y": {0, 1}, "switch_x_z": {0, 2}, "switch_y_z": {1, 2}}
	for name, axes := range switches {
		a, b := axes[0], axes[1]
		defs[name] = definition{selective: selectiveXYZ,
			build: func(values) applyFunc {
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					ra, rb := rawAxis(p, a), rawAxis(p, b)
					*ra, *rb = *rb, *ra
				}
			}}
	}
	return defs
}

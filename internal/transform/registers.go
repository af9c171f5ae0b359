package transform

import (
	"github.com/ecopia-map/las_merger/internal/data"
)

func registerDefinitions() map[string]definition {
	defs := map[string]definition{}
	arithmetic := func(name string, op func(a, b float64) float64) {
		defs[name] = definition{args: []arg{register("input1"), register("input2"), register("output")},
			build: func(v values) applyFunc {
				a, b, out := v.Index(0), v.Index(1), v.Index(2)
				return func(_ *data.Point, r *Registers, _ *overflowCounter) { r[out] = op(r[a], r[b]) }
			}}
	}
	arithmetic("add_registers", func(a, b float64) float64 { return a + b })
	arithmetic("subtract_registers", func(a, b float64) float64 { return a - b })
	arithmetic("multiply_registers", func(a, b float64) float64 { return a * b })
	arithmetic("divide_registers", func(a, b float64) float64 { return a / b })

	defs["set_register"] = definition{args: []arg{register("register"), f64("value")},
		build: func(v values) applyFunc {
			index, value := v.Index(0), v.Float(1)
			return func(_ *data.Point, r *Registers, _ *overflowCounter) { r[index] = value }
		}}
	defs["scale_register"] = definition{args: []arg{register("register"), f32("scale")},
		build: func(v values) applyFunc {
			index, scale := v.Index(0), float64(v.Float32(1))
			return func(_ *data.Point, r *Registers, _ *overflowCounter) { r[index] *= scale }
		}}
	defs["translate_register"] = definition{args: []arg{register("register"), f64("offset")},
		build: func(v values) applyFunc {
			index, offset := v.Index(0), v.Float(1)
			return func(_ *data.Point, r *Registers, _ *overflowCounter) { r[index] += offset }
		}}

	// point field into a register and back
	field := func(name string, selective uint32, get func(p *data.Point) float64, set func(p *data.Point, v float64)) {
		defs["copy_"+name+"_into_register"] = definition{args: []arg{register("register")}, selective: selective,
			build: func(v values) applyFunc {
				index := v.Index(0)
				return func(p *data.Point, r *Registers, _ *overflowCounter) { r[index] = get(p) }
			}}
		if set == nil {
			return
		}
		defs["copy_register_into_"+name] = definition{args: []arg{register("register")}, selective: selective,
			build: func(v values) applyFunc {
				index := v.Index(0)
				return func(p *data.Point, r *Registers, _ *overflowCounter) { set(p, r[index]) }
			}}
	}
	field("intensity", data.DecompressIntensity,
		func(p *data.Point) float64 { return float64(p.Intensity) },
		func(p *data.Point, v float64) { p.Intensity = data.U16Clamp(v) })
	field("point_source", data.DecompressPointSource,
		func(p *data.Point) float64 { return float64(p.PointSourceID) },
		func(p *data.Point, v float64) { p.PointSourceID = data.U16Clamp(v) })
	field("user_data", data.DecompressUserData,
		func(p *data.Point) float64 { return float64(p.UserData) }, nil)
	for channel, name := range channelNames {
		channel := channel
		field(name, channelSelective(channel),
			func(p *data.Point) float64 { return float64(p.RGB[channel]) },
			func(p *data.Point, v float64) { p.RGB[channel] = data.U16Clamp(v) })
	}

	defs["copy_attribute_into_register"] = definition{args: []arg{index("attribute"), register("register")}, selective: data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			attribute, index := v.Index(0), v.Index(1)
			return func(p *data.Point, r *Registers, _ *overflowCounter) { r[index] = p.GetAttributeAsFloat(attribute) }
		}}
	defs["copy_register_into_attribute"] = definition{args: []arg{register("register"), index("attribute")}, selective: data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index, attribute := v.Index(0), v.Index(1)
			return func(p *data.Point, r *Registers, _ *overflowCounter) { p.SetAttributeAsFloat(attribute, r[index]) }
		}}
	return defs
}

func attributeDefinitions() map[string]definition {
	const sel = data.DecompressExtraBytes
	defs := map[string]definition{}
	defs["set_attribute"] = definition{args: []arg{index("index"), f64("value")}, selective: sel,
		build: func(v values) applyFunc {
			index, value := v.Index(0), v.Float(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetAttributeAsFloat(index, value) }
		}}
	defs["scale_attribute"] = definition{args: []arg{index("index"), f32("scale")}, selective: sel,
		build: func(v values) applyFunc {
			index, scale := v.Index(0), float64(v.Float32(1))
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.SetAttributeAsFloat(index, scale*p.GetAttributeAsFloat(index))
			}
		}}
	defs["translate_attribute"] = definition{args: []arg{index("index"), f64("offset")}, selective: sel,
		build: func(v values) applyFunc {
			index, offset := v.Index(0), v.Float(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.SetAttributeAsFloat(index, offset+p.GetAttributeAsFloat(index))
			}
		}}
	source := func(name string, selective uint32, get func(p *data.Point) float64) {
		defs["copy_"+name+"_into_attribute"] = definition{args: []arg{index("index")}, selective: sel | selective,
			build: func(v values) applyFunc {
				index := v.Index(0)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetAttributeAsFloat(index, get(p)) }
			}}
	}
	source("user_data", data.DecompressUserData, func(p *data.Point) float64 { return float64(p.UserData) })
	source("intensity", data.DecompressIntensity, func(p *data.Point) float64 { return float64(p.Intensity) })
	source("z", data.DecompressZ, (*data.Point).GetZ)
	return defs
}

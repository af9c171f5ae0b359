package transform

import (
	"github.com/ecopia-map/las_merger/internal/data"
)

// Names of the four color channels in the order of data.Point.RGB
var channelNames = [4]string{"R", "G", "B", "NIR"}

var channelWords = [4]string{"red", "green", "blue", "nir"}

func channelSelective(channel int) uint32 {
	if channel == 3 {
		return data.DecompressNIR
	}
	return data.DecompressRGB
}

func scaleRGB(p *data.Point, up bool) {
	for c := 0; c < 3; c++ {
		if up {
			p.RGB[c] *= 256
		} else {
			p.RGB[c] /= 256
		}
	}
}

func colorDefinitions() map[string]definition {
	const sel = data.DecompressRGB
	defs := map[string]definition{}
	defs["force_RGB"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) { p.HasRGB = true })
	defs["set_RGB"] = definition{args: []arg{u16("R"), u16("G"), u16("B")}, selective: sel,
		build: func(v values) applyFunc {
			r, g, b := v.Uint16(0), v.Uint16(1), v.Uint16(2)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetRGB(r, g, b) }
		}}
	defs["set_RGB_of_class"] = definition{args: []arg{u8("class"), u16("R"), u16("G"), u16("B")}, selective: sel | data.DecompressClassification,
		build: func(v values) applyFunc {
			class, r, g, b := v.Uint8(0), v.Uint16(1), v.Uint16(2), v.Uint16(3)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if classIs(p, class) {
					p.SetRGB(r, g, b)
				}
			}
		}}
	defs["set_NIR"] = definition{args: []arg{u16("NIR")}, selective: data.DecompressNIR,
		build: func(v values) applyFunc {
			nir := v.Uint16(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.RGB[3] = nir }
		}}
	defs["scale_RGB"] = definition{args: []arg{f32("scale_R"), f32("scale_G"), f32("scale_B")}, selective: sel,
		build: func(v values) applyFunc {
			scale := [3]float32{v.Float32(0), v.Float32(1), v.Float32(2)}
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				for c, s := range scale {
					p.RGB[c] = data.U16Clamp(float64(s * float32(p.RGB[c])))
				}
			}
		}}
	defs["scale_RGB_down"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) { scaleRGB(p, false) })
	defs["scale_RGB_up"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) { scaleRGB(p, true) })
	defs["scale_RGB_to_8bit"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.GetR() > 255 || p.GetG() > 255 || p.GetB() > 255 {
			scaleRGB(p, false)
		}
	})
	defs["scale_RGB_to_16bit"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.GetR() < 256 && p.GetG() < 256 && p.GetB() < 256 {
			scaleRGB(p, true)
		}
	})
	defs["clamp_RGB_to_8bit"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		for c := 0; c < 3; c++ {
			p.RGB[c] = min(p.RGB[c], 255)
		}
	})

	defs["scale_NIR"] = definition{args: []arg{f32("scale")}, selective: data.DecompressNIR,
		build: func(v values) applyFunc {
			scale := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.RGB[3] = data.U16Clamp(float64(scale * float32(p.RGB[3])))
			}
		}}
	defs["scale_NIR_down"] = fixed(data.DecompressNIR, func(p *data.Point, _ *Registers, _ *overflowCounter) { p.RGB[3] /= 256 })
	defs["scale_NIR_up"] = fixed(data.DecompressNIR, func(p *data.Point, _ *Registers, _ *overflowCounter) { p.RGB[3] *= 256 })
	defs["scale_NIR_to_8bit"] = fixed(data.DecompressNIR, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.GetNIR() > 255 {
			p.RGB[3] /= 256
		}
	})
	defs["scale_NIR_to_16bit"] = fixed(data.DecompressNIR, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.GetNIR() < 256 {
			p.RGB[3] *= 256
		}
	})

	swap := func(a, b int) applyFunc {
		return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.RGB[a], p.RGB[b] = p.RGB[b], p.RGB[a] }
	}
	defs["switch_R_G"] = fixed(sel, swap(0, 1))
	defs["switch_R_B"] = fixed(sel, swap(0, 2))
	defs["switch_G_B"] = fixed(sel, swap(1, 2))
	defs["switch_RGBI_into_CIR"] = fixed(sel|data.DecompressNIR, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.RGB[0], p.RGB[1], p.RGB[2] = p.RGB[3], p.RGB[0], p.RGB[1]
	})
	defs["switch_RGB_intensity_into_CIR"] = fixed(sel|data.DecompressIntensity, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.RGB[0], p.RGB[1], p.RGB[2] = p.Intensity, p.RGB[0], p.RGB[1]
	})

	for channel := 0; channel < 3; channel++ {
		channel := channel
		defs["copy_"+channelNames[channel]+"_into_NIR"] = fixed(sel|data.DecompressNIR, func(p *data.Point, _ *Registers, _ *overflowCounter) {
			p.RGB[3] = p.RGB[channel]
		})
	}
	defs["copy_intensity_into_NIR"] = fixed(data.DecompressNIR|data.DecompressIntensity, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.RGB[3] = p.Intensity
	})

	for channel := range channelNames {
		channel := channel
		selective := channelSelective(channel)
		defs["copy_attribute_into_"+channelNames[channel]] = definition{args: []arg{index("index")}, selective: selective | data.DecompressExtraBytes,
			build: func(v values) applyFunc {
				index := v.Index(0)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					p.RGB[channel] = data.U16Clamp(p.GetAttributeAsFloat(index))
				}
			}}
		defs["multiply_scaled_intensity_into_RGB_"+channelWords[channel]] = definition{args: []arg{f32("scale")}, selective: selective | data.DecompressIntensity,
			build: func(v values) applyFunc {
				scale := v.Float32(0)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					p.RGB[channel] = data.U16Clamp(float64(scale * float32(p.Intensity) * float32(p.RGB[channel])))
				}
			}}
	}
	return defs
}

package transform

import (
	"math"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Operation without arguments
func fixed(selective uint32, apply applyFunc) definition {
	return definition{selective: selective, build: func(values) applyFunc { return apply }}
}

func intensityDefinitions() map[string]definition {
	const sel = data.DecompressIntensity
	defs := map[string]definition{}
	defs["set_intensity"] = definition{args: []arg{u16("value")}, selective: sel,
		build: func(v values) applyFunc {
			value := v.Uint16(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.Intensity = value }
		}}
	defs["scale_intensity"] = definition{args: []arg{f32("scale")}, selective: sel,
		build: func(v values) applyFunc {
			scale := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.Intensity = data.U16Clamp(float64(scale * float32(p.Intensity)))
			}
		}}
	defs["translate_intensity"] = definition{args: []arg{f32("offset")}, selective: sel,
		build: func(v values) applyFunc {
			offset := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.Intensity = data.U16Clamp(float64(offset + float32(p.Intensity)))
			}
		}}
	defs["translate_then_scale_intensity"] = definition{args: []arg{f32("offset"), f32("scale")}, selective: sel,
		build: func(v values) applyFunc {
			offset, scale := v.Float32(0), v.Float32(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.Intensity = data.U16Clamp(float64(scale * (offset + float32(p.Intensity))))
			}
		}}
	defs["clamp_intensity"] = definition{args: []arg{u16("below"), u16("above")}, selective: sel,
		build: func(v values) applyFunc {
			below, above := v.Uint16(0), v.Uint16(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.Intensity = min(max(p.Intensity, below), above)
			}
		}}
	defs["clamp_intensity_below"] = definition{args: []arg{u16("below")}, selective: sel,
		build: func(v values) applyFunc {
			below := v.Uint16(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.Intensity = max(p.Intensity, below) }
		}}
	defs["clamp_intensity_above"] = definition{args: []arg{u16("above")}, selective: sel,
		build: func(v values) applyFunc {
			above := v.Uint16(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.Intensity = min(p.Intensity, above) }
		}}
	defs["copy_attribute_into_intensity"] = definition{args: []arg{index("index")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index := v.Index(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.Intensity = data.U16Clamp(p.GetAttributeAsFloat(index))
			}
		}}
	defs["bin_gps_time_into_intensity"] = definition{args: []arg{f64("bin_size")}, selective: sel | data.DecompressGpsTime,
		build: func(v values) applyFunc {
			bin := v.Float(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.Intensity = uint16(data.I32Quantize(p.GPSTime/bin) & 0xFFFF)
			}
		}}
	defs["copy_RGB_into_intensity"] = fixed(sel|data.DecompressRGB, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.Intensity = data.U16Quantize(0.2989*float64(p.GetR()) + 0.5870*float64(p.GetG()) + 0.1140*float64(p.GetB()))
	})
	for channel, name := range channelNames {
		channel := channel
		defs["copy_"+name+"_into_intensity"] = fixed(sel|channelSelective(channel), func(p *data.Point, _ *Registers, _ *overflowCounter) {
			p.Intensity = p.RGB[channel]
		})
	}
	return defs
}

func scanAngleDefinitions() map[string]definition {
	const sel = data.DecompressScanAngle
	defs := map[string]definition{}
	defs["set_scan_angle"] = definition{args: []arg{f32("angle")}, selective: sel,
		build: func(v values) applyFunc {
			angle := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetScanAngle(angle) }
		}}
	defs["scale_scan_angle"] = definition{args: []arg{f32("scale")}, selective: sel,
		build: func(v values) applyFunc {
			scale := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetScanAngle(scale * p.GetScanAngle()) }
		}}
	defs["translate_scan_angle"] = definition{args: []arg{f32("offset")}, selective: sel,
		build: func(v values) applyFunc {
			offset := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetScanAngle(offset + p.GetScanAngle()) }
		}}
	defs["translate_then_scale_scan_angle"] = definition{args: []arg{f32("offset"), f32("scale")}, selective: sel,
		build: func(v values) applyFunc {
			offset, scale := v.Float32(0), v.Float32(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.SetScanAngle(scale * (offset + p.GetScanAngle()))
			}
		}}
	return defs
}

func userDataDefinitions() map[string]definition {
	const sel = data.DecompressUserData
	defs := map[string]definition{}
	defs["set_user_data"] = definition{args: []arg{u8("value")}, selective: sel,
		build: func(v values) applyFunc {
			value := v.Uint8(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.UserData = value }
		}}
	defs["scale_user_data"] = definition{args: []arg{f32("scale")}, selective: sel,
		build: func(v values) applyFunc {
			scale := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.UserData = data.U8Clamp(float64(scale * float32(p.UserData)))
			}
		}}
	defs["change_user_data_from_to"] = definition{args: []arg{u8("from"), u8("to")}, selective: sel,
		build: func(v values) applyFunc {
			from, to := v.Uint8(0), v.Uint8(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if p.UserData == from {
					p.UserData = to
				}
			}
		}}
	defs["copy_attribute_into_user_data"] = definition{args: []arg{index("index")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index := v.Index(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.UserData = data.U8Quantize(p.GetAttributeAsFloat(index))
			}
		}}
	defs["add_scaled_attribute_to_user_data"] = definition{args: []arg{index("index"), f32("scale")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index, scale := v.Index(0), float64(v.Float32(1))
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.UserData = data.U8Quantize(p.GetAttributeAsFloat(index)*scale + float64(p.UserData))
			}
		}}
	defs["copy_classification_into_user_data"] = fixed(sel|data.DecompressClassification, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.Classification != 0 {
			p.UserData = p.Classification
		} else {
			p.UserData = p.GetExtendedClassification()
		}
	})
	defs["copy_scanner_channel_into_user_data"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.UserData = p.ExtendedScannerChannel
	})
	defs["copy_register_into_user_data"] = definition{args: []arg{register("register")}, selective: sel,
		build: func(v values) applyFunc {
			index := v.Index(0)
			return func(p *data.Point, r *Registers, _ *overflowCounter) { p.UserData = data.U8Clamp(r[index]) }
		}}
	return defs
}

func pointSourceDefinitions() map[string]definition {
	const sel = data.DecompressPointSource
	defs := map[string]definition{}
	defs["set_point_source"] = definition{args: []arg{u16("psid")}, selective: sel,
		build: func(v values) applyFunc {
			psid := v.Uint16(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.PointSourceID = psid }
		}}
	defs["change_point_source_from_to"] = definition{args: []arg{u16("from"), u16("to")}, selective: sel,
		build: func(v values) applyFunc {
			from, to := v.Uint16(0), v.Uint16(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if p.PointSourceID == from {
					p.PointSourceID = to
				}
			}
		}}
	defs["copy_attribute_into_point_source"] = definition{args: []arg{index("index")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index := v.Index(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.PointSourceID = data.U16Clamp(p.GetAttributeAsFloat(index))
			}
		}}
	defs["copy_user_data_into_point_source"] = fixed(sel|data.DecompressUserData, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.PointSourceID = uint16(p.UserData)
	})
	defs["copy_classification_into_point_source"] = fixed(sel|data.DecompressClassification, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.PointSourceID = uint16(p.GetExtendedClassification())
	})
	defs["copy_scanner_channel_into_point_source"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.PointSourceID = uint16(p.ExtendedScannerChannel)
	})
	defs["merge_scanner_channel_into_point_source"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.PointSourceID = p.PointSourceID<<2 | uint16(p.ExtendedScannerChannel)
	})
	defs["split_scanner_channel_from_point_source"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.SetScannerChannel(uint8(p.PointSourceID & 3))
		p.PointSourceID >>= 2
	})
	defs["bin_gps_time_into_point_source"] = definition{args: []arg{f64("bin_size")}, selective: sel | data.DecompressGpsTime,
		build: func(v values) applyFunc {
			bin := v.Float(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.PointSourceID = uint16(data.I32Quantize(p.GPSTime/bin) & 0xFFFF)
			}
		}}
	defs["bin_Z_into_point_source"] = definition{args: []arg{integer("bin_size", 1, math.MaxInt32)}, selective: sel | data.DecompressZ,
		build: func(v values) applyFunc {
			bin := float64(v.Int(0))
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.PointSourceID = data.U16Clamp(float64(p.Z) / bin)
			}
		}}
	defs["bin_abs_scan_angle_into_point_source"] = definition{args: []arg{f32("bin_size")}, selective: sel | data.DecompressScanAngle,
		build: func(v values) applyFunc {
			bin := v.Float32(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				p.PointSourceID = data.U16Clamp(float64(p.GetAbsScanAngle() / bin))
			}
		}}
	return defs
}

// Compares a classification value against the classic field for the classic range and
// against the extended field otherwise
func classIs(p *data.Point, class uint8) bool {
	if class < 32 {
		return p.Classification == class
	}
	return p.GetExtendedClassification() == class
}

func classificationDefinitions() map[string]definition {
	const sel = data.DecompressClassification
	defs := map[string]definition{}
	defs["set_classification"] = definition{args: []arg{u8("class")}, selective: sel,
		build: func(v values) applyFunc {
			class := v.Uint8(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetExtendedClassification(class) }
		}}
	defs["change_classification_from_to"] = definition{args: []arg{u8("from"), u8("to")}, selective: sel,
		build: func(v values) applyFunc {
			from, to := v.Uint8(0), v.Uint8(1)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if classIs(p, from) {
					p.SetExtendedClassification(to)
				}
			}
		}}
	defs["move_ancient_to_extended_classification"] = fixed(sel|data.DecompressFlags, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if !p.WithheldFlag && !p.KeypointFlag && !p.SyntheticFlag {
			return
		}
		class := p.Classification
		if p.WithheldFlag {
			class |= 128
		}
		if p.KeypointFlag {
			class |= 64
		}
		if p.SyntheticFlag {
			class |= 32
		}
		p.SetExtendedClassification(class)
		p.WithheldFlag, p.KeypointFlag, p.SyntheticFlag = false, false, false
	})

	threshold := func(field string, selective uint32, valueArg func(string) arg, get func(p *data.Point) float64) {
		defs["classify_"+field+"_below_as"] = definition{args: []arg{valueArg(field), u8("class")}, selective: sel | selective,
			build: func(v values) applyFunc {
				below, class := v.Float(0), v.Uint8(1)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					if get(p) < below {
						p.SetExtendedClassification(class)
					}
				}
			}}
		defs["classify_"+field+"_above_as"] = definition{args: []arg{valueArg(field), u8("class")}, selective: sel | selective,
			build: func(v values) applyFunc {
				above, class := v.Float(0), v.Uint8(1)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					if get(p) > above {
						p.SetExtendedClassification(class)
					}
				}
			}}
		defs["classify_"+field+"_between_as"] = definition{args: []arg{valueArg("min_" + field), valueArg("max_" + field), u8("class")}, selective: sel | selective,
			build: func(v values) applyFunc {
				low, high, class := v.Float(0), v.Float(1), v.Uint8(2)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					if value := get(p); low <= value && value <= high {
						p.SetExtendedClassification(class)
					}
				}
			}}
	}
	threshold("z", data.DecompressZ, f64, (*data.Point).GetZ)
	threshold("intensity", data.DecompressIntensity, u16, func(p *data.Point) float64 { return float64(p.Intensity) })

	defs["classify_attribute_below_as"] = definition{args: []arg{index("index"), f64("value"), u8("class")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index, below, class := v.Index(0), v.Float(1), v.Uint8(2)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if p.GetAttributeAsFloat(index) < below {
					p.SetExtendedClassification(class)
				}
			}
		}}
	defs["classify_attribute_above_as"] = definition{args: []arg{index("index"), f64("value"), u8("class")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index, above, class := v.Index(0), v.Float(1), v.Uint8(2)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if p.GetAttributeAsFloat(index) > above {
					p.SetExtendedClassification(class)
				}
			}
		}}
	defs["classify_attribute_between_as"] = definition{args: []arg{index("index"), f64("min_value"), f64("max_value"), u8("class")}, selective: sel | data.DecompressExtraBytes,
		build: func(v values) applyFunc {
			index, low, high, class := v.Index(0), v.Float(1), v.Float(2), v.Uint8(3)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if value := p.GetAttributeAsFloat(index); low <= value && value <= high {
					p.SetExtendedClassification(class)
				}
			}
		}}
	defs["copy_intensity_into_classification"] = fixed(sel|data.DecompressIntensity, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.SetClassification(uint8(p.Intensity))
	})
	defs["copy_user_data_into_classification"] = fixed(sel|data.DecompressUserData, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.ExtendedPointType {
			p.SetExtendedClassification(p.UserData)
		} else {
			p.SetClassification(p.UserData)
		}
	})
	return defs
}

func flagDefinitions() map[string]definition {
	const sel = data.DecompressFlags
	defs := map[string]definition{}
	flag := func(name string, set func(p *data.Point, on bool)) {
		defs[name] = definition{args: []arg{integer("flag", 0, 1)}, selective: sel,
			build: func(v values) applyFunc {
				on := v.Bool(0)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) { set(p, on) }
			}}
	}
	flag("set_withheld_flag", func(p *data.Point, on bool) { p.WithheldFlag = on })
	flag("set_synthetic_flag", func(p *data.Point, on bool) { p.SyntheticFlag = on })
	flag("set_keypoint_flag", func(p *data.Point, on bool) { p.KeypointFlag = on })
	flag("set_overlap_flag", func(p *data.Point, on bool) { p.OverlapFlag = on })
	flag("set_scan_direction_flag", func(p *data.Point, on bool) { p.ScanDirectionFlag = boolByte(on) })
	flag("set_edge_of_flight_line", func(p *data.Point, on bool) { p.EdgeOfFlightLine = boolByte(on) })

	defs["set_scanner_channel"] = definition{args: []arg{integer("channel", 0, 3)}, selective: sel,
		build: func(v values) applyFunc {
			channel := v.Uint8(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.SetScannerChannel(channel) }
		}}
	defs["copy_user_data_into_scanner_channel"] = fixed(sel|data.DecompressUserData, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.SetScannerChannel(p.UserData & 3)
	})
	defs["flip_waveform_direction"] = fixed(data.DecompressWavepacket, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		p.Wavepacket.FlipDirection()
	})
	return defs
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func returnDefinitions() map[string]definition {
	defs := map[string]definition{}
	defs["repair_zero_returns"] = fixed(data.DecompressChannelReturnsXY, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		if p.GetNumberOfReturns() == 0 {
			p.SetNumberOfReturns(1)
		}
		if p.GetReturnNumber() == 0 {
			p.SetReturnNumber(1)
		}
	})
	returnField := func(name string, maxValue int64, get func(p *data.Point) uint8, set func(p *data.Point, v uint8)) {
		defs["set_"+name] = definition{args: []arg{integer(name, 0, maxValue)},
			build: func(v values) applyFunc {
				value := v.Uint8(0)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) { set(p, value) }
			}}
		defs["change_"+name+"_from_to"] = definition{args: []arg{integer("from", 0, maxValue), integer("to", 0, maxValue)},
			build: func(v values) applyFunc {
				from, to := v.Uint8(0), v.Uint8(1)
				return func(p *data.Point, _ *Registers, _ *overflowCounter) {
					if get(p) == from {
						set(p, to)
					}
				}
			}}
	}
	returnField("return_number", 7, func(p *data.Point) uint8 { return p.ReturnNumber }, (*data.Point).SetReturnNumber)
	returnField("number_of_returns", 7, func(p *data.Point) uint8 { return p.NumberOfReturns }, (*data.Point).SetNumberOfReturns)
	returnField("extended_return_number", 15, func(p *data.Point) uint8 { return p.ExtendedReturnNumber }, (*data.Point).SetExtendedReturnNumber)
	returnField("extended_number_of_returns", 15, func(p *data.Point) uint8 { return p.ExtendedNumberOfReturns }, (*data.Point).SetExtendedNumberOfReturns)
	return defs
}

const (
	secondsPerWeek = 604800.0
	// GPS week of the adjusted standard GPS time origin
	adjustedWeekOrigin = 1653.4391534391534
)

func gpsTimeDefinitions() map[string]definition {
	const sel = data.DecompressGpsTime
	defs := map[string]definition{}
	defs["set_gps_time"] = definition{args: []arg{f64("gps_time")}, selective: sel,
		build: func(v values) applyFunc {
			t := v.Float(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.GPSTime = t }
		}}
	defs["translate_gps_time"] = definition{args: []arg{f64("offset")}, selective: sel,
		build: func(v values) applyFunc {
			offset := v.Float(0)
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.GPSTime += offset }
		}}
	defs["adjusted_to_week"] = fixed(sel, func(p *data.Point, _ *Registers, _ *overflowCounter) {
		week := int32(p.GPSTime/secondsPerWeek + adjustedWeekOrigin)
		p.GPSTime -= float64(week)*secondsPerWeek - 1e9
	})
	defs["week_to_adjusted"] = definition{args: []arg{integer("week", 0, math.MaxUint32)}, selective: sel,
		build: func(v values) applyFunc {
			week := float64(v.Int(0))
			return func(p *data.Point, _ *Registers, _ *overflowCounter) { p.GPSTime += week*secondsPerWeek - 1e9 }
		}}
	return defs
}

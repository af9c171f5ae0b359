package filter

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/command"
)

// A keyword parser adds its criteria and returns how many argument tokens follow tokens[i]
type parser func(f *Filter, st *parseState, tokens []string, i int) (int, error)

// State accumulated over one Parse call
type parseState struct {
	keepExtended    [8]uint32
	dropExtended    [8]uint32
	hasKeepExtended bool
	hasDropExtended bool
}

// Describes a keyword that compares one point field against its arguments
type valueSpec struct {
	name  string // criterion name, differs from the keyword for aliases
	field field
	mode  valueMode
	args  []string
	swap  bool // order reversed bounds
}

var parsers = map[string]parser{}

func init() {
	for name, build := range returnCriteria {
		parsers[name] = simpleParser(build)
	}
	for name, build := range flagCriteria {
		parsers[name] = simpleParser(build)
	}
	parsers["first_only"] = simpleParser(returnCriteria["keep_first"])
	parsers["last_only"] = simpleParser(returnCriteria["keep_last"])
	parsers["keep_scan_direction_change"] = simpleParser(NewKeepScanDirectionChange)

	for i := uint8(1); i < uint8(len(multiplicityNames)); i++ {
		n := i
		parsers["keep_"+multiplicityNames[n]] = simpleParser(func() Criterion { return newNumberOfReturns(true, n) })
		parsers["drop_"+multiplicityNames[n]] = simpleParser(func() Criterion { return newNumberOfReturns(false, n) })
	}
	parsers["keep_number_of_returns"] = parseNumberOfReturns(true)
	parsers["drop_number_of_returns"] = parseNumberOfReturns(false)

	for keyword, spec := range valueSpecs() {
		parsers[keyword] = parseValue(spec)
	}
	for _, keyword := range []string{"keep_attribute_below", "keep_attribute_above", "keep_attribute_between",
		"drop_attribute_below", "drop_attribute_above", "drop_attribute_between"} {
		parsers[keyword] = parseAttribute(keyword)
	}
	parsers["keep_point_source"] = parsePointSources(true)
	parsers["drop_point_source"] = parsePointSources(false)

	parsers["keep_tile"] = parseTile
	parsers["keep_circle"] = parseCircle
	parsers["keep_xy"] = parseRectangle(true)
	parsers["drop_xy"] = parseRectangle(false)
	parsers["keep_xyz"] = parseBox(true)
	parsers["drop_xyz"] = parseBox(false)
	parsers["keep_XY"] = parseRawXY

	parsers["keep_return"] = parseReturnList(true)
	parsers["drop_return"] = parseReturnList(false)
	parsers["keep_return_mask"] = parseReturnMask(true)
	parsers["drop_return_mask"] = parseReturnMask(false)
	parsers["keep_class"] = parseClassList(true)
	parsers["keep_classification"] = parseClassList(true)
	parsers["drop_class"] = parseClassList(false)
	parsers["drop_classification"] = parseClassList(false)
	parsers["keep_classification_mask"] = parseClassMask(true)
	parsers["drop_classification_mask"] = parseClassMask(false)
	parsers["keep_extended_class"] = parseExtendedClassList(true)
	parsers["keep_extended_classification"] = parseExtendedClassList(true)
	parsers["drop_extended_class"] = parseExtendedClassList(false)
	parsers["drop_extended_classification"] = parseExtendedClassList(false)
	parsers["drop_extended_classification_mask"] = parseExtendedClassMask

	for source, name := range ndviNames {
		parsers[name] = parseNDVI(source)
	}

	parsers["keep_every_nth"] = parseEveryNth(true)
	parsers["drop_every_nth"] = parseEveryNth(false)
	parsers["keep_random_fraction"] = parseRandomFraction
	parsers["thin_with_grid"] = parseThinWithGrid
	parsers["thin_pulses_with_time"] = parseThinWithTime(true)
	parsers["thin_with_time"] = parseThinWithTime(true)
	parsers["thin_points_with_time"] = parseThinWithTime(false)

	parsers["filter_and"] = parseCombined(true)
	parsers["filter_or"] = parseCombined(false)
}

func valueSpecs() map[string]valueSpec {
	specs := map[string]valueSpec{}
	axes := []struct {
		lower, upper string
		scaled, raw  field
	}{
		{"x", "X", fieldX, fieldRawX},
		{"y", "Y", fieldY, fieldRawY},
		{"z", "Z", fieldZ, fieldRawZ},
	}
	for _, a := range axes {
		for _, v := range []struct {
			suffix string
			f      field
		}{{a.lower, a.scaled}, {a.upper, a.raw}} {
			s := v.suffix
			specs["keep_"+s] = valueSpec{name: "keep_" + s, field: v.f, mode: keepHalfOpen, args: []string{"min_" + s, "max_" + s}}
			specs["drop_"+s] = valueSpec{name: "drop_" + s, field: v.f, mode: dropHalfOpen, args: []string{"min_" + s, "max_" + s}}
			specs["drop_"+s+"_below"] = valueSpec{name: "drop_" + s + "_below", field: v.f, mode: dropBelow, args: []string{"min_" + s}}
			specs["drop_"+s+"_above"] = valueSpec{name: "drop_" + s + "_above", field: v.f, mode: dropAtOrAbove, args: []string{"max_" + s}}
			specs["keep_"+s+"_above"] = valueSpec{name: "drop_" + s + "_below", field: v.f, mode: dropBelow, args: []string{"min_" + s}}
			specs["keep_"+s+"_below"] = valueSpec{name: "drop_" + s + "_above", field: v.f, mode: dropAtOrAbove, args: []string{"max_" + s}}
		}
	}

	ranged := func(prefix string, f field, arg string, swap bool, keepName string) {
		keep := valueSpec{name: keepName, field: f, mode: keepRange, args: []string{"min_" + arg, "max_" + arg}, swap: swap}
		specs[keepName] = keep
		specs["keep_"+prefix+"_between"] = keep
		specs["drop_"+prefix+"_between"] = valueSpec{name: "drop_" + prefix + "_between", field: f, mode: dropRange, args: keep.args, swap: swap}
		specs["drop_"+prefix+"_below"] = valueSpec{name: "drop_" + prefix + "_below", field: f, mode: dropBelow, args: []string{arg}}
		specs["drop_"+prefix+"_above"] = valueSpec{name: "drop_" + prefix + "_above", field: f, mode: dropAbove, args: []string{arg}}
	}
	ranged("intensity", fieldIntensity, "intensity", false, "keep_intensity")
	specs["keep_intensity_below"] = valueSpec{name: "keep_intensity_below", field: fieldIntensity, mode: keepBelow, args: []string{"intensity"}}
	specs["keep_intensity_above"] = valueSpec{name: "keep_intensity_above", field: fieldIntensity, mode: keepAbove, args: []string{"intensity"}}

	ranged("scan_angle", fieldScanAngle, "scan_angle", true, "keep_scan_angle")
	specs["drop_abs_scan_angle_below"] = valueSpec{name: "drop_abs_scan_angle_below", field: fieldAbsScanAngle, mode: dropBelow, args: []string{"scan_angle"}}
	specs["drop_abs_scan_angle_above"] = valueSpec{name: "drop_abs_scan_angle_above", field: fieldAbsScanAngle, mode: dropAbove, args: []string{"scan_angle"}}

	ranged("user_data", fieldUserData, "user_data", false, "keep_user_data_between")
	specs["keep_user_data"] = valueSpec{name: "keep_user_data", field: fieldUserData, mode: keepEqual, args: []string{"user_data"}}
	specs["drop_user_data"] = valueSpec{name: "drop_user_data", field: fieldUserData, mode: dropEqual, args: []string{"user_data"}}
	specs["keep_user_data_below"] = valueSpec{name: "keep_user_data_below", field: fieldUserData, mode: keepBelow, args: []string{"user_data"}}
	specs["keep_user_data_above"] = valueSpec{name: "keep_user_data_above", field: fieldUserData, mode: keepAbove, args: []string{"user_data"}}

	ranged("point_source", fieldPointSource, "ID", false, "keep_point_source_between")

	for _, prefix := range []string{"gps_time", "gpstime"} {
		keep := valueSpec{name: "keep_gps_time", field: fieldGPSTime, mode: keepRange, args: []string{"start", "end"}}
		specs["keep_"+prefix] = keep
		specs["keep_"+prefix+"_between"] = keep
		specs["keep_"+prefix+"_above"] = valueSpec{name: "drop_gps_time_below", field: fieldGPSTime, mode: dropBelow, args: []string{"time"}}
		specs["keep_"+prefix+"_below"] = valueSpec{name: "drop_gps_time_above", field: fieldGPSTime, mode: dropAbove, args: []string{"time"}}
		specs["drop_"+prefix+"_below"] = valueSpec{name: "drop_gps_time_below", field: fieldGPSTime, mode: dropBelow, args: []string{"time"}}
		specs["drop_"+prefix+"_above"] = valueSpec{name: "drop_gps_time_above", field: fieldGPSTime, mode: dropAbove, args: []string{"time"}}
		specs["drop_"+prefix+"_between"] = valueSpec{name: "drop_gps_time_between", field: fieldGPSTime, mode: dropRange, args: []string{"start", "end"}}
	}

	for channel, color := range rgbChannelNames {
		f := rgbField(channel)
		specs["keep_RGB_"+color] = valueSpec{name: "keep_RGB_" + color, field: f, mode: keepRange, args: []string{"min", "max"}, swap: true}
		specs["drop_RGB_"+color] = valueSpec{name: "drop_RGB_" + color, field: f, mode: dropRange, args: []string{"min", "max"}, swap: true}
	}

	specs["keep_wavepacket"] = valueSpec{name: "keep_wavepacket", field: fieldWavepacket, mode: keepEqual, args: []string{"index"}}
	specs["drop_wavepacket"] = valueSpec{name: "drop_wavepacket", field: fieldWavepacket, mode: dropEqual, args: []string{"index"}}
	specs["keep_scanner_channel"] = valueSpec{name: "keep_scanner_channel", field: fieldScannerChannel, mode: keepEqual, args: []string{"channel"}}
	specs["drop_scanner_channel"] = valueSpec{name: "drop_scanner_channel", field: fieldScannerChannel, mode: dropEqual, args: []string{"channel"}}
	specs["drop_scan_direction"] = valueSpec{name: "drop_scan_direction", field: fieldScanDirection, mode: dropEqual, args: []string{"scan_direction"}}
	return specs
}

// Parse adds the criteria named by the recognized tokens and returns their indices, both
// keywords and arguments, so the caller can hand the remaining tokens to other parsers.
// On error the filter is left as it was before the call.
func (f *Filter) Parse(tokens []string) ([]int, error) {
	criteria := append([]Criterion(nil), f.criteria...)
	counters := append([]uint64(nil), f.counters...)
	consumed, err := f.parse(tokens)
	if err != nil {
		f.criteria, f.counters = criteria, counters
		return nil, err
	}
	return consumed, nil
}

func (f *Filter) ParseString(s string) ([]int, error) {
	tokens, err := command.Tokenize(s)
	if err != nil {
		return nil, err
	}
	return f.Parse(tokens)
}

func (f *Filter) parse(tokens []string) ([]int, error) {
	var consumed []int
	st := &parseState{}
	for i := 0; i < len(tokens); i++ {
		if len(tokens[i]) < 2 || tokens[i][0] != '-' {
			continue
		}
		p, ok := parsers[tokens[i][1:]]
		if !ok {
			continue
		}
		n, err := p(f, st, tokens, i)
		if err != nil {
			return nil, err
		}
		for j := i; j <= i+n; j++ {
			consumed = append(consumed, j)
		}
		i += n
	}

	if st.hasKeepExtended {
		if st.hasDropExtended {
			return nil, errors.New("cannot use '-drop_extended_class' and '-keep_extended_class' simultaneously")
		}
		c := &extendedClassMask{}
		for k := range c.drop {
			c.drop[k] = ^st.keepExtended[k]
		}
		f.AddCriterion(c)
	} else if st.hasDropExtended {
		f.AddCriterion(&extendedClassMask{drop: st.dropExtended})
	}
	return consumed, nil
}

func simpleParser(build func() Criterion) parser {
	return func(f *Filter, _ *parseState, _ []string, _ int) (int, error) {
		f.AddCriterion(build())
		return 0, nil
	}
}

func readInts(tokens []string, i int, fld field, names ...string) ([]int64, error) {
	values, err := command.Ints(tokens, i, names...)
	if err != nil {
		return nil, err
	}
	for j, v := range values {
		if err := command.CheckRange(tokens, i, names[j], v, int64(fld.min), int64(fld.max)); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func parseValue(spec valueSpec) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		values := make([]float64, len(spec.args))
		if spec.field.integer {
			ints, err := readInts(tokens, i, spec.field, spec.args...)
			if err != nil {
				return 0, err
			}
			for j, v := range ints {
				values[j] = float64(v)
			}
		} else {
			floats, err := command.Floats(tokens, i, spec.args...)
			if err != nil {
				return 0, err
			}
			copy(values, floats)
		}
		c := &valueCriterion{name: spec.name, field: spec.field, mode: spec.mode, a: values[0]}
		if len(values) == 2 {
			c.b = values[1]
			if spec.swap && c.b < c.a {
				c.a, c.b = c.b, c.a
			}
		}
		f.AddCriterion(c)
		return len(spec.args), nil
	}
}

var attributeModes = map[string]valueMode{
	"keep_attribute_below":   keepBelow,
	"keep_attribute_above":   keepAbove,
	"keep_attribute_between": keepRange,
	"drop_attribute_below":   dropBelow,
	"drop_attribute_above":   dropAbove,
	"drop_attribute_between": dropRange,
}

func parseAttribute(keyword string) parser {
	mode := attributeModes[keyword]
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		names := []string{"index", "value"}
		if mode.arguments() == 2 {
			names = []string{"index", "min", "max"}
		}
		values, err := command.Floats(tokens, i, names...)
		if err != nil {
			return 0, err
		}
		index := values[0]
		if index < 0 || index != math.Trunc(index) {
			return 0, command.NewParseError(tokens, i, "'%s' needs a valid attribute index but '%s' is not", tokens[i], tokens[i+1])
		}
		b := 0.0
		if len(values) == 3 {
			b = values[2]
		}
		f.AddCriterion(newAttributeCriterion(keyword, int(index), mode, values[1], b))
		return len(names), nil
	}
}

// Several IDs after -keep_point_source keep any of them, several after -drop_point_source
// drop any of them
func parsePointSources(keep bool) parser {
	mode := dropEqual
	name := "drop_point_source"
	if keep {
		mode = keepEqual
		name = "keep_point_source"
	}
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		first, err := readInts(tokens, i, fieldPointSource, "ID")
		if err != nil {
			return 0, err
		}
		f.AddCriterion(&valueCriterion{name: name, field: fieldPointSource, mode: mode, a: float64(first[0])})
		n := 1
		for i+n+1 < len(tokens) && command.IsNumber(tokens[i+n+1]) {
			id, err := strconv.ParseInt(tokens[i+n+1], 10, 64)
			if err != nil {
				return 0, command.NewParseError(tokens, i, "'%s' takes one or more IDs but '%s' is no valid ID", tokens[i], tokens[i+n+1])
			}
			if err := command.CheckRange(tokens, i, "ID", id, 0, math.MaxUint16); err != nil {
				return 0, err
			}
			f.AddCriterion(&valueCriterion{name: name, field: fieldPointSource, mode: mode, a: float64(id)})
			f.combineLast(keep)
			n++
		}
		return n, nil
	}
}

// Replaces the last two criteria by their conjunction or disjunction
func (f *Filter) combineLast(and bool) {
	n := len(f.criteria)
	c := &combinedCriterion{and: and, one: f.criteria[n-2], two: f.criteria[n-1]}
	f.criteria = f.criteria[:n-2]
	f.counters = f.counters[:n-2]
	f.AddCriterion(c)
}

func parseCombined(and bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		if len(f.criteria) < 2 {
			return 0, command.NewParseError(tokens, i, "'%s' needs to be preceded by at least two filters", tokens[i])
		}
		f.combineLast(and)
		return 0, nil
	}
}

func parseTile(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
	v, err := command.Floats(tokens, i, "ll_x", "ll_y", "size")
	if err != nil {
		return 0, err
	}
	f.AddCriterion(NewKeepTile(float32(v[0]), float32(v[1]), float32(v[2])))
	return 3, nil
}

func parseCircle(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
	v, err := command.Floats(tokens, i, "center_x", "center_y", "radius")
	if err != nil {
		return 0, err
	}
	f.AddCriterion(NewKeepCircle(v[0], v[1], v[2]))
	return 3, nil
}

func parseRectangle(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Floats(tokens, i, "min_x", "min_y", "max_x", "max_y")
		if err != nil {
			return 0, err
		}
		f.AddCriterion(newRectangle(keep, v[0], v[1], v[2], v[3]))
		return 4, nil
	}
}

func parseBox(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Floats(tokens, i, "min_x", "min_y", "min_z", "max_x", "max_y", "max_z")
		if err != nil {
			return 0, err
		}
		f.AddCriterion(&boxCriterion{keep: keep, threeD: true, min: [3]float64{v[0], v[1], v[2]}, max: [3]float64{v[3], v[4], v[5]}})
		return 6, nil
	}
}

func parseRawXY(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
	v, err := readInts(tokens, i, fieldRawX, "min_X", "min_Y", "max_X", "max_Y")
	if err != nil {
		return 0, err
	}
	f.AddCriterion(&keepRawXY{belowX: int32(v[0]), belowY: int32(v[1]), aboveX: int32(v[2]), aboveY: int32(v[3])})
	return 4, nil
}

func parseNumberOfReturns(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := readInts(tokens, i, fieldNumberOfReturns, "number_of_returns")
		if err != nil {
			return 0, err
		}
		f.AddCriterion(newNumberOfReturns(keep, uint8(v[0])))
		return 1, nil
	}
}

// Reads the unsigned numbers following tokens[i], at least one, each within [0, max]
func readList(tokens []string, i int, name string, max int64) ([]int64, error) {
	var values []int64
	for j := i + 1; j < len(tokens) && command.IsNumber(tokens[j]); j++ {
		v, err := strconv.ParseInt(tokens[j], 10, 64)
		if err != nil {
			return nil, command.NewParseError(tokens, i, "'%s' needs at least 1 argument: %s but '%s' is no valid %s", tokens[i], name, tokens[j], name)
		}
		if err := command.CheckRange(tokens, i, name, v, 0, max); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, command.NewParseError(tokens, i, "'%s' needs at least 1 argument: %s", tokens[i], name)
	}
	return values, nil
}

// Masks merge into an earlier mask criterion of the same kind, which is replaced rather
// than mutated so a failed Parse can restore it
func (f *Filter) addReturnMask(keep bool, mask uint16) {
	for i, c := range f.criteria {
		if m, ok := c.(*returnMask); ok && m.keep == keep {
			merged := *m
			if keep {
				merged.drop &^= mask
			} else {
				merged.drop |= mask
			}
			f.criteria[i] = &merged
			return
		}
	}
	if keep {
		f.AddCriterion(newKeepReturns(mask))
	} else {
		f.AddCriterion(newDropReturns(mask))
	}
}

func parseReturnList(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		values, err := readList(tokens, i, "return_number", 15)
		if err != nil {
			return 0, err
		}
		var mask uint16
		for _, v := range values {
			mask |= 1 << uint(v)
		}
		f.addReturnMask(keep, mask)
		return len(values), nil
	}
}

func parseReturnMask(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Ints(tokens, i, "mask")
		if err != nil {
			return 0, err
		}
		if err := command.CheckRange(tokens, i, "mask", v[0], 0, math.MaxUint16); err != nil {
			return 0, err
		}
		f.addReturnMask(keep, uint16(v[0]))
		return 1, nil
	}
}

func (f *Filter) addClassMask(keep bool, mask uint32) {
	for i, c := range f.criteria {
		if m, ok := c.(*classMask); ok && m.keep == keep {
			merged := *m
			if keep {
				merged.drop &^= mask
			} else {
				merged.drop |= mask
			}
			f.criteria[i] = &merged
			return
		}
	}
	if keep {
		f.AddCriterion(newKeepClasses(mask))
	} else {
		f.AddCriterion(newDropClasses(mask))
	}
}

func parseClassList(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		values, err := readList(tokens, i, "classification", 31)
		if err != nil {
			return 0, err
		}
		var mask uint32
		for _, v := range values {
			mask |= 1 << uint(v)
		}
		f.addClassMask(keep, mask)
		return len(values), nil
	}
}

func parseClassMask(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Ints(tokens, i, "mask")
		if err != nil {
			return 0, err
		}
		if err := command.CheckRange(tokens, i, "mask", v[0], 0, math.MaxUint32); err != nil {
			return 0, err
		}
		f.addClassMask(keep, uint32(v[0]))
		return 1, nil
	}
}

func parseExtendedClassList(keep bool) parser {
	return func(f *Filter, st *parseState, tokens []string, i int) (int, error) {
		values, err := readList(tokens, i, "classification", 255)
		if err != nil {
			return 0, err
		}
		for _, v := range values {
			if keep {
				st.keepExtended[v/32] |= 1 << uint(v%32)
				st.hasKeepExtended = true
			} else {
				st.dropExtended[v/32] |= 1 << uint(v%32)
				st.hasDropExtended = true
			}
		}
		return len(values), nil
	}
}

// The eight words are given from the highest classes down
func parseExtendedClassMask(f *Filter, st *parseState, tokens []string, i int) (int, error) {
	names := []string{"mask7", "mask6", "mask5", "mask4", "mask3", "mask2", "mask1", "mask0"}
	v, err := command.Ints(tokens, i, names...)
	if err != nil {
		return 0, err
	}
	for j := range v {
		if err := command.CheckRange(tokens, i, names[j], v[j], 0, math.MaxUint32); err != nil {
			return 0, err
		}
		st.dropExtended[7-j] |= uint32(v[j])
	}
	st.hasDropExtended = true
	return 8, nil
}

func parseNDVI(source ndviSource) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Floats(tokens, i, "min_NDVI", "max_NDVI")
		if err != nil {
			return 0, err
		}
		f.AddCriterion(newKeepNDVI(source, float32(v[0]), float32(v[1])))
		return 2, nil
	}
}

func parseEveryNth(keep bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Ints(tokens, i, "nth")
		if err != nil {
			return 0, err
		}
		if err := command.CheckRange(tokens, i, "nth", v[0], 1, math.MaxUint32); err != nil {
			return 0, err
		}
		f.AddCriterion(newEveryNth(keep, uint32(v[0])))
		return 1, nil
	}
}

// -keep_random_fraction [seed] fraction
func parseRandomFraction(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
	if i+2 < len(tokens) && command.IsNumber(tokens[i+2]) {
		v, err := command.Floats(tokens, i, "seed", "fraction")
		if err != nil {
			return 0, err
		}
		if v[0] < 0 || v[0] > math.MaxUint32 || v[0] != math.Trunc(v[0]) {
			return 0, command.NewParseError(tokens, i, "'%s' needs 2 arguments: seed fraction but '%s' is no valid seed", tokens[i], tokens[i+1])
		}
		f.AddCriterion(newRandomFraction(uint32(v[0]), float32(v[1])))
		return 2, nil
	}
	v, err := command.Floats(tokens, i, "fraction")
	if err != nil {
		return 0, err
	}
	f.AddCriterion(newRandomFraction(0, float32(v[0])))
	return 1, nil
}

func parseThinWithGrid(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
	v, err := command.Floats(tokens, i, "grid_spacing")
	if err != nil {
		return 0, err
	}
	if v[0] == 0 {
		return 0, command.NewParseError(tokens, i, "'%s' needs a non-zero grid_spacing", tokens[i])
	}
	f.AddCriterion(newThinWithGrid(v[0]))
	return 1, nil
}

func parseThinWithTime(pulses bool) parser {
	return func(f *Filter, _ *parseState, tokens []string, i int) (int, error) {
		v, err := command.Floats(tokens, i, "time_spacing")
		if err != nil {
			return 0, err
		}
		if v[0] == 0 {
			return 0, command.NewParseError(tokens, i, "'%s' needs a non-zero time_spacing", tokens[i])
		}
		f.AddCriterion(newThinWithTime(pulses, v[0]))
		return 1, nil
	}
}

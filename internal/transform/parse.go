package transform

import (
	"math"
	"sort"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
	"github.com/ecopia-map/las_merger/internal/filter"
)

// Describes an operation whose parameters are all read from the argument vector
type definition struct {
	name      string // canonical name, set from the keyword when empty
	args      []arg
	selective uint32
	build     func(v values) applyFunc
}

// A keyword parser builds one operation and returns how many argument tokens follow tokens[i]
type opParser func(tokens []string, i int) (Operation, int, error)

const filteredKeyword = "filtered_transform"

var parsers = map[string]opParser{}

// Alternative keywords, the operations they build carry the canonical name
var aliases = map[string]string{
	"copy_attribute_into_I":                  "copy_attribute_into_intensity",
	"copy_register_into_I":                   "copy_register_into_intensity",
	"set_extended_classification":            "set_classification",
	"change_class_from_to":                   "change_classification_from_to",
	"change_extended_classification_from_to": "change_classification_from_to",
	"change_extended_class_from_to":          "change_classification_from_to",
	"set_RGB_of_extended_class":              "set_RGB_of_class",
	"scale_rgb":                              "scale_RGB",
	"scale_rgb_down":                         "scale_RGB_down",
	"scale_rgb_up":                           "scale_RGB_up",
	"scale_rgb_to_8bit":                      "scale_RGB_to_8bit",
	"scale_rgb_to_16bit":                     "scale_RGB_to_16bit",
	"scale_nir":                              "scale_NIR",
	"scale_nir_down":                         "scale_NIR_down",
	"scale_nir_up":                           "scale_NIR_up",
	"scale_nir_to_8bit":                      "scale_NIR_to_8bit",
	"scale_nir_to_16bit":                     "scale_NIR_to_16bit",
}

func init() {
	catalogue := []map[string]definition{
		coordinateDefinitions(),
		intensityDefinitions(),
		scanAngleDefinitions(),
		userDataDefinitions(),
		pointSourceDefinitions(),
		classificationDefinitions(),
		flagDefinitions(),
		returnDefinitions(),
		gpsTimeDefinitions(),
		colorDefinitions(),
		registerDefinitions(),
		attributeDefinitions(),
	}
	for _, defs := range catalogue {
		for keyword, d := range defs {
			if d.name == "" {
				d.name = keyword
			}
			parsers[keyword] = d.parser()
		}
	}

	parsers["translate_raw_xy_at_random"] = parseRandomJitter
	parsers["load_attribute_from_text"] = parseTextAttribute
	parsers["map_attribute_into_RGB"] = parseColorRamp
	parsers["reproject_epsg"] = parseReprojection
	parsers["map_intensity"] = parseValueMap("map_intensity", data.DecompressIntensity, math.MaxUint16,
		func(p *data.Point) uint32 { return uint32(p.Intensity) },
		func(p *data.Point, v uint32) { p.Intensity = uint16(v) })
	parsers["map_user_data"] = parseValueMap("map_user_data", data.DecompressUserData, math.MaxUint8,
		func(p *data.Point) uint32 { return uint32(p.UserData) },
		func(p *data.Point, v uint32) { p.UserData = uint8(v) })
	parsers["map_point_source"] = parseValueMap("map_point_source", data.DecompressPointSource, math.MaxUint16,
		func(p *data.Point) uint32 { return uint32(p.PointSourceID) },
		func(p *data.Point, v uint32) { p.PointSourceID = uint16(v) })

	for alias, keyword := range aliases {
		parsers[alias] = parsers[keyword]
	}
}

func (d definition) parser() opParser {
	return func(tokens []string, i int) (Operation, int, error) {
		v, formatted, err := readArgs(tokens, i, d.args)
		if err != nil {
			return nil, 0, err
		}
		op := &funcOp{name: d.name, args: formatted, selective: d.selective, apply: d.build(v)}
		return op, len(d.args), nil
	}
}

// Reports whether the keyword, without its leading dash, names an operation
func IsOperation(keyword string) bool {
	_, ok := parsers[keyword]
	return ok || keyword == filteredKeyword
}

// Parse appends the operations named by the recognized tokens and returns the indices of
// every token it used. When "-filtered_transform" is present the filter criteria among the
// remaining tokens are parsed into the pipeline's own filter. On error the pipeline is left
// as it was before the call.
func (t *Pipeline) Parse(tokens []string) ([]int, error) {
	operations := append([]Operation(nil), t.operations...)
	f := t.filter
	consumed, err := t.parse(tokens)
	if err != nil {
		for _, op := range t.operations[len(operations):] {
			closeOperation(op)
		}
		t.operations, t.filter = operations, f
		return nil, err
	}
	return consumed, nil
}

func (t *Pipeline) ParseString(s string) ([]int, error) {
	tokens, err := command.Tokenize(s)
	if err != nil {
		return nil, err
	}
	return t.Parse(tokens)
}

func (t *Pipeline) parse(tokens []string) ([]int, error) {
	var consumed []int
	filtered := -1
	for i := 0; i < len(tokens); i++ {
		if len(tokens[i]) < 2 || tokens[i][0] != '-' {
			continue
		}
		keyword := tokens[i][1:]
		if keyword == filteredKeyword {
			filtered = i
			consumed = append(consumed, i)
			continue
		}
		p, ok := parsers[keyword]
		if !ok {
			continue
		}
		op, n, err := p(tokens, i)
		if err != nil {
			return nil, err
		}
		t.AddOperation(op)
		for j := i; j <= i+n; j++ {
			consumed = append(consumed, j)
		}
		i += n
	}
	if filtered < 0 {
		return consumed, nil
	}

	rest := append([]string(nil), tokens...)
	for _, j := range consumed {
		rest[j] = ""
	}
	f := filter.NewFilter()
	if t.filter != nil {
		f = t.filter
	}
	used, err := f.Parse(rest)
	if err != nil {
		return nil, err
	}
	if !f.Active() {
		return nil, command.NewParseError(tokens, filtered, "'%s' needs at least one filter criterion", tokens[filtered])
	}
	t.filter = f
	consumed = append(consumed, used...)
	sort.Ints(consumed)
	return consumed, nil
}

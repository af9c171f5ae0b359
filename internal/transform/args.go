package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/ecopia-map/las_merger/internal/command"
)

type argKind int

const (
	argFloat   argKind = iota
	argFloat32         // parsed and printed with single precision
	argInt
	argList // comma separated floats
	argFile
)

// Describes one argument of an operation keyword
type arg struct {
	name     string
	kind     argKind
	min, max int64 // argInt bounds
	count    int   // argList length
}

func f64(name string) arg  { return arg{name: name, kind: argFloat} }
func f32(name string) arg  { return arg{name: name, kind: argFloat32} }
func file(name string) arg { return arg{name: name, kind: argFile} }
func list(name string, count int) arg {
	return arg{name: name, kind: argList, count: count}
}
func integer(name string, min, max int64) arg {
	return arg{name: name, kind: argInt, min: min, max: max}
}
func u8(name string) arg       { return integer(name, 0, math.MaxUint8) }
func u16(name string) arg      { return integer(name, 0, math.MaxUint16) }
func i32(name string) arg      { return integer(name, math.MinInt32, math.MaxInt32) }
func register(name string) arg { return integer(name, 0, RegisterCount-1) }
func index(name string) arg    { return integer(name, 0, math.MaxUint16) }

type value struct {
	f    float64
	i    int64
	s    string
	list []float64
}

type values []value

func (v values) Float(i int) float64   { return v[i].f }
func (v values) Float32(i int) float32 { return float32(v[i].f) }
func (v values) Int(i int) int64       { return v[i].i }
func (v values) Str(i int) string      { return v[i].s }
func (v values) List(i int) []float64  { return v[i].list }
func (v values) Index(i int) int       { return int(v[i].i) }
func (v values) Uint8(i int) uint8     { return uint8(v[i].i) }
func (v values) Uint16(i int) uint16   { return uint16(v[i].i) }
func (v values) Int32(i int) int32     { return int32(v[i].i) }
func (v values) Bool(i int) bool       { return v[i].i != 0 }

// Parses the arguments following tokens[i] and returns their values together with their
// lossless string forms
func readArgs(tokens []string, i int, specs []arg) (values, []string, error) {
	names := make([]string, len(specs))
	for j, s := range specs {
		names[j] = s.name
	}
	if i+len(specs) >= len(tokens) {
		return nil, nil, command.NewParseError(tokens, i, "%s", command.Needs(tokens, i, names))
	}
	vals := make(values, len(specs))
	formatted := make([]string, len(specs))
	for j, s := range specs {
		token := tokens[i+1+j]
		invalid := func() error {
			return command.NewParseError(tokens, i, "%s but '%s' is no valid %s", command.Needs(tokens, i, names), token, s.name)
		}
		switch s.kind {
		case argFloat:
			v, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, nil, invalid()
			}
			vals[j].f = v
			formatted[j] = command.Float(v)
		case argFloat32:
			v, err := strconv.ParseFloat(token, 32)
			if err != nil {
				return nil, nil, invalid()
			}
			vals[j].f = v
			formatted[j] = command.Float32(float32(v))
		case argInt:
			v, err := strconv.ParseInt(token, 10, 64)
			if err != nil {
				return nil, nil, invalid()
			}
			if err := command.CheckRange(tokens, i, s.name, v, s.min, s.max); err != nil {
				return nil, nil, err
			}
			vals[j].i = v
			vals[j].f = float64(v)
			formatted[j] = command.Int(v)
		case argList:
			parts := strings.Split(token, ",")
			if len(parts) != s.count {
				return nil, nil, invalid()
			}
			out := make([]string, len(parts))
			for k, part := range parts {
				v, err := strconv.ParseFloat(part, 64)
				if err != nil {
					return nil, nil, invalid()
				}
				vals[j].list = append(vals[j].list, v)
				out[k] = command.Float(v)
			}
			formatted[j] = strings.Join(out, ",")
		case argFile:
			vals[j].s = command.Unquote(token)
			formatted[j] = command.Quote(vals[j].s)
		}
	}
	return vals, formatted, nil
}

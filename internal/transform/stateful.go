package transform

import (
	"bufio"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/converters"
	"github.com/ecopia-map/las_merger/internal/converters/proj4_coordinate_converter"
	"github.com/ecopia-map/las_merger/internal/data"
)

// Adds a pseudo random raw offset in [-max, max] to X and Y. The sequence restarts on Reset.
type randomJitter struct {
	overflowCounter
	maxX, maxY int32
	rng        *rand.Rand
}

func newRandomJitter(maxX, maxY int32) *randomJitter {
	return &randomJitter{maxX: maxX, maxY: maxY, rng: rand.New(rand.NewSource(0))}
}

func (o *randomJitter) Name() string                { return "translate_raw_xy_at_random" }
func (o *randomJitter) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }
func (o *randomJitter) Reset()                      { o.rng.Seed(0) }

func (o *randomJitter) Command() string {
	return command.Join(o.Name(), command.Int(int64(o.maxX)), command.Int(int64(o.maxY)))
}

func (o *randomJitter) next() uint32 {
	return uint32(o.rng.Int31())
}

func (o *randomJitter) Apply(p *data.Point, _ *Registers) {
	rx := int32((o.next()>>3)%uint32(2*o.maxX+1)) - o.maxX
	ry := int32((o.next()>>6)%uint32(2*o.maxY+1)) - o.maxY
	p.X += rx
	p.Y += ry
}

func parseRandomJitter(tokens []string, i int) (Operation, int, error) {
	specs := []arg{integer("max_raw_offset_x", 0, math.MaxInt32/2), integer("max_raw_offset_y", 0, math.MaxInt32/2)}
	v, _, err := readArgs(tokens, i, specs)
	if err != nil {
		return nil, 0, err
	}
	return newRandomJitter(v.Int32(0), v.Int32(1)), len(specs), nil
}

// Streams one attribute value per point from a text file, one number per line. Lines that
// do not parse are skipped, at the end of the file the attribute is left untouched.
type textAttribute struct {
	overflowCounter
	index    int
	fileName string
	file     *os.File
	scanner  *bufio.Scanner
}

func newTextAttribute(index int, fileName string) (*textAttribute, error) {
	o := &textAttribute{index: index, fileName: fileName}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *textAttribute) Name() string                { return "load_attribute_from_text" }
func (o *textAttribute) DecompressSelective() uint32 { return data.DecompressExtraBytes }

func (o *textAttribute) Command() string {
	return command.Join(o.Name(), command.Int(int64(o.index)), command.Quote(o.fileName))
}

func (o *textAttribute) open() error {
	file, err := os.Open(o.fileName)
	if err != nil {
		return errors.Wrapf(err, "opening attribute file '%s'", o.fileName)
	}
	o.file = file
	o.scanner = bufio.NewScanner(file)
	return nil
}

func (o *textAttribute) Apply(p *data.Point, _ *Registers) {
	if o.file == nil {
		return
	}
	for o.scanner.Scan() {
		fields := strings.Fields(o.scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if value, err := strconv.ParseFloat(fields[0], 64); err == nil {
			p.SetAttributeAsFloat(o.index, value)
			return
		}
	}
	o.Close()
}

// Reset rewinds the file to its first line
func (o *textAttribute) Reset() {
	o.Close()
	if err := o.open(); err != nil {
		glog.Warningf("'%s' loads no more values: %v", strings.TrimSpace(o.Command()), err)
	}
}

func (o *textAttribute) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file, o.scanner = nil, nil
	return err
}

func parseTextAttribute(tokens []string, i int) (Operation, int, error) {
	specs := []arg{index("index"), file("file_name")}
	v, _, err := readArgs(tokens, i, specs)
	if err != nil {
		return nil, 0, err
	}
	o, err := newTextAttribute(v.Index(0), v.Str(1))
	if err != nil {
		return nil, 0, command.NewParseError(tokens, i, "'%s' cannot open '%s'", tokens[i], v.Str(1))
	}
	return o, len(specs), nil
}

// Reads the "from to" lines of a value map file. Pairs outside [0, limit] are ignored.
func readValueMap(fileName string, limit uint32) (map[uint32]uint32, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "opening map file '%s'", fileName)
	}
	defer file.Close()

	table := make(map[uint32]uint32)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		from, errFrom := strconv.ParseUint(fields[0], 10, 32)
		to, errTo := strconv.ParseUint(fields[1], 10, 32)
		if errFrom != nil || errTo != nil || from > uint64(limit) || to > uint64(limit) {
			continue
		}
		table[uint32(from)] = uint32(to)
	}
	return table, errors.Wrapf(scanner.Err(), "reading map file '%s'", fileName)
}

// Builds the parser of an operation that replaces a field through a value map file,
// values missing from the file are kept
func parseValueMap(name string, selective uint32, limit uint32, get func(p *data.Point) uint32, set func(p *data.Point, v uint32)) opParser {
	return func(tokens []string, i int) (Operation, int, error) {
		specs := []arg{file("file_name")}
		v, formatted, err := readArgs(tokens, i, specs)
		if err != nil {
			return nil, 0, err
		}
		table, err := readValueMap(v.Str(0), limit)
		if err != nil {
			return nil, 0, command.NewParseError(tokens, i, "'%s' cannot read '%s'", tokens[i], v.Str(0))
		}
		op := &funcOp{name: name, args: formatted, selective: selective,
			apply: func(p *data.Point, _ *Registers, _ *overflowCounter) {
				if to, ok := table[get(p)]; ok {
					set(p, to)
				}
			}}
		return op, len(specs), nil
	}
}

// One "value R G B" line of a color ramp file
type colorEntry struct {
	value   float64
	r, g, b uint16
}

func readColorRamp(fileName string) ([]colorEntry, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "opening color file '%s'", fileName)
	}
	defer file.Close()

	var ramp []colorEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		var rgb [3]uint64
		valid := true
		for c := range rgb {
			rgb[c], err = strconv.ParseUint(fields[1+c], 10, 8)
			valid = valid && err == nil
		}
		if valid {
			ramp = append(ramp, colorEntry{value: value, r: uint16(rgb[0]), g: uint16(rgb[1]), b: uint16(rgb[2])})
		}
	}
	return ramp, errors.Wrapf(scanner.Err(), "reading color file '%s'", fileName)
}

func (c colorEntry) apply(p *data.Point) {
	p.SetRGB(c.r, c.g, c.b)
}

// Picks the ramp entry nearest to value, values beyond the first or last entry take its
// color
func nearestColor(ramp []colorEntry, value float64) colorEntry {
	if value <= ramp[0].value {
		return ramp[0]
	}
	last := len(ramp) - 1
	if value >= ramp[last].value {
		return ramp[last]
	}
	best := 0
	for k := 1; k < len(ramp); k++ {
		if math.Abs(value-ramp[k].value) < math.Abs(value-ramp[best].value) {
			best = k
		}
	}
	return ramp[best]
}

func parseColorRamp(tokens []string, i int) (Operation, int, error) {
	specs := []arg{index("index"), file("file_name")}
	v, formatted, err := readArgs(tokens, i, specs)
	if err != nil {
		return nil, 0, err
	}
	ramp, err := readColorRamp(v.Str(1))
	if err != nil {
		return nil, 0, command.NewParseError(tokens, i, "'%s' cannot read '%s'", tokens[i], v.Str(1))
	}
	index := v.Index(0)
	op := &funcOp{name: "map_attribute_into_RGB", args: formatted, selective: data.DecompressRGB | data.DecompressExtraBytes,
		apply: func(p *data.Point, _ *Registers, _ *overflowCounter) {
			if len(ramp) > 0 {
				nearestColor(ramp, p.GetAttributeAsFloat(index)).apply(p)
			}
		}}
	return op, len(specs), nil
}

// Reprojects the scaled coordinates between two EPSG systems
type reprojection struct {
	overflowCounter
	source, target int
	converter      converters.CoordinateConverter
}

func (o *reprojection) Name() string { return "reproject_epsg" }
func (o *reprojection) DecompressSelective() uint32 {
	return data.DecompressChannelReturnsXY | data.DecompressZ
}
func (o *reprojection) Reset() {}

func (o *reprojection) Command() string {
	return command.Join(o.Name(), command.Int(int64(o.source)), command.Int(int64(o.target)))
}

func (o *reprojection) Apply(p *data.Point, _ *Registers) {
	out, err := o.converter.ConvertCoordinateSrid(o.source, o.target, getVec(p))
	if err != nil {
		o.overflow++
		return
	}
	setVec(p, out, &o.overflowCounter)
}

func (o *reprojection) Close() error {
	o.converter.Cleanup()
	return nil
}

func parseReprojection(tokens []string, i int) (Operation, int, error) {
	specs := []arg{integer("source_epsg", 1, math.MaxInt32), integer("target_epsg", 1, math.MaxInt32)}
	v, _, err := readArgs(tokens, i, specs)
	if err != nil {
		return nil, 0, err
	}
	for k := 0; k < 2; k++ {
		if !proj4_coordinate_converter.IsSupported(v.Index(k)) {
			return nil, 0, command.NewParseError(tokens, i, "'%s' does not know EPSG code %d", tokens[i], v.Index(k))
		}
	}
	o := &reprojection{
		source:    v.Index(0),
		target:    v.Index(1),
		converter: proj4_coordinate_converter.NewProj4CoordinateConverter(),
	}
	return o, len(specs), nil
}

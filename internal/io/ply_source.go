package io

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

type plyProperty struct {
	name   string
	kind   string
	size   int
	target string // point field, empty for extra attributes
	attr   int
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

// Vertex property names mapped to point fields
var plyTargets = map[string]string{
	"x": "x", "y": "y", "z": "z",
	"red": "R", "r": "R", "diffuse_red": "R",
	"green": "G", "g": "G", "diffuse_green": "G",
	"blue": "B", "b": "B", "diffuse_blue": "B",
	"nir": "I", "near_infrared": "I",
	"intensity": "i", "scalar_intensity": "i",
	"classification": "c", "scalar_classification": "c",
	"gps_time": "t", "time": "t", "scalar_gps_time": "t",
	"return_number": "r", "scalar_return_number": "r",
	"number_of_returns": "n", "scalar_number_of_returns": "n",
	"user_data": "u", "point_source_id": "p", "scan_angle": "a",
}

type plySource struct {
	name       string
	file       *os.File
	reader     *bufio.Reader
	binary     bool
	vertices   uint64
	properties []plyProperty
	record     []byte
	bodyOffset int64
	read       uint64
	fields     txtSource
}

// OpenPlyReader opens the vertex element of an ascii or binary little endian PLY file
func OpenPlyReader(name string, opts ReaderOptions) (*ScanReader, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening '%s'", name)
	}
	if opts.ScaleIntensity == 0 {
		opts.ScaleIntensity = 1
	}
	if opts.ScaleScanAngle == 0 {
		opts.ScaleScanAngle = 1
	}
	src := &plySource{name: name, file: file, fields: txtSource{name: name, opts: opts}}
	if err := src.readHeader(); err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "reading header of '%s'", name)
	}

	var layout strings.Builder
	var attributes []data.AttributeDescriptor
	for i := range src.properties {
		prop := &src.properties[i]
		if prop.target != "" {
			layout.WriteString(prop.target)
			continue
		}
		prop.attr = len(attributes)
		attributes = append(attributes, data.AttributeDescriptor{DataType: data.AttributeDouble, Name: prop.name})
	}
	format, _, err := txtLayout(layout.String())
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "'%s'", name)
	}
	return newScanReader(name, src, newScanHeader(format, attributes), opts)
}

func (s *plySource) readHeader() error {
	r := bufio.NewReader(s.file)
	var offset int64
	line := func() (string, error) {
		l, err := r.ReadString('\n')
		offset += int64(len(l))
		return strings.TrimSpace(l), err
	}

	if magic, err := line(); err != nil || magic != "ply" {
		return errors.New("missing 'ply' signature")
	}
	element := ""
	seen := 0
	for {
		l, err := line()
		if err != nil {
			return errors.Wrap(err, "header ends before 'end_header'")
		}
		words := strings.Fields(l)
		if len(words) == 0 {
			continue
		}
		switch words[0] {
		case "format":
			if len(words) < 2 {
				return errors.Errorf("malformed '%s'", l)
			}
			switch words[1] {
			case "ascii":
			case "binary_little_endian":
				s.binary = true
			default:
				return errors.Errorf("format '%s' is not supported", words[1])
			}
		case "element":
			if len(words) != 3 {
				return errors.Errorf("malformed '%s'", l)
			}
			element = words[1]
			seen++
			if element == "vertex" {
				if seen != 1 {
					return errors.New("the vertex element must come first")
				}
				n, err := strconv.ParseUint(words[2], 10, 64)
				if err != nil {
					return errors.Errorf("'%s' is no valid vertex count", words[2])
				}
				s.vertices = n
			}
		case "property":
			if element != "vertex" {
				continue
			}
			if len(words) != 3 {
				return errors.Errorf("vertex property '%s' is not supported", l)
			}
			size, ok := plyTypeSizes[words[1]]
			if !ok {
				return errors.Errorf("unknown property type '%s'", words[1])
			}
			s.properties = append(s.properties, plyProperty{
				name:   words[2],
				kind:   words[1],
				size:   size,
				target: plyTargets[strings.ToLower(words[2])],
			})
		case "end_header":
			if s.properties == nil {
				return errors.New("no vertex element")
			}
			s.bodyOffset = offset
			size := 0
			for _, p := range s.properties {
				size += p.size
			}
			s.record = make([]byte, size)
			return s.rewind()
		}
	}
}

func (s *plySource) next(p *data.Point) ([3]float64, error) {
	var c [3]float64
	if s.read >= s.vertices {
		return c, io.EOF
	}
	if s.binary {
		if _, err := io.ReadFull(s.reader, s.record); err != nil {
			return c, errors.Wrapf(err, "reading vertex %d of '%s'", s.read, s.name)
		}
		off := 0
		for _, prop := range s.properties {
			s.set(prop, decodePlyValue(s.record[off:], prop.kind), p, &c)
			off += prop.size
		}
	} else {
		var words []string
		for len(words) == 0 {
			l, err := s.reader.ReadString('\n')
			if err != nil && (err != io.EOF || l == "") {
				return c, errors.Wrapf(io.ErrUnexpectedEOF, "reading vertex %d of '%s'", s.read, s.name)
			}
			words = strings.Fields(l)
		}
		if len(words) < len(s.properties) {
			return c, errors.Errorf("vertex %d of '%s' has %d values, expected %d", s.read, s.name, len(words), len(s.properties))
		}
		for i, prop := range s.properties {
			v, err := strconv.ParseFloat(words[i], 64)
			if err != nil || !finite(v) {
				return c, errors.Errorf("vertex %d of '%s': '%s' is no valid number", s.read, s.name, words[i])
			}
			s.set(prop, v, p, &c)
		}
	}
	s.read++
	return c, nil
}

func (s *plySource) set(prop plyProperty, v float64, p *data.Point, c *[3]float64) {
	if prop.target == "" {
		p.SetAttributeAsFloat(prop.attr, v)
		return
	}
	s.fields.setField(rune(prop.target[0]), v, p, c)
}

func decodePlyValue(b []byte, kind string) float64 {
	switch kind {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(le.Uint16(b)))
	case "ushort", "uint16":
		return float64(le.Uint16(b))
	case "int", "int32":
		return float64(int32(le.Uint32(b)))
	case "uint", "uint32":
		return float64(le.Uint32(b))
	case "float", "float32":
		return float64(math.Float32frombits(le.Uint32(b)))
	}
	return math.Float64frombits(le.Uint64(b))
}

func (s *plySource) rewind() error {
	if _, err := s.file.Seek(s.bodyOffset, io.SeekStart); err != nil {
		return err
	}
	s.reader = bufio.NewReader(s.file)
	s.read = 0
	return nil
}

func (s *plySource) close() error {
	return s.file.Close()
}

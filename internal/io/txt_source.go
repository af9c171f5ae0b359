package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Letters of a TXT parse string. Each letter names the meaning of one column:
//
//	x y z  coordinates                 t  gps time
//	i      intensity                   a  scan angle
//	r      return number               n  number of returns
//	c      classification              u  user data
//	p      point source id             s  skipped column
//	R G B  color channels              I  near infrared
//	e      edge of flight line         d  scan direction
//	h      withheld flag               k  keypoint flag
//	g      synthetic flag              0-9 extra attribute with that index
const txtLetters = "xyztiarncupsRGBIedhkg0123456789"

type txtSource struct {
	name    string
	file    *os.File
	scanner *bufio.Scanner
	parse   string
	opts    ReaderOptions
	line    int
}

// OpenTxtReader opens a delimited text file whose columns are described by the parse string
// of opts
func OpenTxtReader(name string, opts ReaderOptions) (*ScanReader, error) {
	parse := opts.ParseString
	if parse == "" {
		parse = "xyz"
	}
	format, attributes, err := txtLayout(parse)
	if err != nil {
		return nil, err
	}
	if opts.ScaleIntensity == 0 {
		opts.ScaleIntensity = 1
	}
	if opts.ScaleScanAngle == 0 {
		opts.ScaleScanAngle = 1
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening '%s'", name)
	}
	src := &txtSource{name: name, file: file, parse: parse, opts: opts}
	src.scanner = bufio.NewScanner(file)
	return newScanReader(name, src, newScanHeader(format, attributes), opts)
}

// Chooses the smallest point data format holding every column of the parse string
func txtLayout(parse string) (uint8, []data.AttributeDescriptor, error) {
	for _, c := range []string{"x", "y", "z"} {
		if !strings.Contains(parse, c) {
			return 0, nil, errors.Errorf("parse string '%s' lacks '%s'", parse, c)
		}
	}
	nAttributes := 0
	for _, c := range parse {
		if !strings.ContainsRune(txtLetters, c) {
			return 0, nil, errors.Errorf("unknown letter '%c' in parse string '%s'", c, parse)
		}
		if c >= '0' && c <= '9' {
			nAttributes = max(nAttributes, int(c-'0')+1)
		}
	}

	hasTime := strings.Contains(parse, "t")
	hasRGB := strings.ContainsAny(parse, "RGB")
	var format uint8
	switch {
	case strings.Contains(parse, "I"):
		format = 8
	case hasTime && hasRGB:
		format = 3
	case hasRGB:
		format = 2
	case hasTime:
		format = 1
	}

	var attributes []data.AttributeDescriptor
	for i := 0; i < nAttributes; i++ {
		attributes = append(attributes, data.AttributeDescriptor{
			DataType: data.AttributeDouble,
			Name:     fmt.Sprintf("attribute %d", i),
		})
	}
	return format, attributes, nil
}

func isTxtSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == ',' || r == ';'
}

func (s *txtSource) next(p *data.Point) ([3]float64, error) {
	for s.scanner.Scan() {
		s.line++
		if s.line <= s.opts.SkipLines {
			continue
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "//") {
			continue
		}
		c, err := s.parseLine(line, p)
		if err != nil {
			glog.V(2).Infof("skipping line %d of '%s': %v", s.line, s.name, err)
			continue
		}
		return c, nil
	}
	if err := s.scanner.Err(); err != nil {
		return [3]float64{}, errors.Wrapf(err, "reading '%s'", s.name)
	}
	return [3]float64{}, io.EOF
}

func (s *txtSource) parseLine(line string, p *data.Point) ([3]float64, error) {
	var c [3]float64
	fields := strings.FieldsFunc(line, isTxtSeparator)
	if len(fields) < len(s.parse) {
		return c, errors.Errorf("%d columns but parse string '%s' needs %d", len(fields), s.parse, len(s.parse))
	}
	for i, letter := range s.parse {
		if letter == 's' {
			continue
		}
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || !finite(v) {
			return c, errors.Errorf("column %d '%s' is no valid number", i+1, fields[i])
		}
		s.setField(letter, v, p, &c)
	}
	return c, nil
}

func (s *txtSource) setField(letter rune, v float64, p *data.Point, c *[3]float64) {
	switch letter {
	case 'x':
		c[0] = v
	case 'y':
		c[1] = v
	case 'z':
		c[2] = v
	case 't':
		p.GPSTime = v
	case 'i':
		p.Intensity = data.U16Clamp(float64(s.opts.ScaleIntensity)*v + float64(s.opts.TranslateIntensity))
	case 'a':
		p.SetScanAngle(s.opts.ScaleScanAngle*float32(v) + s.opts.TranslateScanAngle)
	case 'r':
		p.SetReturnNumber(data.U8Clamp(v))
	case 'n':
		p.SetNumberOfReturns(data.U8Clamp(v))
	case 'c':
		p.SetExtendedClassification(data.U8Clamp(v))
	case 'u':
		p.UserData = data.U8Clamp(v)
	case 'p':
		p.PointSourceID = data.U16Clamp(v)
	case 'R':
		p.RGB[0] = data.U16Clamp(v)
	case 'G':
		p.RGB[1] = data.U16Clamp(v)
	case 'B':
		p.RGB[2] = data.U16Clamp(v)
	case 'I':
		p.RGB[3] = data.U16Clamp(v)
	case 'e':
		p.EdgeOfFlightLine = boolBit(v)
	case 'd':
		p.ScanDirectionFlag = boolBit(v)
	case 'h':
		p.WithheldFlag = v != 0
	case 'k':
		p.KeypointFlag = v != 0
	case 'g':
		p.SyntheticFlag = v != 0
	default:
		p.SetAttributeAsFloat(int(letter-'0'), v)
	}
}

func boolBit(v float64) uint8 {
	if v != 0 {
		return 1
	}
	return 0
}

func (s *txtSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.scanner = bufio.NewScanner(s.file)
	s.line = 0
	return nil
}

func (s *txtSource) close() error {
	return s.file.Close()
}

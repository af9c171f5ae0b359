package filter

import (
	"strconv"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

func returnsCriterion(name string, drop func(rn, nr uint8) bool) Criterion {
	return &simpleCriterion{name: name, selective: data.DecompressChannelReturnsXY, drop: func(p *data.Point) bool {
		return drop(p.GetReturnNumber(), p.GetNumberOfReturns())
	}}
}

var returnCriteria = map[string]func() Criterion{
	"keep_first": func() Criterion { return returnsCriterion("keep_first", func(rn, nr uint8) bool { return rn > 1 }) },
	"keep_first_of_many": func() Criterion {
		return returnsCriterion("keep_first_of_many", func(rn, nr uint8) bool { return nr == 1 || rn > 1 })
	},
	"keep_middle": func() Criterion {
		return returnsCriterion("keep_middle", func(rn, nr uint8) bool { return rn == 1 || rn >= nr })
	},
	"keep_last": func() Criterion { return returnsCriterion("keep_last", func(rn, nr uint8) bool { return rn < nr }) },
	"keep_last_of_many": func() Criterion {
		return returnsCriterion("keep_last_of_many", func(rn, nr uint8) bool { return rn == 1 || rn < nr })
	},
	"keep_second_last": func() Criterion {
		return returnsCriterion("keep_second_last", func(rn, nr uint8) bool { return nr <= 1 || rn != nr-1 })
	},
	"drop_first": func() Criterion { return returnsCriterion("drop_first", func(rn, nr uint8) bool { return rn == 1 }) },
	"drop_first_of_many": func() Criterion {
		return returnsCriterion("drop_first_of_many", func(rn, nr uint8) bool { return nr > 1 && rn == 1 })
	},
	"drop_middle": func() Criterion {
		return returnsCriterion("drop_middle", func(rn, nr uint8) bool { return rn > 1 && rn < nr })
	},
	"drop_last": func() Criterion { return returnsCriterion("drop_last", func(rn, nr uint8) bool { return rn >= nr }) },
	"drop_last_of_many": func() Criterion {
		return returnsCriterion("drop_last_of_many", func(rn, nr uint8) bool { return nr > 1 && rn >= nr })
	},
	"drop_second_last": func() Criterion {
		return returnsCriterion("drop_second_last", func(rn, nr uint8) bool { return nr > 1 && rn == nr-1 })
	},
}

var multiplicityNames = [...]string{"", "single", "double", "triple", "quadruple", "quintuple"}

func newNumberOfReturns(keep bool, n uint8) Criterion {
	prefix := "drop_"
	if keep {
		prefix = "keep_"
	}
	if n >= 1 && int(n) < len(multiplicityNames) {
		return &simpleCriterion{name: prefix + multiplicityNames[n], selective: data.DecompressChannelReturnsXY, drop: func(p *data.Point) bool {
			return (p.GetNumberOfReturns() == n) != keep
		}}
	}
	mode := dropEqual
	if keep {
		mode = keepEqual
	}
	return &valueCriterion{name: prefix + "number_of_returns", field: fieldNumberOfReturns, mode: mode, a: float64(n)}
}

// Drops the points whose return number bit is set in the mask
type returnMask struct {
	stateless
	keep bool
	drop uint16
}

func newKeepReturns(keepMask uint16) *returnMask {
	return &returnMask{keep: true, drop: ^keepMask}
}

func newDropReturns(dropMask uint16) *returnMask {
	return &returnMask{drop: dropMask}
}

func (c *returnMask) Name() string {
	if c.keep {
		return "keep_return_mask"
	}
	return "drop_return_mask"
}

func (c *returnMask) mask() uint16 {
	if c.keep {
		return ^c.drop
	}
	return c.drop
}

func (c *returnMask) Command() string {
	bits := maskBits(uint32(c.mask()), 16)
	if len(bits) == 0 {
		return command.Join(c.Name(), strconv.Itoa(int(c.mask())))
	}
	if c.keep {
		return command.Join("keep_return", bits...)
	}
	return command.Join("drop_return", bits...)
}

func (c *returnMask) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *returnMask) Filter(p *data.Point) bool {
	return (1<<p.GetReturnNumber())&c.drop != 0
}

// Drops the points whose classification bit is set in the mask
type classMask struct {
	stateless
	keep bool
	drop uint32
}

func newKeepClasses(keepMask uint32) *classMask {
	return &classMask{keep: true, drop: ^keepMask}
}

func newDropClasses(dropMask uint32) *classMask {
	return &classMask{drop: dropMask}
}

func (c *classMask) Name() string {
	if c.keep {
		return "keep_classification_mask"
	}
	return "drop_classification_mask"
}

func (c *classMask) mask() uint32 {
	if c.keep {
		return ^c.drop
	}
	return c.drop
}

func (c *classMask) Command() string {
	bits := maskBits(c.mask(), 32)
	if len(bits) == 0 {
		return command.Join(c.Name(), strconv.FormatUint(uint64(c.mask()), 10))
	}
	if c.keep {
		return command.Join("keep_class", bits...)
	}
	return command.Join("drop_class", bits...)
}

func (c *classMask) DecompressSelective() uint32 { return data.DecompressClassification }

func (c *classMask) Filter(p *data.Point) bool {
	return (1<<p.Classification)&c.drop != 0
}

// Drops the points whose extended classification bit is set, bit n of class c is in word c/32
type extendedClassMask struct {
	stateless
	drop [8]uint32
}

func (c *extendedClassMask) Name() string { return "drop_extended_classification_mask" }

func (c *extendedClassMask) Command() string {
	args := make([]string, 8)
	for i := 0; i < 8; i++ {
		args[i] = strconv.FormatUint(uint64(c.drop[7-i]), 10)
	}
	return command.Join(c.Name(), args...)
}

func (c *extendedClassMask) DecompressSelective() uint32 { return data.DecompressClassification }

func (c *extendedClassMask) Filter(p *data.Point) bool {
	class := p.GetExtendedClassification()
	return (1<<(class%32))&c.drop[class/32] != 0
}

func maskBits(mask uint32, n uint) []string {
	var bits []string
	for i := uint(0); i < n; i++ {
		if mask&(1<<i) != 0 {
			bits = append(bits, strconv.Itoa(int(i)))
		}
	}
	return bits
}

// Keeps the points where the scan direction flag changes
type scanDirectionChange struct {
	state int
}

func NewKeepScanDirectionChange() Criterion {
	return &scanDirectionChange{state: -1}
}

func (c *scanDirectionChange) Name() string                { return "keep_scan_direction_change" }
func (c *scanDirectionChange) Command() string             { return command.Join(c.Name()) }
func (c *scanDirectionChange) DecompressSelective() uint32 { return data.DecompressFlags }

func (c *scanDirectionChange) Filter(p *data.Point) bool {
	flag := int(p.ScanDirectionFlag)
	if c.state == flag {
		return true
	}
	previous := c.state
	c.state = flag
	return previous == -1
}

func (c *scanDirectionChange) Reset() {
	c.state = -1
}

func flagCriterion(name string, drop func(p *data.Point) bool) Criterion {
	return &simpleCriterion{name: name, selective: data.DecompressFlags, drop: drop}
}

var flagCriteria = map[string]func() Criterion{
	"keep_synthetic": func() Criterion {
		return flagCriterion("keep_synthetic", func(p *data.Point) bool { return !p.SyntheticFlag })
	},
	"drop_synthetic": func() Criterion {
		return flagCriterion("drop_synthetic", func(p *data.Point) bool { return p.SyntheticFlag })
	},
	"keep_keypoint": func() Criterion {
		return flagCriterion("keep_keypoint", func(p *data.Point) bool { return !p.KeypointFlag })
	},
	"drop_keypoint": func() Criterion {
		return flagCriterion("drop_keypoint", func(p *data.Point) bool { return p.KeypointFlag })
	},
	"keep_withheld": func() Criterion {
		return flagCriterion("keep_withheld", func(p *data.Point) bool { return !p.WithheldFlag })
	},
	"drop_withheld": func() Criterion {
		return flagCriterion("drop_withheld", func(p *data.Point) bool { return p.WithheldFlag })
	},
	"keep_overlap": func() Criterion {
		return flagCriterion("keep_overlap", func(p *data.Point) bool { return !p.OverlapFlag })
	},
	"drop_overlap": func() Criterion {
		return flagCriterion("drop_overlap", func(p *data.Point) bool { return p.OverlapFlag })
	},
	"keep_edge_of_flight_line": func() Criterion {
		return flagCriterion("keep_edge_of_flight_line", func(p *data.Point) bool { return p.EdgeOfFlightLine == 0 })
	},
}

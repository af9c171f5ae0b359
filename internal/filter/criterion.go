package filter

import (
	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

// Criterion is one drop predicate of a Filter
type Criterion interface {
	Name() string
	// Command reproduces the tokens that build this criterion, "-name args "
	Command() string
	DecompressSelective() uint32
	// Filter returns true when the point must be dropped
	Filter(p *data.Point) bool
	// Reset clears per-run state
	Reset()
}

// Embedded by stateless criteria
type stateless struct{}

func (stateless) Reset() {}

// Criterion without arguments
type simpleCriterion struct {
	stateless
	name      string
	selective uint32
	drop      func(p *data.Point) bool
}

func (c *simpleCriterion) Name() string                { return c.name }
func (c *simpleCriterion) Command() string             { return command.Join(c.name) }
func (c *simpleCriterion) DecompressSelective() uint32 { return c.selective }
func (c *simpleCriterion) Filter(p *data.Point) bool   { return c.drop(p) }

// Combines the two previous criteria: and drops when both drop, or when either drops
type combinedCriterion struct {
	and bool
	one Criterion
	two Criterion
}

func (c *combinedCriterion) Name() string {
	if c.and {
		return "filter_and"
	}
	return "filter_or"
}

func (c *combinedCriterion) Command() string {
	return c.one.Command() + c.two.Command() + command.Join(c.Name())
}

func (c *combinedCriterion) DecompressSelective() uint32 {
	return c.one.DecompressSelective() | c.two.DecompressSelective()
}

func (c *combinedCriterion) Filter(p *data.Point) bool {
	if c.and {
		return c.one.Filter(p) && c.two.Filter(p)
	}
	return c.one.Filter(p) || c.two.Filter(p)
}

func (c *combinedCriterion) Reset() {
	c.one.Reset()
	c.two.Reset()
}

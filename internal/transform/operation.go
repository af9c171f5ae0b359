package transform

import (
	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

const RegisterCount = 16

// Scratch values shared by the operations of one pipeline while a point is transformed
type Registers [RegisterCount]float64

func (r *Registers) Reset() {
	*r = Registers{}
}

// Operation is one mutation of a Pipeline
type Operation interface {
	Name() string
	// Command reproduces the tokens that build this operation, "-name args "
	Command() string
	DecompressSelective() uint32
	Apply(p *data.Point, r *Registers)
	// Overflow is the number of field writes that did not fit their target range
	Overflow() uint64
	// Reset rewinds seeds and streamed inputs
	Reset()
}

type overflowCounter struct {
	overflow uint64
}

func (c *overflowCounter) Overflow() uint64 {
	return c.overflow
}

func (c *overflowCounter) check(ok bool) {
	if !ok {
		c.overflow++
	}
}

type applyFunc func(p *data.Point, r *Registers, c *overflowCounter)

// Operation whose parameters are captured by its apply function
type funcOp struct {
	overflowCounter
	name      string
	args      []string
	selective uint32
	apply     applyFunc
}

func (o *funcOp) Name() string                      { return o.name }
func (o *funcOp) Command() string                   { return command.Join(o.name, o.args...) }
func (o *funcOp) DecompressSelective() uint32       { return o.selective }
func (o *funcOp) Apply(p *data.Point, r *Registers) { o.apply(p, r, &o.overflowCounter) }
func (o *funcOp) Reset()                            {}

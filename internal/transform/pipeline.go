package transform

import (
	"io"
	"strings"

	"github.com/golang/glog"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
	"github.com/ecopia-map/las_merger/internal/filter"
)

// Pipeline applies its operations in registration order to every point its optional filter
// does not drop. The operations share one register bank.
type Pipeline struct {
	operations []Operation
	registers  Registers
	filter     *filter.Filter
}

// Overflows accumulated by one operation
type OverflowReport struct {
	Operation string
	Command   string
	Count     uint64
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (t *Pipeline) AddOperation(op Operation) {
	t.operations = append(t.operations, op)
}

// DeleteOperation removes the first operation with the given name and reports whether one
// was found
func (t *Pipeline) DeleteOperation(name string) bool {
	for i, op := range t.operations {
		if op.Name() == name {
			closeOperation(op)
			t.operations = append(t.operations[:i], t.operations[i+1:]...)
			return true
		}
	}
	return false
}

// SetPointSource replaces any point source assignment with one setting psid
func (t *Pipeline) SetPointSource(psid uint16) {
	t.DeleteOperation("set_point_source")
	op, _, _ := parsers["set_point_source"]([]string{"-set_point_source", command.Int(int64(psid))}, 0)
	t.AddOperation(op)
}

func (t *Pipeline) UnsetPointSource() {
	t.DeleteOperation("set_point_source")
}

// SetFilter makes the pipeline skip the points f drops, nil removes the filter
func (t *Pipeline) SetFilter(f *filter.Filter) {
	t.filter = f
}

func (t *Pipeline) GetFilter() *filter.Filter {
	return t.filter
}

func (t *Pipeline) GetOperations() []Operation {
	return t.operations
}

func (t *Pipeline) GetRegisters() *Registers {
	return &t.registers
}

func (t *Pipeline) Active() bool {
	return len(t.operations) > 0
}

func (t *Pipeline) Transform(p *data.Point) {
	if t.filter != nil && t.filter.Filter(p) {
		return
	}
	for _, op := range t.operations {
		op.Apply(p, &t.registers)
	}
}

// Reset rewinds every operation and zeroes the registers, the filter is reset as well
func (t *Pipeline) Reset() {
	for _, op := range t.operations {
		op.Reset()
	}
	t.registers.Reset()
	if t.filter != nil {
		t.filter.Reset()
	}
}

func (t *Pipeline) DecompressSelective() uint32 {
	selective := data.DecompressChannelReturnsXY
	for _, op := range t.operations {
		selective |= op.DecompressSelective()
	}
	if t.filter != nil {
		selective |= t.filter.DecompressSelective()
	}
	return selective
}

// Unparse reproduces the tokens that rebuild this pipeline
func (t *Pipeline) Unparse() string {
	var sb strings.Builder
	if t.filter != nil {
		sb.WriteString(t.filter.Unparse())
		sb.WriteString(command.Join(filteredKeyword))
	}
	for _, op := range t.operations {
		sb.WriteString(op.Command())
	}
	return sb.String()
}

// Clone builds an independent pipeline from the command of this one, file backed
// operations open their files again
func (t *Pipeline) Clone() (*Pipeline, error) {
	c := NewPipeline()
	if _, err := c.ParseString(t.Unparse()); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Pipeline) CheckForOverflow() []OverflowReport {
	var reports []OverflowReport
	for _, op := range t.operations {
		if n := op.Overflow(); n > 0 {
			glog.Warningf("total of %d overflows caused by '%s'", n, strings.TrimSpace(op.Command()))
			reports = append(reports, OverflowReport{Operation: op.Name(), Command: op.Command(), Count: n})
		}
	}
	return reports
}

// Clean closes and removes every operation and the filter
func (t *Pipeline) Clean() {
	t.Close()
	t.operations = nil
	t.filter = nil
	t.registers.Reset()
}

// Close releases the files and projections held by the operations
func (t *Pipeline) Close() {
	for _, op := range t.operations {
		closeOperation(op)
	}
}

func closeOperation(op Operation) {
	if c, ok := op.(io.Closer); ok {
		if err := c.Close(); err != nil {
			glog.Errorf("closing '%s': %v", op.Name(), err)
		}
	}
}

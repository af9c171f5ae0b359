package filter

import (
	"strings"

	"github.com/golang/glog"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Filter drops a point as soon as one of its criteria matches, criteria are evaluated
// in registration order
type Filter struct {
	criteria []Criterion
	counters []uint64
}

// Number of points dropped by one criterion
type CriterionCount struct {
	Command string
	Count   uint64
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) AddCriterion(c Criterion) {
	f.criteria = append(f.criteria, c)
	f.counters = append(f.counters, 0)
}

// Returns true when the point is filtered out
func (f *Filter) Filter(p *data.Point) bool {
	for i, c := range f.criteria {
		if c.Filter(p) {
			f.counters[i]++
			return true
		}
	}
	return false
}

// Resets the state of every criterion, the drop counters are kept
func (f *Filter) Reset() {
	for _, c := range f.criteria {
		c.Reset()
	}
}

// Removes all criteria and counters
func (f *Filter) Clean() {
	f.criteria = nil
	f.counters = nil
}

func (f *Filter) Active() bool {
	return f != nil && len(f.criteria) > 0
}

func (f *Filter) Criteria() []Criterion {
	return f.criteria
}

func (f *Filter) DecompressSelective() uint32 {
	selective := data.DecompressChannelReturnsXY
	for _, c := range f.criteria {
		selective |= c.DecompressSelective()
	}
	return selective
}

func (f *Filter) Counters() []CriterionCount {
	counts := make([]CriterionCount, len(f.criteria))
	for i, c := range f.criteria {
		counts[i] = CriterionCount{Command: strings.TrimSpace(c.Command()), Count: f.counters[i]}
	}
	return counts
}

// Logs how many points every criterion dropped
func (f *Filter) Report() {
	for _, c := range f.Counters() {
		glog.Infof("criterion '%s' dropped %d points", c.Command, c.Count)
	}
}

// Unparse reproduces the command that builds an equivalent filter
func (f *Filter) Unparse() string {
	var sb strings.Builder
	for _, c := range f.criteria {
		sb.WriteString(c.Command())
	}
	return sb.String()
}

// Adds a criterion keeping the points inside the circle
func (f *Filter) AddKeepCircle(x, y, radius float64) {
	f.AddCriterion(NewKeepCircle(x, y, radius))
}

// Adds a criterion keeping the points inside the half-open box
func (f *Filter) AddKeepBox(minX, minY, minZ, maxX, maxY, maxZ float64) {
	f.AddCriterion(NewKeepBox(minX, minY, minZ, maxX, maxY, maxZ))
}

func (f *Filter) AddKeepScanDirectionChange() {
	f.AddCriterion(NewKeepScanDirectionChange())
}

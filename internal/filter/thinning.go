package filter

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

type everyNth struct {
	keep    bool
	every   uint32
	counter uint32
}

func newEveryNth(keep bool, every uint32) Criterion {
	return &everyNth{keep: keep, every: every, counter: 1}
}

func (c *everyNth) Name() string {
	if c.keep {
		return "keep_every_nth"
	}
	return "drop_every_nth"
}

func (c *everyNth) Command() string {
	return command.Join(c.Name(), strconv.FormatUint(uint64(c.every), 10))
}

func (c *everyNth) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *everyNth) Filter(p *data.Point) bool {
	if c.counter == c.every {
		c.counter = 1
		return !c.keep
	}
	c.counter++
	return c.keep
}

func (c *everyNth) Reset() {
	c.counter = 1
}

// Each point draws the next value of a seeded generator, the sequence restarts on Reset
type randomFraction struct {
	requestedSeed uint32
	fraction      float32
	rng           *rand.Rand
}

func newRandomFraction(seed uint32, fraction float32) Criterion {
	return &randomFraction{requestedSeed: seed, fraction: fraction, rng: rand.New(rand.NewSource(int64(seed)))}
}

func (c *randomFraction) Name() string { return "keep_random_fraction" }

func (c *randomFraction) Command() string {
	if c.requestedSeed != 0 {
		return command.Join(c.Name(), strconv.FormatUint(uint64(c.requestedSeed), 10), command.Float32(c.fraction))
	}
	return command.Join(c.Name(), command.Float32(c.fraction))
}

func (c *randomFraction) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *randomFraction) Filter(p *data.Point) bool {
	return float32(c.rng.Int31())/float32(math.MaxInt32) > c.fraction
}

func (c *randomFraction) Reset() {
	c.rng.Seed(int64(c.requestedSeed))
}

// Keeps the first point falling in every cell of a square grid
type thinWithGrid struct {
	spacing float64
	cells   map[[2]int64]struct{}
}

func newThinWithGrid(spacing float64) Criterion {
	return &thinWithGrid{spacing: math.Abs(spacing), cells: make(map[[2]int64]struct{})}
}

func (c *thinWithGrid) Name() string { return "thin_with_grid" }

func (c *thinWithGrid) Command() string {
	return command.Join(c.Name(), command.Float(c.spacing))
}

func (c *thinWithGrid) DecompressSelective() uint32 { return data.DecompressChannelReturnsXY }

func (c *thinWithGrid) Filter(p *data.Point) bool {
	cell := [2]int64{int64(math.Floor(p.GetX() / c.spacing)), int64(math.Floor(p.GetY() / c.spacing))}
	if _, ok := c.cells[cell]; ok {
		return true
	}
	c.cells[cell] = struct{}{}
	return false
}

func (c *thinWithGrid) Reset() {
	c.cells = make(map[[2]int64]struct{})
}

// Keeps one pulse, or one point, per GPS time interval. Pulses keep every return that
// shares the GPS time of the first point seen in the interval.
type thinWithTime struct {
	pulses  bool
	spacing float64
	times   map[int64]float64
}

func newThinWithTime(pulses bool, spacing float64) Criterion {
	return &thinWithTime{pulses: pulses, spacing: math.Abs(spacing), times: make(map[int64]float64)}
}

func (c *thinWithTime) Name() string {
	if c.pulses {
		return "thin_pulses_with_time"
	}
	return "thin_points_with_time"
}

func (c *thinWithTime) Command() string {
	return command.Join(c.Name(), command.Float(c.spacing))
}

func (c *thinWithTime) DecompressSelective() uint32 { return data.DecompressGpsTime }

func (c *thinWithTime) Filter(p *data.Point) bool {
	slot := int64(math.Floor(p.GPSTime / c.spacing))
	t, ok := c.times[slot]
	if !ok {
		c.times[slot] = p.GPSTime
		return false
	}
	return !(c.pulses && t == p.GPSTime)
}

func (c *thinWithTime) Reset() {
	c.times = make(map[int64]float64)
}

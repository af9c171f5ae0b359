package index

import (
	"math"

	lasio "github.com/ecopia-map/las_merger/internal/io"
)

// position of a cell in the grid
type gridIndex struct {
	x int32
	y int32
}

// Models a cell of the grid. It keeps the ranges of point indices falling into it, consecutive
// points are merged into the same range.
type gridCell struct {
	index     gridIndex
	intervals []lasio.Interval
}

func (c *gridCell) add(pointIndex uint64) {
	if n := len(c.intervals); n > 0 && c.intervals[n-1].End+1 == pointIndex {
		c.intervals[n-1].End = pointIndex
		return
	}
	c.intervals = append(c.intervals, lasio.Interval{Start: pointIndex, End: pointIndex})
}

// returns the index of the cell holding coordinate along one axis
func getDimensionIndex(coordinate float64, cellSize float64) int32 {
	i := math.Floor(coordinate / cellSize)
	if i <= math.MinInt32 {
		return math.MinInt32
	} else if i >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(i)
}

package index

import (
	"io"
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	lasio "github.com/ecopia-map/las_merger/internal/io"
)

const DefaultCellSize = 10.0

// GridIndex divides the xy plane of a source in square cells and remembers which point
// indices fall into every cell, so a reader can visit only the parts of a file overlapping
// a region.
type GridIndex struct {
	cellSize float64
	cells    map[gridIndex]*gridCell
	points   uint64
}

func NewGridIndex(cellSize float64) *GridIndex {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &GridIndex{
		cellSize: cellSize,
		cells:    make(map[gridIndex]*gridCell),
	}
}

// Builds the index of every point delivered by r
func Build(r lasio.Reader, cellSize float64) (*GridIndex, error) {
	idx := NewGridIndex(cellSize)
	for {
		err := r.ReadPoint()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "building grid index")
		}
		p := r.GetPoint()
		idx.AddPoint(idx.points, p.GetX(), p.GetY())
	}
	glog.V(1).Infof("indexed %d points in %d cells of size %g", idx.points, len(idx.cells), idx.cellSize)
	return idx, nil
}

// Adds the point with the given index, points must be added in increasing index order
func (idx *GridIndex) AddPoint(pointIndex uint64, x, y float64) {
	key := gridIndex{getDimensionIndex(x, idx.cellSize), getDimensionIndex(y, idx.cellSize)}
	cell := idx.cells[key]
	if cell == nil {
		cell = &gridCell{index: key}
		idx.cells[key] = cell
	}
	cell.add(pointIndex)
	if pointIndex >= idx.points {
		idx.points = pointIndex + 1
	}
}

func (idx *GridIndex) GetCellSize() float64 {
	return idx.cellSize
}

// Number of points the index was built from
func (idx *GridIndex) GetNumberOfPoints() uint64 {
	return idx.points
}

func (idx *GridIndex) GetNumberOfCells() int {
	return len(idx.cells)
}

// Intervals returns the sorted, disjoint point index ranges of the cells overlapping the
// rectangle
func (idx *GridIndex) Intervals(minX, minY, maxX, maxY float64) []lasio.Interval {
	x0, x1 := getDimensionIndex(minX, idx.cellSize), getDimensionIndex(maxX, idx.cellSize)
	y0, y1 := getDimensionIndex(minY, idx.cellSize), getDimensionIndex(maxY, idx.cellSize)

	var found []lasio.Interval
	if (int64(x1)-int64(x0)+1)*(int64(y1)-int64(y0)+1) > int64(len(idx.cells)) {
		for key, cell := range idx.cells {
			if key.x >= x0 && key.x <= x1 && key.y >= y0 && key.y <= y1 {
				found = append(found, cell.intervals...)
			}
		}
	} else {
		for x := int64(x0); x <= int64(x1); x++ {
			for y := int64(y0); y <= int64(y1); y++ {
				if cell := idx.cells[gridIndex{int32(x), int32(y)}]; cell != nil {
					found = append(found, cell.intervals...)
				}
			}
		}
	}
	return mergeIntervals(found)
}

func mergeIntervals(intervals []lasio.Interval) []lasio.Interval {
	if len(intervals) == 0 {
		return []lasio.Interval{}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	merged := []lasio.Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End+1 {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

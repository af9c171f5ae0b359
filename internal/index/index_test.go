package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/las_merger/internal/data"
	lasio "github.com/ecopia-map/las_merger/internal/io"
)

// 4 rows of 10 points, one point every 5 units, row by row
func newTestIndex() *GridIndex {
	idx := NewGridIndex(10)
	i := uint64(0)
	for row := 0; row < 4; row++ {
		for col := 0; col < 10; col++ {
			idx.AddPoint(i, float64(col*5), float64(row*10))
			i++
		}
	}
	return idx
}

func TestGridIndex_Intervals(t *testing.T) {
	idx := newTestIndex()
	assert.Equal(t, uint64(40), idx.GetNumberOfPoints())
	assert.Equal(t, 20, idx.GetNumberOfCells())

	tests := []struct {
		name                   string
		minX, minY, maxX, maxY float64
		want                   []lasio.Interval
	}{
		{"everything", -100, -100, 100, 100, []lasio.Interval{{Start: 0, End: 39}}},
		{"first cell", 0, 0, 5, 5, []lasio.Interval{{Start: 0, End: 1}}},
		{"column", 20, 0, 29, 35, []lasio.Interval{{4, 5}, {14, 15}, {24, 25}, {34, 35}}},
		{"row", 0, 10, 49, 19, []lasio.Interval{{10, 19}}},
		{"outside", 500, 500, 600, 600, []lasio.Interval{}},
		{"negative", -30, -30, -1, -1, []lasio.Interval{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Intervals(tt.minX, tt.minY, tt.maxX, tt.maxY))
		})
	}
}

func TestMergeIntervals(t *testing.T) {
	got := mergeIntervals([]lasio.Interval{{10, 12}, {0, 3}, {4, 5}, {11, 20}, {30, 30}})
	assert.Equal(t, []lasio.Interval{{0, 5}, {10, 20}, {30, 30}}, got)
}

func TestGridIndex_SaveLoad(t *testing.T) {
	idx := newTestIndex()
	idx.AddPoint(40, -25, -25)
	name := filepath.Join(t.TempDir(), "points.lxb")
	require.NoError(t, idx.Save(name))
	require.NoError(t, idx.Save(name), "saving twice replaces the file")

	loaded, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, idx.GetCellSize(), loaded.GetCellSize())
	assert.Equal(t, idx.GetNumberOfPoints(), loaded.GetNumberOfPoints())
	assert.Equal(t, idx.cells, loaded.cells)
	assert.Equal(t, []lasio.Interval{{40, 40}}, loaded.Intervals(-30, -30, -21, -21))
}

func TestLoadSidecar(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "strip.las")
	assert.Equal(t, filepath.Join(dir, "strip.lxb"), SidecarName(source))

	missing, err := LoadSidecar(source)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, newTestIndex().Save(SidecarName(source)))
	found, err := LoadSidecar(source)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, uint64(40), found.GetNumberOfPoints())
}

func TestBuildFromLas(t *testing.T) {
	name := filepath.Join(t.TempDir(), "points.las")
	h := data.NewHeader()
	w, err := lasio.CreateLasWriter(name, h)
	require.NoError(t, err)
	p := w.GetHeader().NewPoint()
	for i := 0; i < 20; i++ {
		p.SetX(float64(i % 2 * 100))
		p.SetY(0)
		require.NoError(t, w.WritePoint(p))
	}
	require.NoError(t, w.Close())

	r, err := lasio.OpenLasReader(name)
	require.NoError(t, err)
	defer r.Close()
	idx, err := Build(r, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), idx.GetNumberOfPoints())
	assert.Equal(t, 2, idx.GetNumberOfCells())
	assert.Len(t, idx.Intervals(0, 0, 10, 10), 10)

	require.NoError(t, r.Seek(0))
	pr := lasio.NewPipelineReader(r)
	pr.SetClip(lasio.NewRectangleClip(90, -1, 110, 1))
	pr.SetIndex(idx)
	n, err := lasio.Drain(pr)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
}

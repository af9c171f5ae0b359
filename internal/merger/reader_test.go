package merger

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/las_merger/internal/data"
	"github.com/ecopia-map/las_merger/internal/filter"
	"github.com/ecopia-map/las_merger/internal/index"
	lasio "github.com/ecopia-map/las_merger/internal/io"
	"github.com/ecopia-map/las_merger/internal/transform"
)

type fixture struct {
	scale        [3]float64
	offset       [3]float64
	fileSourceID uint16
	coords       [][3]float64
}

func line(n int, x0, y0, step float64) [][3]float64 {
	coords := make([][3]float64, n)
	for i := range coords {
		coords[i] = [3]float64{x0 + step*float64(i), y0 + step*float64(i), 0}
	}
	return coords
}

func writeFixture(t *testing.T, name string, f fixture) string {
	t.Helper()
	h := data.NewHeader()
	h.PointDataFormat = 1
	h.PointDataRecordLength = data.PointFormatLength[1]
	h.FileSourceID = f.fileSourceID
	if f.scale != ([3]float64{}) {
		h.Scale = f.scale
	}
	h.Offset = f.offset

	path := filepath.Join(t.TempDir(), name)
	w, err := lasio.CreateLasWriter(path, h)
	require.NoError(t, err)
	p := w.GetHeader().NewPoint()
	for i, c := range f.coords {
		p.Zero()
		require.True(t, p.SetX(c[0]))
		require.True(t, p.SetY(c[1]))
		require.True(t, p.SetZ(c[2]))
		p.Intensity = uint16(i)
		p.SetReturnNumber(1)
		p.SetNumberOfReturns(1)
		require.NoError(t, w.WritePoint(p))
	}
	require.NoError(t, w.Close())
	return path
}

func openMerge(t *testing.T, r *Reader, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, r.AddSource(name))
	}
	require.NoError(t, r.Open())
}

func readWorld(t *testing.T, r *Reader) [][3]float64 {
	t.Helper()
	var out [][3]float64
	for {
		err := r.ReadPoint()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		p := r.GetPoint()
		out = append(out, [3]float64{p.GetX(), p.GetY(), p.GetZ()})
	}
}

func TestReader_SourceOrder(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(3, 0, 0, 1)})
	b := writeFixture(t, "b.las", fixture{coords: line(2, 10, 10, 1)})

	r := NewReader()
	openMerge(t, r, a, b)
	assert.EqualValues(t, 5, r.GetPointCount())
	assert.EqualValues(t, 5, r.GetHeader().NumberOfPointRecords)
	assert.Equal(t, 2, r.GetSourceCount())
	assert.Equal(t, -1, r.GetCurrentSource())

	got := readWorld(t, r)
	want := append(line(3, 0, 0, 1), line(2, 10, 10, 1)...)
	assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)))
	assert.EqualValues(t, 5, r.GetPCount())
	assert.Equal(t, Warnings{}, r.GetWarnings())

	b0 := r.GetHeader().Bounds
	assert.InDelta(t, 0, b0.MinX, 1e-9)
	assert.InDelta(t, 11, b0.MaxX, 1e-9)
	require.NoError(t, r.Close())
}

func TestReader_AddSourceErrors(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(1, 0, 0, 1)})
	txt := filepath.Join(t.TempDir(), "b.txt")
	require.NoError(t, os.WriteFile(txt, []byte("1 2 3\n"), 0644))

	r := NewReader()
	require.NoError(t, r.AddSource(a))
	err := r.AddSource(txt)
	require.Error(t, err)
	assert.Equal(t, ErrFormatMismatch, errors.Cause(err))
	assert.Equal(t, 1, r.GetSourceCount())

	err = r.AddSource(filepath.Join(t.TempDir(), "missing.las"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))

	unknown := filepath.Join(t.TempDir(), "c.foo")
	require.NoError(t, os.WriteFile(unknown, nil, 0644))
	assert.Equal(t, lasio.ErrUnknownFormat, errors.Cause(r.AddSource(unknown)))
}

func TestReader_OpenErrors(t *testing.T) {
	r := NewReader()
	assert.Equal(t, ErrNoSources, r.Open())
	assert.Equal(t, lasio.ErrNotOpen, r.ReadPoint())

	bad := filepath.Join(t.TempDir(), "bad.las")
	require.NoError(t, os.WriteFile(bad, []byte("not a las file"), 0644))
	require.NoError(t, r.AddSource(bad))
	assert.Error(t, r.Open())
}

func TestReader_RescaleReoffset(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{
		scale:  [3]float64{0.01, 0.01, 0.01},
		coords: line(100, 0, 0, 0.1),
	})
	b := writeFixture(t, "b.las", fixture{
		scale:  [3]float64{0.001, 0.001, 0.001},
		offset: [3]float64{100, 100, 100},
		coords: line(50, 100, 100, 0.1),
	})

	r := NewReader()
	openMerge(t, r, a, b)
	w := r.GetWarnings()
	assert.True(t, w.Rescale)
	assert.True(t, w.Reoffset)

	h := r.GetHeader()
	assert.Equal(t, [3]float64{0.001, 0.001, 0.001}, h.Scale)
	assert.Equal(t, [3]float64{52, 52, 0}, h.Offset)
	assert.False(t, h.Quantizer.Equal(data.NewQuantizer([3]float64{0.01, 0.01, 0.01}, [3]float64{})))
	assert.False(t, h.Quantizer.Equal(data.NewQuantizer([3]float64{0.001, 0.001, 0.001}, [3]float64{100, 100, 100})))

	want := append(line(100, 0, 0, 0.1), line(50, 100, 100, 0.1)...)
	var n int
	for {
		err := r.ReadPoint()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Less(t, n, len(want))
		p := r.GetPoint()
		require.True(t, p.Quantizer.Equal(&h.Quantizer), "point %d", n)
		assert.InDelta(t, want[n][0], p.GetX(), 0.001)
		assert.InDelta(t, want[n][1], p.GetY(), 0.001)
		n++
	}
	assert.Equal(t, 150, n)
}

func TestReader_RequestedScaleOffset(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(10, 0, 0, 1)})

	r := NewReader()
	r.SetScaleFactor([3]float64{0.001, 0, 0})
	r.SetOffset([3]float64{1, 2, 3})
	openMerge(t, r, a)

	h := r.GetHeader()
	assert.Equal(t, [3]float64{0.001, 0.01, 0.01}, h.Scale)
	assert.Equal(t, [3]float64{1, 2, 3}, h.Offset)
	assert.True(t, r.GetWarnings().Rescale)
	assert.True(t, r.GetWarnings().Reoffset)

	got := readWorld(t, r)
	assert.Empty(t, cmp.Diff(line(10, 0, 0, 1), got, cmpopts.EquateApprox(0, 1e-6)))
}

func TestReader_TileSkipsSourceOnFarEdge(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(6, 0, 0, 10)})
	onEdge := writeFixture(t, "b.las", fixture{coords: line(2, 100, 100, 10)})
	touching := writeFixture(t, "c.las", fixture{coords: line(5, 60, 60, 10)})

	r := NewReader()
	openMerge(t, r, a, onEdge, touching)
	r.InsideTile(0, 0, 100)
	assert.InDelta(t, 100-0.001*0.01, r.GetHeader().Bounds.MaxX, 1e-12)

	// the skipped source is never opened
	require.NoError(t, os.Remove(onEdge))
	got := readWorld(t, r)
	assert.Len(t, got, 6+4)
	for _, c := range got {
		assert.Less(t, c[0], 100.0)
	}
}

func TestReader_RectangleKeepsSourceOnFarEdge(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(6, 0, 0, 10)})
	onEdge := writeFixture(t, "b.las", fixture{coords: line(2, 100, 100, 10)})

	r := NewReader()
	openMerge(t, r, a, onEdge)
	r.InsideRectangle(0, 0, 100, 100)
	require.NoError(t, os.Remove(onEdge))

	var err error
	for err == nil {
		err = r.ReadPoint()
	}
	assert.NotEqual(t, io.EOF, err)
}

func TestReader_ClipBoundsRestored(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(6, 0, 0, 10)})

	r := NewReader()
	openMerge(t, r, a)
	orig := r.GetHeader().Bounds

	r.InsideCircle(10, 10, 5)
	b := r.GetHeader().Bounds
	assert.Equal(t, [4]float64{5, 5, 15, 15}, [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY})
	got := readWorld(t, r)
	require.Len(t, got, 1)
	assert.InDelta(t, 10, got[0][0], 1e-9)

	r.InsideNone()
	assert.Equal(t, orig, r.GetHeader().Bounds)
}

func TestReader_ReopenIsDeterministic(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(10, 0, 0, 1)})
	b := writeFixture(t, "b.las", fixture{coords: line(10, 20, 20, 1)})

	f := filter.NewFilter()
	_, err := f.ParseString("-keep_every_nth 3")
	require.NoError(t, err)
	tr := transform.NewPipeline()
	_, err = tr.ParseString("-translate_z 5")
	require.NoError(t, err)

	r := NewReader()
	r.SetFilter(f)
	r.SetTransform(tr)
	openMerge(t, r, a, b)
	r.InsideRectangle(0, 0, 25, 25)

	first := readWorld(t, r)
	require.NoError(t, r.Reopen())
	assert.EqualValues(t, 0, r.GetPCount())
	second := readWorld(t, r)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	for _, c := range first {
		assert.Less(t, c[0], 25.0)
		assert.InDelta(t, 5, c[2], 1e-9)
	}
}

func TestReader_Flightlines(t *testing.T) {
	var names []string
	for i := 0; i < 3; i++ {
		names = append(names, writeFixture(t, "f.las", fixture{fileSourceID: 42, coords: line(2, 0, 0, 1)}))
	}

	r := NewReader()
	r.SetFilesAreFlightlines(7)
	openMerge(t, r, names...)
	assert.EqualValues(t, 0, r.GetHeader().FileSourceID)

	var ids []uint16
	for {
		err := r.ReadPoint()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ids = append(ids, r.GetPoint().PointSourceID)
	}
	assert.Equal(t, []uint16{7, 7, 8, 8, 9, 9}, ids)
}

func TestReader_ApplyFileSourceID(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{fileSourceID: 11, coords: line(1, 0, 0, 1)})
	b := writeFixture(t, "b.las", fixture{fileSourceID: 12, coords: line(1, 0, 0, 1)})

	r := NewReader()
	r.SetApplyFileSourceID(true)
	openMerge(t, r, a, b)
	assert.EqualValues(t, 0, r.GetHeader().FileSourceID)

	require.NoError(t, r.ReadPoint())
	assert.EqualValues(t, 11, r.GetPoint().PointSourceID)
	require.NoError(t, r.ReadPoint())
	assert.EqualValues(t, 12, r.GetPoint().PointSourceID)
}

func TestReader_TrailingCounters(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(3, 0, 0, 1)})
	b := writeFixture(t, "b.las", fixture{coords: line(4, 50, 50, 1)})

	// wipe the point counts of b
	file, err := os.OpenFile(b, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = file.WriteAt(make([]byte, 24), 107)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	r := NewReader()
	openMerge(t, r, a, b)
	assert.EqualValues(t, 3, r.GetPointCount())

	assert.Len(t, readWorld(t, r), 7)
	h := r.GetHeader()
	assert.EqualValues(t, 7, r.GetPointCount())
	assert.EqualValues(t, 7, h.ExtendedNumberOfPointRecords)
	assert.EqualValues(t, 7, h.NumberOfPointRecords)
	assert.EqualValues(t, 7, h.NumberOfPointsByReturn[0])
	assert.InDelta(t, 53, h.Bounds.MaxX, 1e-9)

	require.NoError(t, r.Reopen())
	assert.Len(t, readWorld(t, r), 7)
	assert.EqualValues(t, 7, r.GetHeader().NumberOfPointRecords)
}

func TestReader_FollowsSidecarIndex(t *testing.T) {
	a := writeFixture(t, "a.las", fixture{coords: line(100, 0, 0, 1)})
	src, err := lasio.OpenLasReader(a)
	require.NoError(t, err)
	idx, err := index.Build(src, 10)
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.NoError(t, idx.Save(index.SidecarName(a)))

	for _, useIndex := range []bool{true, false} {
		r := NewReader()
		r.SetUseIndex(useIndex)
		openMerge(t, r, a)
		r.InsideRectangle(20, 20, 30, 30)
		got := readWorld(t, r)
		assert.Len(t, got, 10)
		assert.InDelta(t, 20, got[0][0], 1e-9)
	}
}

func TestReader_DecompressSelective(t *testing.T) {
	r := NewReader()
	assert.Equal(t, data.DecompressAll, r.DecompressSelective())

	f := filter.NewFilter()
	_, err := f.ParseString("-keep_intensity 1 5")
	require.NoError(t, err)
	r.SetFilter(f)
	assert.NotZero(t, r.DecompressSelective()&data.DecompressIntensity)
	assert.Zero(t, r.DecompressSelective()&data.DecompressRGB)
}

func TestHeaderFolder_CountFold(t *testing.T) {
	a := data.NewHeader()
	a.NumberOfPointRecords = 100
	a.NumberOfPointsByReturn = [5]uint32{60, 40}
	a.Bounds = data.BoundingBox{MaxX: 1, MaxY: 1, MaxZ: 1}
	empty := data.NewHeader()

	f := headerFolder{}
	f.fold(a)
	f.fold(empty)
	assert.EqualValues(t, 100, f.npoints)
	assert.EqualValues(t, 100, f.header.NumberOfPointRecords)
	assert.EqualValues(t, 100, f.header.ExtendedNumberOfPointRecords)
	assert.EqualValues(t, 60, f.header.ExtendedNumberOfPointsByReturn[0])
	assert.Equal(t, a.Bounds, f.header.Bounds)
}

func TestHeaderFolder_EmptyFirstSource(t *testing.T) {
	empty := data.NewHeader()
	empty.Scale = [3]float64{1, 1, 1}
	b := data.NewHeader()
	b.NumberOfPointRecords = 5
	b.Offset = [3]float64{7, 7, 7}
	b.Bounds = data.BoundingBox{MinX: 7, MaxX: 8, MinY: 7, MaxY: 8, MinZ: 7, MaxZ: 8}

	f := headerFolder{}
	f.fold(empty)
	f.fold(b)
	assert.EqualValues(t, 5, f.npoints)
	assert.Equal(t, b.Quantizer, f.header.Quantizer)
	assert.Equal(t, b.Bounds, f.header.Bounds)
	assert.Equal(t, Warnings{}, f.warnings)
}

func TestHeaderFolder_BeyondThirtyTwoBits(t *testing.T) {
	big := func(minor uint8) *data.Header {
		h := data.NewHeader()
		h.VersionMinor = minor
		h.NumberOfPointRecords = 3000000000
		h.NumberOfPointsByReturn[0] = 3000000000
		return h
	}

	f := headerFolder{}
	f.fold(big(2))
	f.fold(big(2))
	assert.EqualValues(t, 6000000000, f.npoints)
	assert.EqualValues(t, 6000000000, f.header.ExtendedNumberOfPointRecords)
	assert.EqualValues(t, 6000000000, f.header.ExtendedNumberOfPointsByReturn[0])
	assert.EqualValues(t, uint32(6000000000%(1<<32)), f.header.NumberOfPointRecords)

	f.checkCount(false)
	assert.True(t, f.warnings.TooManyPoints)
	assert.EqualValues(t, 2, f.header.VersionMinor)

	upgraded := headerFolder{}
	upgraded.fold(big(3))
	upgraded.fold(big(3))
	size := upgraded.header.HeaderSize
	upgraded.checkCount(true)
	assert.False(t, upgraded.warnings.TooManyPoints)
	assert.EqualValues(t, 4, upgraded.header.VersionMinor)
	assert.Equal(t, size+140, upgraded.header.HeaderSize)
}

func TestHeaderFolder_Fit(t *testing.T) {
	tests := []struct {
		name         string
		scale        float64
		offset       float64
		minX, maxX   float64
		wantScale    float64
		wantOffset   float64
		wantRescale  bool
		wantReoffset bool
	}{
		{"fits", 0.01, 0, 0, 1000, 0.01, 0, false, false},
		{"grows scale", 0.0001, 0, 0, 1e6, 0.001, 0, true, false},
		{"moves offset", 0.01, 0, 1e9, 1e9 + 10, 0.01, 1e9 + 5, false, true},
		{"both", 0.001, 0, 1e9, 1e9 + 1e7, 0.01, 1e9 + 5e6, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := data.NewHeader()
			h.NumberOfPointRecords = 1
			h.Scale = [3]float64{tt.scale, 0.01, 0.01}
			h.Offset = [3]float64{tt.offset, 0, 0}
			h.Bounds = data.BoundingBox{MinX: tt.minX, MaxX: tt.maxX, MaxY: 1, MaxZ: 1}

			f := headerFolder{}
			f.fold(h)
			f.resolveFrame([3]float64{}, nil)
			assert.InDelta(t, tt.wantScale, f.header.Scale[0], tt.wantScale*1e-9)
			assert.InDelta(t, tt.wantOffset, f.header.Offset[0], 1e-9)
			assert.Equal(t, tt.wantRescale, f.warnings.Rescale)
			assert.Equal(t, tt.wantReoffset, f.warnings.Reoffset)
			assert.True(t, f.header.Fits(0, tt.minX, tt.maxX))
		})
	}
}

func TestHeaderFolder_Mismatches(t *testing.T) {
	a := data.NewHeader()
	a.NumberOfPointRecords = 1
	b := a.Clone()
	b.PointDataFormat = 3
	b.PointDataRecordLength = data.PointFormatLength[3]
	b.Attributes = []data.AttributeDescriptor{{DataType: data.AttributeDouble, Name: "height"}}

	f := headerFolder{}
	f.fold(a)
	f.fold(b)
	assert.True(t, f.warnings.PointTypeChange)
	assert.True(t, f.warnings.PointSizeChange)
	assert.True(t, f.warnings.AdditionalAttributeChange)
	assert.False(t, f.warnings.Rescale)
}

func TestHeaderFolder_Tiling(t *testing.T) {
	a := data.NewHeader()
	a.NumberOfPointRecords = 1
	a.Tiling = &data.Tiling{Level: 2}
	b := a.Clone()
	b.Tiling.Level = 3

	stripped := headerFolder{}
	stripped.fold(a)
	assert.Nil(t, stripped.header.Tiling)

	kept := headerFolder{keepTiling: true}
	kept.fold(a)
	kept.fold(b)
	require.NotNil(t, kept.header.Tiling)
	assert.EqualValues(t, 2, kept.header.Tiling.Level)
	assert.True(t, kept.warnings.TilingChange)
}

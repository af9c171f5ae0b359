package filter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/las_merger/internal/command"
	"github.com/ecopia-map/las_merger/internal/data"
)

var testQuantizer = data.NewQuantizer([3]float64{0.01, 0.01, 0.01}, [3]float64{0, 0, 0})

func newTestPoint(x, y, z float64) *data.Point {
	p := data.NewPoint(3, testQuantizer, 2)
	p.SetX(x)
	p.SetY(y)
	p.SetZ(z)
	return p
}

func randomPoints(n int) []*data.Point {
	r := rand.New(rand.NewSource(42))
	points := make([]*data.Point, n)
	for i := range points {
		p := newTestPoint(r.Float64()*200-50, r.Float64()*200-50, r.Float64()*50)
		p.Intensity = uint16(r.Intn(1000))
		p.SetNumberOfReturns(uint8(1 + r.Intn(5)))
		p.SetReturnNumber(uint8(1 + r.Intn(int(p.NumberOfReturns))))
		p.SetClassification(uint8(r.Intn(10)))
		p.ScanAngleRank = int8(r.Intn(60) - 30)
		p.UserData = uint8(r.Intn(256))
		p.PointSourceID = uint16(r.Intn(4))
		p.GPSTime = float64(i / 3)
		p.ScanDirectionFlag = uint8(r.Intn(2))
		p.RGB = [4]uint16{uint16(r.Intn(65536)), uint16(r.Intn(65536)), uint16(r.Intn(65536)), 0}
		p.Attributes[1] = r.Float64() * 10
		points[i] = p
	}
	return points
}

func run(f *Filter, points []*data.Point) []bool {
	dropped := make([]bool, len(points))
	for i, p := range points {
		dropped[i] = f.Filter(p)
	}
	return dropped
}

func TestFilterIsOrOfCriteria(t *testing.T) {
	t.Parallel()
	f := NewFilter()
	f.AddCriterion(&valueCriterion{name: "drop_intensity_above", field: fieldIntensity, mode: dropAbove, a: 100}) // A
	f.AddCriterion(&valueCriterion{name: "drop_user_data", field: fieldUserData, mode: dropEqual, a: 7})          // B
	f.AddCriterion(&valueCriterion{name: "drop_point_source", field: fieldPointSource, mode: dropEqual, a: 3})    // C

	onlyB := newTestPoint(1, 1, 1)
	onlyB.Intensity = 10
	onlyB.UserData = 7
	assert.True(t, f.Filter(onlyB))

	none := newTestPoint(1, 1, 1)
	none.Intensity = 10
	assert.False(t, f.Filter(none))

	counts := f.Counters()
	require.Len(t, counts, 3)
	assert.Equal(t, uint64(0), counts[0].Count)
	assert.Equal(t, uint64(1), counts[1].Count)
	assert.Equal(t, uint64(0), counts[2].Count)
	assert.Equal(t, "-drop_user_data 7", counts[1].Command)

	// only the first matching criterion counts
	all := newTestPoint(1, 1, 1)
	all.Intensity = 500
	all.UserData = 7
	all.PointSourceID = 3
	assert.True(t, f.Filter(all))
	assert.Equal(t, uint64(1), f.Counters()[0].Count)
	assert.Equal(t, uint64(0), f.Counters()[2].Count)

	f.Reset()
	assert.Equal(t, uint64(1), f.Counters()[1].Count, "reset keeps counters")
}

func TestFilterActiveAndClean(t *testing.T) {
	t.Parallel()
	var nilFilter *Filter
	assert.False(t, nilFilter.Active())

	f := NewFilter()
	assert.False(t, f.Active())
	assert.Equal(t, data.DecompressChannelReturnsXY, f.DecompressSelective())

	f.AddKeepCircle(0, 0, 10)
	f.AddKeepBox(0, 0, 0, 10, 10, 10)
	f.AddKeepScanDirectionChange()
	assert.True(t, f.Active())
	assert.Equal(t, data.DecompressChannelReturnsXY|data.DecompressZ|data.DecompressFlags, f.DecompressSelective())

	f.Clean()
	assert.False(t, f.Active())
	assert.Empty(t, f.Counters())
}

func TestParseUnparseRoundTrip(t *testing.T) {
	t.Parallel()
	commands := []string{
		"-keep_tile 0 0 100",
		"-keep_circle 50 50 80.5",
		"-drop_xy 10 10 20 20 -keep_xyz -100 -100 0 200 200 40.25",
		"-keep_x -10 120 -drop_y_above 140 -keep_z_above 2.5",
		"-keep_X -100000 1000000 -keep_Z_below 4000 -keep_XY -100000 -100000 2000000 2000000",
		"-keep_first_of_many -drop_last -keep_middle -first_only",
		"-keep_return 1 2 3 -keep_return 4 -drop_return_mask 32",
		"-keep_single -keep_number_of_returns 9 -drop_quintuple",
		"-keep_class 1 2 3 4 5 6 -drop_classification 5",
		"-keep_extended_class 1 2 3 4 200",
		"-drop_extended_classification_mask 0 0 0 0 0 0 0 3",
		"-drop_intensity_above 900 -keep_intensity 10 950 -keep_intensity_below 990",
		"-keep_RGB_red 65000 10 -drop_RGB_blue 0 100 -keep_NDVI_from_CIR -1 0.75",
		"-keep_scan_angle 20 -25 -drop_abs_scan_angle_above 28",
		"-drop_user_data 3 -keep_user_data_between 0 250 -keep_user_data_above 0",
		"-keep_point_source 0 1 2 -drop_point_source_between 7 9",
		"-keep_gps_time 0 1000 -keep_gpstime_below 900.5",
		"-keep_attribute_between 1 0.5 9.5 -drop_attribute_below 0 -1",
		"-keep_scanner_channel 0 -drop_scan_direction 1 -drop_withheld -drop_synthetic",
		"-keep_every_nth 1 -drop_every_nth 11 -keep_random_fraction 7 0.9 -keep_random_fraction 0.95",
		"-thin_with_grid 5 -thin_pulses_with_time 2.5 -thin_points_with_time 100",
		"-drop_z_below 1 -drop_intensity_below 3 -filter_or -keep_scan_direction_change -drop_wavepacket 9 -filter_and",
	}
	points := randomPoints(500)
	for _, cmd := range commands {
		cmd := cmd
		t.Run(cmd, func(t *testing.T) {
			t.Parallel()
			f := NewFilter()
			_, err := f.ParseString(cmd)
			require.NoError(t, err)
			require.True(t, f.Active())

			g := NewFilter()
			_, err = g.ParseString(f.Unparse())
			require.NoError(t, err)

			assert.Equal(t, f.Unparse(), g.Unparse())
			assert.Equal(t, f.DecompressSelective(), g.DecompressSelective())
			assert.Equal(t, run(f, randomPoints(500)), run(g, points))
		})
	}
}

func TestParseConsumesOnlyRecognizedTokens(t *testing.T) {
	t.Parallel()
	f := NewFilter()
	consumed, err := f.Parse([]string{"-i", "in.las", "-keep_x", "1", "2", "-unknown", "-keep_first", "out"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 6}, consumed)
	assert.Equal(t, "-keep_x 1 2 -keep_first ", f.Unparse())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		cmd   string
		token string
		msg   string
	}{
		{"-keep_x 1", "-keep_x", "'-keep_x' needs 2 arguments: min_x max_x"},
		{"-keep_intensity 1 abc", "-keep_intensity", "'-keep_intensity' needs 2 arguments: min_intensity max_intensity but 'abc' is no valid max_intensity"},
		{"-keep_user_data 256", "-keep_user_data", "'-keep_user_data' needs user_data between 0 and 255 but user_data is 256"},
		{"-keep_class", "-keep_class", "'-keep_class' needs at least 1 argument: classification"},
		{"-keep_class 32", "-keep_class", "'-keep_class' needs classification between 0 and 31 but classification is 32"},
	} {
		f := NewFilter()
		f.AddKeepCircle(0, 0, 1)
		_, err := f.ParseString("-keep_last " + tc.cmd)
		require.Error(t, err, tc.cmd)
		var parseErr *command.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, tc.token, parseErr.Token)
		assert.Equal(t, tc.msg, parseErr.Msg)
		assert.Len(t, f.Criteria(), 1, "failed parse leaves the filter untouched")
	}

	f := NewFilter()
	_, err := f.ParseString("-keep_first -filter_or")
	var parseErr *command.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "'-filter_or' needs to be preceded by at least two filters", parseErr.Msg)
	assert.False(t, f.Active())

	_, err = f.ParseString("-keep_extended_class 40 -drop_extended_class 41")
	assert.Error(t, err)
	assert.False(t, f.Active())
}

func TestParseRestoresMergedMasks(t *testing.T) {
	t.Parallel()
	f := NewFilter()
	_, err := f.ParseString("-keep_class 2")
	require.NoError(t, err)
	_, err = f.ParseString("-keep_class 3 -keep_x 1")
	require.Error(t, err)
	assert.Equal(t, "-keep_class 2 ", f.Unparse())
	_, err = f.ParseString("-keep_class 3")
	require.NoError(t, err)
	assert.Equal(t, "-keep_class 2 3 ", f.Unparse())
}

func TestKeepTileIsHalfOpen(t *testing.T) {
	t.Parallel()
	c := NewKeepTile(0, 0, 100)
	assert.False(t, c.Filter(newTestPoint(0, 0, 0)))
	assert.False(t, c.Filter(newTestPoint(99.99, 50, 0)))
	assert.True(t, c.Filter(newTestPoint(100, 50, 0)))
	assert.True(t, c.Filter(newTestPoint(50, -0.01, 0)))
	assert.Equal(t, "-keep_tile 0 0 100 ", c.Command())
}

func TestReturnSelectors(t *testing.T) {
	t.Parallel()
	p := newTestPoint(0, 0, 0)
	p.SetNumberOfReturns(3)
	for _, tc := range []struct {
		name    string
		rn      uint8
		dropped bool
	}{
		{"keep_first", 1, false},
		{"keep_first", 2, true},
		{"keep_last", 3, false},
		{"keep_last", 2, true},
		{"keep_middle", 2, false},
		{"keep_middle", 3, true},
		{"keep_second_last", 2, false},
		{"keep_second_last", 1, true},
		{"drop_first_of_many", 1, true},
		{"drop_last_of_many", 3, true},
		{"drop_middle", 2, true},
		{"drop_middle", 1, false},
	} {
		p.SetReturnNumber(tc.rn)
		assert.Equal(t, tc.dropped, returnCriteria[tc.name]().Filter(p), "%s on return %d", tc.name, tc.rn)
	}

	single := newTestPoint(0, 0, 0)
	single.SetNumberOfReturns(1)
	single.SetReturnNumber(1)
	assert.True(t, returnCriteria["keep_first_of_many"]().Filter(single))
	assert.False(t, returnCriteria["drop_last_of_many"]().Filter(single))
	assert.Equal(t, "keep_single", newNumberOfReturns(true, 1).Name())
	assert.Equal(t, "-keep_number_of_returns 7 ", newNumberOfReturns(true, 7).Command())
}

func TestMasks(t *testing.T) {
	t.Parallel()
	f := NewFilter()
	_, err := f.ParseString("-keep_return 1 -keep_return 3 -drop_class 7 -drop_class 18")
	require.NoError(t, err)
	assert.Equal(t, "-keep_return 1 3 -drop_class 7 18 ", f.Unparse())

	p := newTestPoint(0, 0, 0)
	p.SetNumberOfReturns(3)
	p.SetReturnNumber(2)
	assert.True(t, f.Filter(p))
	p.SetReturnNumber(3)
	assert.False(t, f.Filter(p))
	p.SetClassification(18)
	assert.True(t, f.Filter(p))

	empty := NewFilter()
	_, err = empty.ParseString("-keep_classification_mask 0")
	require.NoError(t, err)
	assert.Equal(t, "-keep_classification_mask 0 ", empty.Unparse())

	ext := NewFilter()
	_, err = ext.ParseString("-keep_extended_class 2 40")
	require.NoError(t, err)
	q := data.NewPoint(6, testQuantizer, 0)
	q.SetExtendedClassification(40)
	assert.False(t, ext.Filter(q))
	q.SetExtendedClassification(41)
	assert.True(t, ext.Filter(q))
	q.SetExtendedClassification(2)
	assert.False(t, ext.Filter(q))
}

func TestEveryNth(t *testing.T) {
	t.Parallel()
	keep := newEveryNth(true, 3)
	p := newTestPoint(0, 0, 0)
	var kept []int
	for i := 0; i < 9; i++ {
		if !keep.Filter(p) {
			kept = append(kept, i)
		}
	}
	assert.Equal(t, []int{2, 5, 8}, kept)

	keep.Filter(p)
	keep.Reset()
	assert.True(t, keep.Filter(p))
	assert.True(t, keep.Filter(p))
	assert.False(t, keep.Filter(p))
}

func TestRandomFractionIsReproducible(t *testing.T) {
	t.Parallel()
	points := randomPoints(200)
	c := newRandomFraction(11, 0.5)
	first := make([]bool, len(points))
	for i, p := range points {
		first[i] = c.Filter(p)
	}
	c.Reset()
	for i, p := range points {
		assert.Equal(t, first[i], c.Filter(p))
	}
	assert.Contains(t, first, true)
	assert.Contains(t, first, false)

	all := newRandomFraction(0, 1)
	for _, p := range points {
		assert.False(t, all.Filter(p))
	}
}

func TestRandomFractionDoesNotAllocatePerPoint(t *testing.T) {
	c := newRandomFraction(3, 0.5)
	p := randomPoints(1)[0]
	assert.Zero(t, testing.AllocsPerRun(1000, func() { c.Filter(p) }))
}

func TestThinning(t *testing.T) {
	t.Parallel()
	grid := newThinWithGrid(10)
	assert.False(t, grid.Filter(newTestPoint(1, 1, 0)))
	assert.True(t, grid.Filter(newTestPoint(9.99, 0, 0)))
	assert.False(t, grid.Filter(newTestPoint(10, 0, 0)))
	assert.False(t, grid.Filter(newTestPoint(-0.01, 0, 0)))
	grid.Reset()
	assert.False(t, grid.Filter(newTestPoint(1, 1, 0)))

	pulses := newThinWithTime(true, 1)
	points := newThinWithTime(false, 1)
	a, b, c := newTestPoint(0, 0, 0), newTestPoint(0, 0, 0), newTestPoint(0, 0, 0)
	a.GPSTime, b.GPSTime, c.GPSTime = 0.25, 0.25, 0.5
	assert.Equal(t, []bool{false, false, true}, []bool{pulses.Filter(a), pulses.Filter(b), pulses.Filter(c)})
	assert.Equal(t, []bool{false, true, true}, []bool{points.Filter(a), points.Filter(b), points.Filter(c)})
}

func TestScanDirectionChange(t *testing.T) {
	t.Parallel()
	c := NewKeepScanDirectionChange()
	p := newTestPoint(0, 0, 0)
	var dropped []bool
	for _, flag := range []uint8{0, 0, 1, 1, 0} {
		p.ScanDirectionFlag = flag
		dropped = append(dropped, c.Filter(p))
	}
	assert.Equal(t, []bool{true, true, false, true, false}, dropped)
	c.Reset()
	p.ScanDirectionFlag = 1
	assert.True(t, c.Filter(p))
}

func TestNDVI(t *testing.T) {
	t.Parallel()
	p := newTestPoint(0, 0, 0)
	p.RGB = [4]uint16{100, 0, 0, 300}
	c := newKeepNDVI(ndviNIR, 0.6, 0.4)
	assert.False(t, c.Filter(p), "ndvi 0.5 inside swapped bounds")
	p.RGB[3] = 100
	assert.True(t, c.Filter(p))
	p.RGB = [4]uint16{}
	assert.False(t, c.Filter(p), "undefined ndvi keeps the point")
}

func TestKeepPointSourceList(t *testing.T) {
	t.Parallel()
	f := NewFilter()
	_, err := f.ParseString("-keep_point_source 1 3")
	require.NoError(t, err)
	assert.Equal(t, "-keep_point_source 1 -keep_point_source 3 -filter_and ", f.Unparse())
	p := newTestPoint(0, 0, 0)
	for id, dropped := range map[uint16]bool{0: true, 1: false, 2: true, 3: false} {
		p.PointSourceID = id
		assert.Equal(t, dropped, f.Filter(p), "point source %d", id)
	}
}

package transform

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
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
	r := rand.New(rand.NewSource(7))
	points := make([]*data.Point, n)
	for i := range points {
		p := newTestPoint(r.Float64()*1000-500, r.Float64()*1000-500, r.Float64()*100)
		p.Intensity = uint16(r.Intn(4000))
		p.SetNumberOfReturns(uint8(r.Intn(6)))
		p.SetReturnNumber(uint8(r.Intn(6)))
		p.SetClassification(uint8(r.Intn(12)))
		p.ScanAngleRank = int8(r.Intn(60) - 30)
		p.UserData = uint8(r.Intn(256))
		p.PointSourceID = uint16(r.Intn(100))
		p.GPSTime = 1e8 + r.Float64()*1e5
		p.RGB = [4]uint16{uint16(r.Intn(65536)), uint16(r.Intn(256)), uint16(r.Intn(65536)), uint16(r.Intn(65536))}
		p.Attributes[0] = r.Float64() * 20
		p.Attributes[1] = r.Float64()*200 - 100
		points[i] = p
	}
	return points
}

func transformAll(t *Pipeline, points []*data.Point) []*data.Point {
	out := make([]*data.Point, len(points))
	for i, p := range points {
		c := p.Clone()
		t.Transform(c)
		out[i] = c
	}
	return out
}

func mustParse(t *testing.T, s string) *Pipeline {
	t.Helper()
	p := NewPipeline()
	_, err := p.ParseString(s)
	require.NoError(t, err)
	return p
}

var pointCmp = []cmp.Option{
	cmpopts.IgnoreFields(data.Point{}, "Quantizer"),
	cmpopts.EquateNaNs(),
}

func TestRegistersCarryValuesBetweenOperations(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-copy_intensity_into_register 3 -copy_register_into_z 3")
	p := newTestPoint(1, 2, 3)
	p.Intensity = 250

	pipeline.Transform(p)

	assert.InDelta(t, 250.0, p.GetZ(), 1e-9)
	assert.Equal(t, 250.0, pipeline.GetRegisters()[3])
}

func TestRegisterArithmetic(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-set_register 0 6 -copy_user_data_into_register 1 -multiply_registers 0 1 2 "+
		"-translate_register 2 0.5 -copy_register_into_intensity 2")
	p := newTestPoint(0, 0, 0)
	p.UserData = 7
	pipeline.Transform(p)
	assert.Equal(t, uint16(42), p.Intensity)

	pipeline.Reset()
	assert.Equal(t, Registers{}, *pipeline.GetRegisters())
}

func TestCoordinateOverflowIsCounted(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-scale_x 1000 -translate_y 1")
	points := []*data.Point{newTestPoint(1e6, 0, 0), newTestPoint(2e6, 0, 0), newTestPoint(1, 0, 0)}
	raws := []int32{points[0].X, points[1].X}

	for _, p := range points {
		pipeline.Transform(p)
	}

	assert.Equal(t, raws[0], points[0].X)
	assert.Equal(t, raws[1], points[1].X)
	assert.InDelta(t, 1000.0, points[2].GetX(), 1e-9)
	assert.InDelta(t, 1.0, points[0].GetY(), 1e-9)

	reports := pipeline.CheckForOverflow()
	require.Len(t, reports, 1)
	assert.Equal(t, OverflowReport{Operation: "scale_x", Command: "-scale_x 1000 ", Count: 2}, reports[0])
}

func TestCommandRoundTrip(t *testing.T) {
	t.Parallel()
	commands := []string{
		"-translate_x 0.1 -translate_y -2.5 -translate_z 1e-3",
		"-scale_xyz 0.3048 0.3048 0.3048",
		"-translate_xyz 100 200 -300.25",
		"-translate_then_scale_z -10 0.5",
		"-rotate_xy 15.5 10 20",
		"-rotate_xz 3 0 0 -rotate_yz -7 1 1",
		"-transform_helmert 0.5,-0.25,1,0.1,0.2,-0.3,1.5",
		"-transform_affine 1.0001,0.2,10,-20",
		"-transform_matrix 0,1,0 1,0,0 0,0,1 10,0,0",
		"-clamp_z 5 50 -clamp_z_below 1 -clamp_z_above 90 -clamp_raw_z -100 2000",
		"-translate_raw_x 10 -translate_raw_xyz 1 -2 3",
		"-copy_attribute_into_z 0 -add_scaled_attribute_to_z 1 0.25 -add_attribute_to_z 0",
		"-switch_x_y -switch_y_z",
		"-set_intensity 7 -scale_intensity 1.1 -translate_intensity -3.5 -translate_then_scale_intensity 2 0.7",
		"-clamp_intensity 10 2000 -clamp_intensity_below 5 -clamp_intensity_above 3000",
		"-copy_attribute_into_I 1 -bin_gps_time_into_intensity 10",
		"-copy_RGB_into_intensity -copy_NIR_into_intensity",
		"-set_scan_angle 3.5 -scale_scan_angle 1.5 -translate_then_scale_scan_angle 1 2",
		"-set_user_data 3 -scale_user_data 0.5 -change_user_data_from_to 1 2 -add_scaled_attribute_to_user_data 0 2",
		"-copy_classification_into_user_data -copy_register_into_user_data 15",
		"-set_point_source 11 -change_point_source_from_to 3 4 -merge_scanner_channel_into_point_source",
		"-split_scanner_channel_from_point_source -bin_Z_into_point_source 100 -bin_abs_scan_angle_into_point_source 2",
		"-set_classification 6 -change_class_from_to 2 8 -classify_z_between_as 10 20 5",
		"-classify_intensity_above_as 1000 9 -classify_attribute_below_as 1 -5 7",
		"-move_ancient_to_extended_classification -copy_user_data_into_classification",
		"-set_withheld_flag 1 -set_synthetic_flag 0 -set_scan_direction_flag 1 -set_scanner_channel 2",
		"-repair_zero_returns -change_return_number_from_to 0 1 -set_number_of_returns 2",
		"-set_extended_return_number 12 -change_extended_number_of_returns_from_to 0 3",
		"-translate_gps_time -1e8 -adjusted_to_week -week_to_adjusted 1818",
		"-set_RGB 1 2 3 -set_RGB_of_class 2 255 0 0 -scale_rgb 0.5 0.5 0.25 -scale_RGB_to_8bit",
		"-switch_R_B -switch_RGBI_into_CIR -copy_G_into_NIR -scale_NIR_to_8bit",
		"-copy_attribute_into_NIR 0 -multiply_scaled_intensity_into_RGB_green 0.01",
		"-set_register 4 -1.5 -scale_register 4 2 -add_registers 4 4 5 -divide_registers 5 4 6",
		"-copy_attribute_into_register 1 7 -copy_register_into_attribute 7 0 -copy_R_into_register 8",
		"-set_attribute 0 3.25 -scale_attribute 1 -1 -translate_attribute 1 4 -copy_z_into_attribute 0",
	}
	points := randomPoints(200)
	for _, s := range commands {
		s := s
		t.Run(s, func(t *testing.T) {
			first := mustParse(t, s)
			unparsed := first.Unparse()
			second := mustParse(t, unparsed)
			assert.Equal(t, unparsed, second.Unparse())
			assert.Equal(t, first.DecompressSelective(), second.DecompressSelective())
			assert.Empty(t, cmp.Diff(transformAll(first, points), transformAll(second, points), pointCmp...))
		})
	}
}

func TestCanonicalCommands(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"-translate_x 0.1":                   "-translate_x 0.1 ",
		"-scale_intensity 1.1":               "-scale_intensity 1.1 ",
		"-change_class_from_to 2 6":          "-change_classification_from_to 2 6 ",
		"-set_extended_classification 40":    "-set_classification 40 ",
		"-copy_register_into_I 1":            "-copy_register_into_intensity 1 ",
		"-scale_nir_down":                    "-scale_NIR_down ",
		"-transform_helmert 1,2,3,0,0,0,0.5": "-transform_helmert 1,2,3,0,0,0,0.5 ",
		"-translate_raw_xy_at_random 5 6":    "-translate_raw_xy_at_random 5 6 ",
		"-week_to_adjusted 1818":             "-week_to_adjusted 1818 ",
	}
	for in, want := range cases {
		assert.Equal(t, want, mustParse(t, in).Unparse(), in)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		command string
		message string
	}{
		{"-translate_x", "'-translate_x' needs 1 argument: offset"},
		{"-translate_xyz 1 2", "'-translate_xyz' needs 3 arguments: offset_x offset_y offset_z"},
		{"-scale_z abc", "'-scale_z' needs 1 argument: scale but 'abc' is no valid scale"},
		{"-set_register 16 1", "'-set_register' needs register between 0 and 15 but register is 16"},
		{"-copy_register_into_z -1", "'-copy_register_into_z' needs register between 0 and 15 but register is -1"},
		{"-set_classification 256", "'-set_classification' needs class between 0 and 255 but class is 256"},
		{"-transform_helmert 1,2,3", "'-transform_helmert' needs 1 argument: dx,dy,dz,rx,ry,rz,m but '1,2,3' is no valid dx,dy,dz,rx,ry,rz,m"},
		{"-map_intensity /does/not/exist.txt", "'-map_intensity' cannot read '/does/not/exist.txt'"},
		{"-reproject_epsg 4326 1", "'-reproject_epsg' does not know EPSG code 1"},
		{"-filtered_transform -set_user_data 1", "'-filtered_transform' needs at least one filter criterion"},
	}
	for _, c := range cases {
		pipeline := mustParse(t, "-translate_z 1")
		_, err := pipeline.ParseString("-set_user_data 3 " + c.command)
		require.Error(t, err, c.command)
		assert.Equal(t, c.message, err.Error())
		var parseError *command.ParseError
		if assert.ErrorAs(t, err, &parseError) {
			assert.Greater(t, parseError.Index, 0)
		}
		assert.Equal(t, "-translate_z 1 ", pipeline.Unparse(), "operations restored after '%s'", c.command)
	}
}

func TestParseReportsConsumedTokens(t *testing.T) {
	t.Parallel()
	tokens := []string{"-translate_x", "1", "-keep_class", "2", "-set_user_data", "4", "out.las"}
	consumed, err := NewPipeline().Parse(tokens)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 5}, consumed)
}

func TestFilteredTransform(t *testing.T) {
	t.Parallel()
	tokens := []string{"-keep_class", "2", "-filtered_transform", "-set_user_data", "9", "-i", "in.las"}
	pipeline := NewPipeline()
	consumed, err := pipeline.Parse(tokens)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, consumed)
	require.NotNil(t, pipeline.GetFilter())

	ground := newTestPoint(0, 0, 0)
	ground.SetClassification(2)
	vegetation := newTestPoint(0, 0, 0)
	vegetation.SetClassification(3)
	pipeline.Transform(ground)
	pipeline.Transform(vegetation)
	assert.Equal(t, uint8(9), ground.UserData)
	assert.Equal(t, uint8(0), vegetation.UserData)

	unparsed := pipeline.Unparse()
	assert.Contains(t, unparsed, "-filtered_transform -set_user_data 9 ")
	clone, err := pipeline.Clone()
	require.NoError(t, err)
	assert.Equal(t, unparsed, clone.Unparse())
	assert.Equal(t, data.DecompressUserData|data.DecompressClassification, pipeline.DecompressSelective())
}

func TestPointSourceReplacement(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-translate_x 1")
	pipeline.SetPointSource(3)
	pipeline.SetPointSource(4)
	assert.Equal(t, "-translate_x 1 -set_point_source 4 ", pipeline.Unparse())

	p := newTestPoint(0, 0, 0)
	pipeline.Transform(p)
	assert.Equal(t, uint16(4), p.PointSourceID)

	pipeline.UnsetPointSource()
	assert.Equal(t, "-translate_x 1 ", pipeline.Unparse())
	assert.False(t, pipeline.DeleteOperation("set_point_source"))
	assert.True(t, pipeline.DeleteOperation("translate_x"))
	assert.False(t, pipeline.Active())
}

func TestDeleteOperationRemovesFirstMatch(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-translate_z 1 -scale_z 2 -translate_z 3")
	assert.True(t, pipeline.DeleteOperation("translate_z"))
	assert.Equal(t, "-scale_z 2 -translate_z 3 ", pipeline.Unparse())
}

func TestCoordinateOperations(t *testing.T) {
	t.Parallel()
	cases := []struct {
		command string
		in      [3]float64
		want    [3]float64
	}{
		{"-rotate_xy 90 0 0", [3]float64{1, 0, 5}, [3]float64{0, 1, 5}},
		{"-rotate_xy 180 10 10", [3]float64{11, 10, 0}, [3]float64{9, 10, 0}},
		{"-rotate_xz 90 0 0", [3]float64{1, 7, 0}, [3]float64{0, 7, 1}},
		{"-rotate_yz 90 0 0", [3]float64{3, 1, 0}, [3]float64{3, 0, 1}},
		{"-transform_helmert 0,0,0,0,0,0,0", [3]float64{100, 200, 30}, [3]float64{100, 200, 30}},
		{"-transform_helmert 1,-2,0.5,0,0,0,0", [3]float64{100, 200, 30}, [3]float64{101, 198, 30.5}},
		{"-transform_affine 1,0,5,6", [3]float64{1, 2, 3}, [3]float64{6, 8, 3}},
		{"-transform_matrix 0,1,0 1,0,0 0,0,1 10,0,0", [3]float64{1, 2, 3}, [3]float64{12, 1, 3}},
		{"-translate_then_scale_y 1 2", [3]float64{0, 4, 0}, [3]float64{0, 10, 0}},
		{"-clamp_z 0 10", [3]float64{0, 0, 12}, [3]float64{0, 0, 10}},
		{"-switch_x_z", [3]float64{1, 2, 3}, [3]float64{3, 2, 1}},
	}
	for _, c := range cases {
		p := newTestPoint(c.in[0], c.in[1], c.in[2])
		mustParse(t, c.command).Transform(p)
		assert.InDelta(t, c.want[0], p.GetX(), 0.011, c.command)
		assert.InDelta(t, c.want[1], p.GetY(), 0.011, c.command)
		assert.InDelta(t, c.want[2], p.GetZ(), 0.011, c.command)
	}
}

func TestFieldOperations(t *testing.T) {
	t.Parallel()
	p := newTestPoint(0, 0, 5)
	p.RGB = [4]uint16{100, 200, 50, 0}
	p.PointSourceID = 5
	p.ExtendedScannerChannel = 2
	p.GPSTime = 1e8

	mustParse(t, "-copy_RGB_into_intensity -merge_scanner_channel_into_point_source").Transform(p)
	assert.Equal(t, uint16(153), p.Intensity)
	assert.Equal(t, uint16(22), p.PointSourceID)

	mustParse(t, "-set_scanner_channel 0 -split_scanner_channel_from_point_source").Transform(p)
	assert.Equal(t, uint8(2), p.ExtendedScannerChannel)
	assert.Equal(t, uint16(5), p.PointSourceID)

	mustParse(t, "-adjusted_to_week").Transform(p)
	assert.InDelta(t, 473600.0, p.GPSTime, 1e-6)
	mustParse(t, "-week_to_adjusted 1818").Transform(p)
	assert.InDelta(t, 1e8, p.GPSTime, 1e-6)

	mustParse(t, "-classify_z_between_as 0 10 6 -scale_RGB_to_8bit").Transform(p)
	assert.Equal(t, uint8(6), p.Classification)
	assert.Equal(t, [4]uint16{100, 200, 50, 0}, p.RGB)

	mustParse(t, "-scale_RGB_to_16bit -switch_RGB_intensity_into_CIR").Transform(p)
	assert.Equal(t, [4]uint16{153, 100 * 256, 200 * 256, 0}, p.RGB)

	ext := data.NewPoint(6, testQuantizer, 0)
	ext.SetClassification(3)
	ext.WithheldFlag = true
	mustParse(t, "-move_ancient_to_extended_classification").Transform(ext)
	assert.Equal(t, uint8(128|3), ext.ExtendedClassification)
	assert.Equal(t, uint8(0), ext.Classification)
	assert.False(t, ext.WithheldFlag)
}

func TestRandomJitterRestartsOnReset(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-translate_raw_xy_at_random 5 3")
	offsets := func() [][2]int32 {
		var out [][2]int32
		for i := 0; i < 100; i++ {
			p := newTestPoint(0, 0, 0)
			pipeline.Transform(p)
			require.LessOrEqual(t, abs(p.X), int32(5))
			require.LessOrEqual(t, abs(p.Y), int32(3))
			out = append(out, [2]int32{p.X, p.Y})
		}
		return out
	}
	first := offsets()
	pipeline.Reset()
	assert.Equal(t, first, offsets())
}

func TestRandomJitterDoesNotAllocatePerPoint(t *testing.T) {
	op := newRandomJitter(5, 3)
	p := newTestPoint(0, 0, 0)
	assert.Zero(t, testing.AllocsPerRun(1000, func() { op.Apply(p, nil) }))
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMapIntensity(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "intensity.txt", "10 20\n30 40\nbad line\n70000 5\n")
	pipeline := mustParse(t, fmt.Sprintf("-map_intensity %s", path))
	assert.Equal(t, fmt.Sprintf("-map_intensity %q ", path), pipeline.Unparse())

	for in, want := range map[uint16]uint16{10: 20, 30: 40, 11: 11} {
		p := newTestPoint(0, 0, 0)
		p.Intensity = in
		pipeline.Transform(p)
		assert.Equal(t, want, p.Intensity)
	}
}

func TestMapIntensityFileNameWithSpaces(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "my map.txt", "10 20\n")
	pipeline := NewPipeline()
	_, err := pipeline.Parse([]string{"-map_intensity", path})
	require.NoError(t, err)

	clone, err := pipeline.Clone()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Unparse(), clone.Unparse())

	p := newTestPoint(0, 0, 0)
	p.Intensity = 10
	clone.Transform(p)
	assert.Equal(t, uint16(20), p.Intensity)
}

func TestMapAttributeIntoRGB(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "ramp.txt", "0 0 0 0\n10 255 0 0\n20 0 255 0\n5 300 0 0\n")
	pipeline := mustParse(t, fmt.Sprintf("-map_attribute_into_RGB 1 %s", path))
	cases := map[float64][3]uint16{-5: {0, 0, 0}, 25: {0, 255, 0}, 12: {255, 0, 0}, 16: {0, 255, 0}}
	for value, want := range cases {
		p := newTestPoint(0, 0, 0)
		p.Attributes[1] = value
		pipeline.Transform(p)
		assert.Equal(t, want, [3]uint16{p.GetR(), p.GetG(), p.GetB()}, "value %v", value)
	}
}

func TestLoadAttributeFromText(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "values.txt", "1.5\nfoo\n2.5\n")
	pipeline := mustParse(t, fmt.Sprintf("-load_attribute_from_text 0 %s", path))
	defer pipeline.Close()

	read := func() []float64 {
		var out []float64
		for i := 0; i < 3; i++ {
			p := newTestPoint(0, 0, 0)
			pipeline.Transform(p)
			out = append(out, p.Attributes[0])
		}
		return out
	}
	assert.Equal(t, []float64{1.5, 2.5, 0}, read())
	pipeline.Reset()
	assert.Equal(t, []float64{1.5, 2.5, 0}, read())

	clone, err := pipeline.Clone()
	require.NoError(t, err)
	defer clone.Close()
	p := newTestPoint(0, 0, 0)
	clone.Transform(p)
	assert.Equal(t, 1.5, p.Attributes[0])
}

func TestLoadAttributeFromTextMissingOnReset(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "values.txt", "1.5\n")
	pipeline := mustParse(t, fmt.Sprintf("-load_attribute_from_text 0 %s", path))
	defer pipeline.Close()

	require.NoError(t, os.Remove(path))
	pipeline.Reset()
	op, ok := pipeline.GetOperations()[0].(*textAttribute)
	require.True(t, ok)
	assert.Nil(t, op.file)

	p := newTestPoint(0, 0, 0)
	p.Attributes[0] = 7
	pipeline.Transform(p)
	assert.Equal(t, 7.0, p.Attributes[0])
}

func TestDecompressSelective(t *testing.T) {
	t.Parallel()
	assert.Equal(t, data.DecompressChannelReturnsXY, NewPipeline().DecompressSelective())
	assert.Equal(t, data.DecompressZ|data.DecompressRGB, mustParse(t, "-translate_z 1 -set_RGB 1 2 3").DecompressSelective())
	assert.Equal(t, data.DecompressNIR|data.DecompressIntensity, mustParse(t, "-copy_intensity_into_NIR").DecompressSelective())
}

func TestCleanRemovesEverything(t *testing.T) {
	t.Parallel()
	pipeline := mustParse(t, "-keep_class 2 -filtered_transform -set_register 1 2")
	pipeline.Transform(newTestPoint(0, 0, 0))
	pipeline.Clean()
	assert.False(t, pipeline.Active())
	assert.Nil(t, pipeline.GetFilter())
	assert.Equal(t, "", pipeline.Unparse())
}

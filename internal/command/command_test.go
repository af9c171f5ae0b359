package command

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat_RoundTrips(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{0, 1, -2.5, 0.1, 1.0 / 3.0, 4.84813681109536e-6, 637512.123456789, math.MaxInt32} {
		parsed, err := strconv.ParseFloat(Float(v), 64)
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}

	f32 := float32(0.1)
	parsed, err := strconv.ParseFloat(Float32(f32), 32)
	require.NoError(t, err)
	assert.Equal(t, f32, float32(parsed))
}

func TestJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-keep_first ", Join("keep_first"))
	assert.Equal(t, "-translate_xyz 1 2 3 ", Join("translate_xyz", "1", "2", "3"))
}

func TestFloats_Errors(t *testing.T) {
	t.Parallel()

	tokens := []string{"-keep_x", "10"}
	_, err := Floats(tokens, 0, "min_x", "max_x")
	require.Error(t, err)
	assert.Equal(t, "'-keep_x' needs 2 arguments: min_x max_x", err.Error())

	tokens = []string{"-keep_x", "10", "abc"}
	_, err = Floats(tokens, 0, "min_x", "max_x")
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, "-keep_x", perr.Token)
	assert.Equal(t, 0, perr.Index)
	assert.Equal(t, "'-keep_x' needs 2 arguments: min_x max_x but 'abc' is no valid max_x", perr.Msg)

	values, err := Floats([]string{"-drop_z_below", "1.5"}, 0, "min_z")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, values)
}

func TestInts(t *testing.T) {
	t.Parallel()

	_, err := Ints([]string{"-set_register", "1.5", "2"}, 0, "index", "value")
	require.Error(t, err)

	values, err := Ints([]string{"-x", "-3", "7"}, 0, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []int64{-3, 7}, values)

	assert.Error(t, CheckRange([]string{"-x"}, 0, "index", 16, 0, 15))
	assert.NoError(t, CheckRange([]string{"-x"}, 0, "index", 15, 0, 15))
}

func TestQuoting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "map.txt", Unquote(Quote("map.txt")))
	assert.Equal(t, "plain", Unquote("plain"))
	assert.True(t, IsNumber("12"))
	assert.False(t, IsNumber("-keep_class"))

	tokens, err := Tokenize("  -a 1   -b ")
	require.NoError(t, err)
	assert.Equal(t, []string{"-a", "1", "-b"}, tokens)
}

func TestTokenizeKeepsQuotedArguments(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"/data/my map.txt", `C:\maps\class "old".txt`, "plain.txt"} {
		tokens, err := Tokenize("-map_intensity " + Quote(name) + " -keep_class 2")
		require.NoError(t, err)
		assert.Equal(t, []string{"-map_intensity", name, "-keep_class", "2"}, tokens)
		assert.Equal(t, name, Unquote(Quote(name)))
	}

	_, err := Tokenize(`-map_intensity "unterminated`)
	assert.Error(t, err)
}

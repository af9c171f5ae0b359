package pipeline_manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCommands(t *testing.T) {
	args := []string{"-i", "in", "-keep_class", "2", "6", "--output", "out.las", "-translate_z", "-5", "-r"}
	filterCommand, transformCommand, rest, err := ExtractCommands(args)
	require.NoError(t, err)
	assert.Equal(t, "-keep_class 2 6 ", filterCommand)
	assert.Equal(t, "-translate_z -5 ", transformCommand)
	assert.Equal(t, []string{"-i", "in", "--output", "out.las", "-r"}, rest)
	assert.Equal(t, "-keep_class", args[2])
}

func TestExtractCommands_FilteredTransform(t *testing.T) {
	filterCommand, transformCommand, rest, err := ExtractCommands([]string{"-keep_class", "2", "-filtered_transform", "-set_classification", "6"})
	require.NoError(t, err)
	assert.Empty(t, filterCommand)
	assert.Contains(t, transformCommand, "-filtered_transform")
	assert.Contains(t, transformCommand, "-keep_class 2")
	assert.Empty(t, rest)
}

func TestExtractCommands_Errors(t *testing.T) {
	_, _, _, err := ExtractCommands([]string{"-translate_z"})
	assert.Error(t, err)
	_, _, _, err = ExtractCommands([]string{"-keep_class", "x"})
	assert.Error(t, err)
}

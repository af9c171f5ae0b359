package std_pipeline_manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/las_merger/internal/merger"
	"github.com/ecopia-map/las_merger/pkg/pipeline_manager"
)

func TestNewPipelineManager(t *testing.T) {
	opts := merger.NewOptions()
	m, err := NewPipelineManager(opts)
	require.NoError(t, err)
	assert.Nil(t, m.GetFilter())
	assert.Nil(t, m.GetTransform())
	m.Report()
	m.Close()

	opts.FilterCommand = "-keep_class 2 "
	opts.TransformCommand = "-scale_intensity 2 "
	m, err = NewPipelineManager(opts)
	require.NoError(t, err)
	defer m.Close()
	require.NotNil(t, m.GetFilter())
	require.NotNil(t, m.GetTransform())
	assert.Equal(t, opts.FilterCommand, m.GetFilter().Unparse())
	assert.Equal(t, opts.TransformCommand, m.GetTransform().Unparse())
	m.Report()
}

func TestNewPipelineManager_FileNameWithSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class map.txt")
	require.NoError(t, os.WriteFile(path, []byte("2 6\n"), 0644))

	filterCommand, transformCommand, rest, err := pipeline_manager.ExtractCommands([]string{"-i", "in", "-map_intensity", path})
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "in"}, rest)

	opts := merger.NewOptions()
	opts.FilterCommand = filterCommand
	opts.TransformCommand = transformCommand
	m, err := NewPipelineManager(opts)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, transformCommand, m.GetTransform().Unparse())
}

func TestNewPipelineManager_Errors(t *testing.T) {
	opts := merger.NewOptions()
	opts.FilterCommand = "-keep_class x"
	_, err := NewPipelineManager(opts)
	assert.Error(t, err)

	opts = merger.NewOptions()
	opts.TransformCommand = "-scale_intensity"
	_, err = NewPipelineManager(opts)
	assert.Error(t, err)
}

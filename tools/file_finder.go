package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	lasio "github.com/ecopia-map/las_merger/internal/io"
	"github.com/ecopia-map/las_merger/internal/merger"
)

type FileFinder interface {
	GetFilesToProcess(opts *merger.Options) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// If the input is a file it is the only source, otherwise every supported file of the input
// folder is, in lexical order, eventually excluding nested folders if Recursive is disabled
func (f *StandardFileFinder) GetFilesToProcess(opts *merger.Options) ([]string, error) {
	info, err := os.Stat(opts.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "input '%s'", opts.Input)
	}
	if !info.IsDir() {
		return []string{opts.Input}, nil
	}
	return f.getFilesFromInputFolder(opts, info)
}

func (f *StandardFileFinder) getFilesFromInputFolder(opts *merger.Options, baseInfo os.FileInfo) ([]string, error) {
	supported := make(map[string]bool)
	for _, ext := range lasio.SupportedExtensions() {
		supported[ext] = true
	}

	var files = make([]string, 0)
	err := filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if !opts.Recursive && !os.SameFile(info, baseInfo) {
					return filepath.SkipDir
				}
				return nil
			}
			if supported[strings.ToLower(filepath.Ext(info.Name()))] {
				files = append(files, path)
			}
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "walking '%s'", opts.Input)
	}

	return files, nil
}

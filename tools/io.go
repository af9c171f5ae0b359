package tools

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const WorkdirEnv = "LAS_MERGER_WORKDIR"

// Resolves a relative path against LAS_MERGER_WORKDIR when it is set
func ResolvePath(path string) string {
	workdir := os.Getenv(WorkdirEnv)
	if workdir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workdir, path)
}

func CreateDirectoryIfDoesNotExist(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		if err := os.MkdirAll(directory, 0777); err != nil {
			return errors.Wrapf(err, "creating '%s'", directory)
		}
	}
	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

package io

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Point cloud file formats a merge session can be locked to
type Format int

const (
	FormatUnknown Format = iota
	FormatLAS
	FormatTXT
	FormatPLY
)

var ErrUnknownFormat = errors.New("unknown point cloud format")

func (f Format) String() string {
	switch f {
	case FormatLAS:
		return "las"
	case FormatTXT:
		return "txt"
	case FormatPLY:
		return "ply"
	}
	return "unknown"
}

// Extensions recognized for each format
var extensions = map[string]Format{
	".las": FormatLAS,
	".txt": FormatTXT,
	".xyz": FormatTXT,
	".csv": FormatTXT,
	".pts": FormatTXT,
	".ply": FormatPLY,
}

// Infers the format of a file from its extension
func DetectFormat(name string) Format {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Extensions of every supported format, used by the file finder
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	return out
}

// Checks the file signature of binary formats, text is accepted as it is
func CheckSignature(name string, format Format) error {
	var magic string
	switch format {
	case FormatLAS:
		magic = "LASF"
	case FormatPLY:
		magic = "ply"
	case FormatTXT:
		return nil
	default:
		return errors.Wrapf(ErrUnknownFormat, "'%s'", name)
	}

	file, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "opening '%s'", name)
	}
	defer file.Close()

	buf := make([]byte, len(magic))
	if _, err := bufio.NewReader(file).Read(buf); err != nil || string(buf) != magic {
		return errors.Errorf("'%s' is not a %s file", name, format)
	}
	return nil
}

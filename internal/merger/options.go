package merger

import (
	lasio "github.com/ecopia-map/las_merger/internal/io"
)

type ClipKind string

const (
	ClipKindNone      ClipKind = "NONE"
	ClipKindTile      ClipKind = "TILE"
	ClipKindCircle    ClipKind = "CIRCLE"
	ClipKindRectangle ClipKind = "RECTANGLE"
)

func (e ClipKind) String() string {
	return string(e)
}

// Contains the options needed to set up a merge session
type Options struct {
	Input             string     // Input point cloud file/folder
	Recursive         bool       // Recursive lookup of files in subfolders
	Scale             [3]float64 // Requested scale factors, zero components keep the merged ones
	Offset            [3]float64 // Requested offsets, used when HasOffset is set
	HasOffset         bool       // if true Offset is applied to the merged header
	Flightlines       bool       // if true every source is a flightline with its own point source ID
	FlightlinesStart  int        // Point source ID of the first flightline
	ApplyFileSourceID bool       // Stamps every point with the file source ID of its source
	KeepTiling        bool       // Keeps the tiling record of the first source
	AutoUpgrade       bool       // Upgrades to LAS 1.4 when the point count exceeds 32 bits
	UseIndex          bool       // Follows sidecar indexes when a clip is active
	Clip              lasio.Clip // Spatial clip applied to the merged stream
	FilterCommand     string     // Filter tokens, as printed by Filter.Unparse
	TransformCommand  string     // Transform tokens, as printed by Pipeline.Unparse
	Reader            lasio.ReaderOptions

	Command        string
	MergeOptions   *MergeOptions
	IndexOptions   *IndexOptions
	InspectOptions *InspectOptions
}

type MergeOptions struct {
	Output    string // Output LAS file
	BatchSize int    // Number of points per work unit
}

type IndexOptions struct {
	CellSize float64 // Side of the grid cells in world units
	Force    bool    // Rebuilds existing sidecars
}

type InspectOptions struct {
	JSON bool // Prints the merged header as JSON
}

func NewOptions() *Options {
	return &Options{
		UseIndex: true,
		Reader:   lasio.DefaultReaderOptions(),
	}
}

// Kind of spatial clip configured on the options
func (opt *Options) GetClipKind() ClipKind {
	switch opt.Clip.Mode {
	case lasio.ClipTile:
		return ClipKindTile
	case lasio.ClipCircle:
		return ClipKindCircle
	case lasio.ClipRectangle:
		return ClipKindRectangle
	}
	return ClipKindNone
}

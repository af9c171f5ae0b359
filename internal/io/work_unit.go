package io

import "github.com/ecopia-map/las_merger/internal/data"

// Contains a batch of points read from the merged stream, in stream order
type WorkUnit struct {
	Sequence int
	Points   []*data.Point
}

package merger

import (
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/las_merger/internal/data"
	"github.com/ecopia-map/las_merger/internal/filter"
	"github.com/ecopia-map/las_merger/internal/index"
	lasio "github.com/ecopia-map/las_merger/internal/io"
	"github.com/ecopia-map/las_merger/internal/transform"
)

var (
	ErrFormatMismatch = errors.New("sources of different formats cannot be merged")
	ErrNoSources      = errors.New("no sources to merge")
)

// One input file of the merge
type source struct {
	name         string
	bounds       data.BoundingBox // empty when the header announced no points
	fileSourceID uint16
	trailing     bool // point counts are only known once the source is read
	folded       bool
}

// Point counts and box seen while streaming a trailing source
type trailingStats struct {
	count    uint64
	byReturn [15]uint64
	bounds   data.BoundingBox
}

// Reader presents a list of point cloud files as a single point stream with one merged
// header. Sources are read one after the other in the order they were added.
type Reader struct {
	format  lasio.Format
	sources []*source
	options lasio.ReaderOptions

	scale             [3]float64
	offset            *[3]float64
	flightlines       bool
	flightlinesStart  int
	applyFileSourceID bool
	keepTiling        bool
	autoUpgrade       bool
	useIndex          bool

	filter    *filter.Filter
	transform *transform.Pipeline

	clip       lasio.Clip
	origBounds data.BoundingBox

	opened   bool
	folder   headerFolder
	header   *data.Header
	point    *data.Point
	current  int // next source to open
	active   lasio.Reader
	activeAt int
	stats    trailingStats
	pCount   uint64
}

func NewReader() *Reader {
	return &Reader{
		options:  lasio.DefaultReaderOptions(),
		useIndex: true,
		activeAt: -1,
	}
}

// AddSource registers a file. Every source of a session must have the same format.
func (r *Reader) AddSource(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "opening '%s'", name)
	}
	file.Close()

	format := lasio.DetectFormat(name)
	if format == lasio.FormatUnknown {
		return errors.Wrapf(lasio.ErrUnknownFormat, "'%s'", name)
	}
	if r.format != lasio.FormatUnknown && r.format != format {
		return errors.Wrapf(ErrFormatMismatch, "cannot mix %s with %s, skipping '%s'", r.format, format, name)
	}
	r.format = format
	r.sources = append(r.sources, &source{name: name})
	return nil
}

func (r *Reader) SetScaleFactor(scale [3]float64) {
	r.scale = scale
}

func (r *Reader) SetOffset(offset [3]float64) {
	r.offset = &offset
}

// SetFilesAreFlightlines gives the points of the i-th source the point source ID start+i
func (r *Reader) SetFilesAreFlightlines(start int) {
	r.flightlines = true
	r.flightlinesStart = start
}

func (r *Reader) SetApplyFileSourceID(apply bool) {
	r.applyFileSourceID = apply
}

func (r *Reader) SetKeepTiling(keep bool) {
	r.keepTiling = keep
}

func (r *Reader) SetAutoUpgrade(upgrade bool) {
	r.autoUpgrade = upgrade
}

// SetUseIndex enables the sidecar indexes found next to LAS sources
func (r *Reader) SetUseIndex(use bool) {
	r.useIndex = use
}

func (r *Reader) SetReaderOptions(opts lasio.ReaderOptions) {
	r.options = opts
}

func (r *Reader) SetFilter(f *filter.Filter) {
	r.filter = f
}

func (r *Reader) SetTransform(t *transform.Pipeline) {
	r.transform = t
}

// Open scans the header of every source and builds the merged header. Sources are not
// kept open, they are opened again one at a time by ReadPoint.
func (r *Reader) Open() error {
	if len(r.sources) == 0 {
		return ErrNoSources
	}
	r.Close()

	r.folder = headerFolder{
		flightlines: r.flightlines || r.applyFileSourceID,
		keepTiling:  r.keepTiling,
	}
	for i, src := range r.sources {
		h, err := lasio.ReadHeader(src.name, r.format, r.options)
		if err != nil {
			return errors.Wrapf(err, "scanning source %d", i)
		}
		src.fileSourceID = h.FileSourceID
		src.trailing = h.PointCount() == 0
		src.folded = false
		if h.PointCount() == 0 {
			src.bounds = data.NewEmptyBoundingBox()
		} else {
			src.bounds = h.Bounds
		}
		r.folder.fold(h)
		glog.V(2).Infof("source %d '%s': %d points", i, src.name, h.PointCount())
	}
	r.folder.checkCount(r.autoUpgrade)
	r.folder.resolveFrame(r.scale, r.offset)

	r.header = r.folder.header
	r.point = r.header.NewPoint()
	r.origBounds = r.header.Bounds
	r.applyClipBounds()
	r.current = 0
	r.pCount = 0
	r.opened = true
	return nil
}

func (r *Reader) GetHeader() *data.Header {
	return r.header
}

// GetPoint returns the last point read
func (r *Reader) GetPoint() *data.Point {
	return r.point
}

// Total number of points announced by the sources
func (r *Reader) GetPointCount() uint64 {
	return r.folder.npoints
}

func (r *Reader) GetPCount() uint64 {
	return r.pCount
}

func (r *Reader) GetWarnings() Warnings {
	return r.folder.warnings
}

func (r *Reader) GetSourceCount() int {
	return len(r.sources)
}

// Index of the source being read, -1 between sources
func (r *Reader) GetCurrentSource() int {
	return r.activeAt
}

// Point fields the filter and the transform look at
func (r *Reader) DecompressSelective() uint32 {
	if r.filter == nil && r.transform == nil {
		return data.DecompressAll
	}
	selective := data.DecompressChannelReturnsXY
	if r.filter != nil {
		selective |= r.filter.DecompressSelective()
	}
	if r.transform != nil {
		selective |= r.transform.DecompressSelective()
	}
	return selective
}

func (r *Reader) InsideTile(llX, llY, size float32) {
	r.setClip(lasio.NewTileClip(llX, llY, size))
}

func (r *Reader) InsideCircle(centerX, centerY, radius float64) {
	r.setClip(lasio.NewCircleClip(centerX, centerY, radius))
}

func (r *Reader) InsideRectangle(minX, minY, maxX, maxY float64) {
	r.setClip(lasio.NewRectangleClip(minX, minY, maxX, maxY))
}

// InsideNone drops the clip and restores the merged box
func (r *Reader) InsideNone() {
	r.clip = lasio.Clip{}
	if r.header != nil {
		r.header.Bounds = r.origBounds
	}
}

func (r *Reader) SetClip(c lasio.Clip) {
	if c.Mode == lasio.ClipNone {
		r.InsideNone()
		return
	}
	r.setClip(c)
}

func (r *Reader) setClip(c lasio.Clip) {
	if r.header != nil && r.clip.Mode == lasio.ClipNone {
		r.origBounds = r.header.Bounds
	}
	r.clip = c
	r.applyClipBounds()
}

// The merged box becomes the clip region. Tiles end one raw step before their upper edge
// so that a point on the edge belongs to the neighbour.
func (r *Reader) applyClipBounds() {
	if r.header == nil || r.clip.Mode == lasio.ClipNone {
		return
	}
	b := &r.header.Bounds
	switch r.clip.Mode {
	case lasio.ClipTile:
		b.MinX = float64(r.clip.LLX)
		b.MinY = float64(r.clip.LLY)
		b.MaxX = float64(r.clip.LLX+r.clip.Size) - 0.001*r.header.Scale[0]
		b.MaxY = float64(r.clip.LLY+r.clip.Size) - 0.001*r.header.Scale[1]
	case lasio.ClipCircle:
		b.MinX = r.clip.CenterX - r.clip.Radius
		b.MinY = r.clip.CenterY - r.clip.Radius
		b.MaxX = r.clip.CenterX + r.clip.Radius
		b.MaxY = r.clip.CenterY + r.clip.Radius
	case lasio.ClipRectangle:
		b.MinX = r.clip.MinX
		b.MinY = r.clip.MinY
		b.MaxX = r.clip.MaxX
		b.MaxY = r.clip.MaxY
	}
}

// Whether a source cannot hold points of the clip region. Rectangles keep a source that
// touches their far edge, tiles and circles do not.
func (r *Reader) outsideClip(src *source) bool {
	if r.clip.Mode == lasio.ClipNone {
		return false
	}
	b := r.header.Bounds
	if r.clip.Mode == lasio.ClipRectangle {
		if src.bounds.MinX > b.MaxX || src.bounds.MinY > b.MaxY {
			return true
		}
	} else if src.bounds.MinX >= b.MaxX || src.bounds.MinY >= b.MaxY {
		return true
	}
	return src.bounds.MaxX < b.MinX || src.bounds.MaxY < b.MinY
}

// ReadPoint advances to the next point of the merged stream, io.EOF once every source is
// exhausted
func (r *Reader) ReadPoint() error {
	if !r.opened {
		return lasio.ErrNotOpen
	}
	for {
		if r.active == nil {
			if err := r.openNext(); err != nil {
				return err
			}
		}
		err := r.active.ReadPoint()
		if err == nil {
			r.point = r.active.GetPoint()
			r.pCount++
			if r.sources[r.activeAt].trailing {
				r.stats.add(r.point)
			}
			return nil
		}
		if err != io.EOF {
			return err
		}
		if err := r.finishSource(); err != nil {
			return err
		}
	}
}

func (r *Reader) openNext() error {
	for r.current < len(r.sources) {
		i := r.current
		src := r.sources[i]
		r.current++
		if r.outsideClip(src) {
			glog.V(2).Infof("skipping '%s', outside of the clip region", src.name)
			continue
		}
		reader, err := r.openSource(i, src)
		if err != nil {
			return err
		}
		r.active = reader
		r.activeAt = i
		r.stats = trailingStats{bounds: data.NewEmptyBoundingBox()}
		glog.V(1).Infof("reading source %d of %d '%s'", i+1, len(r.sources), src.name)
		return nil
	}
	return io.EOF
}

func (r *Reader) openSource(i int, src *source) (lasio.Reader, error) {
	inner, err := lasio.Open(src.name, r.format, r.options)
	if err != nil {
		return nil, err
	}
	npoints := inner.GetHeader().PointCount()
	if lr, ok := inner.(*lasio.LasReader); ok {
		npoints = lr.GetNPoints()
	}

	if r.folder.warnings.Rescale || r.folder.warnings.Reoffset {
		var scale, offset *[3]float64
		if r.folder.warnings.Rescale {
			scale = &r.header.Scale
		}
		if r.folder.warnings.Reoffset {
			offset = &r.header.Offset
		}
		inner = lasio.NewRescaleReader(inner, scale, offset)
	}

	if r.transform == nil && (r.flightlines || r.applyFileSourceID) {
		r.transform = transform.NewPipeline()
	}
	if r.flightlines {
		r.transform.SetPointSource(uint16(r.flightlinesStart + i))
	} else if r.applyFileSourceID {
		r.transform.SetPointSource(src.fileSourceID)
	}

	pr := lasio.NewPipelineReader(inner)
	pr.SetClip(r.clip)
	if r.filter != nil {
		pr.SetFilter(r.filter)
	}
	if r.transform != nil {
		pr.SetTransform(r.transform)
	}
	if r.useIndex && r.format == lasio.FormatLAS {
		r.attachIndex(pr, src, npoints)
	}
	return pr, nil
}

func (r *Reader) attachIndex(pr *lasio.PipelineReader, src *source, npoints uint64) {
	idx, err := index.LoadSidecar(src.name)
	if err != nil {
		glog.Warningf("ignoring index of '%s': %v", src.name, err)
		return
	}
	if idx == nil {
		return
	}
	if idx.GetNumberOfPoints() != npoints {
		glog.Warningf("ignoring index of '%s', it covers %d points instead of %d", src.name, idx.GetNumberOfPoints(), npoints)
		return
	}
	pr.SetIndex(idx)
}

func (r *Reader) finishSource() error {
	src := r.sources[r.activeAt]
	if src.trailing && !src.folded {
		into := &r.header.Bounds
		if r.clip.Mode != lasio.ClipNone {
			into = &r.origBounds
		}
		r.folder.foldTrailing(r.stats.count, r.stats.byReturn, r.stats.bounds, into)
		src.folded = true
	}
	err := r.active.Close()
	r.active = nil
	r.activeAt = -1
	if err != nil {
		return errors.Wrapf(err, "closing '%s'", src.name)
	}
	return nil
}

func (s *trailingStats) add(p *data.Point) {
	s.count++
	if n := p.GetReturnNumber(); n >= 1 && int(n) <= len(s.byReturn) {
		s.byReturn[n-1]++
	}
	s.bounds.Add(p.GetX(), p.GetY(), p.GetZ())
}

// Close releases the source being read
func (r *Reader) Close() error {
	if r.active == nil {
		return nil
	}
	err := r.active.Close()
	r.active = nil
	r.activeAt = -1
	return err
}

// Reopen rewinds to the first source. The clip stays, the filter and the transform start
// over so that the same points come out again.
func (r *Reader) Reopen() error {
	if !r.opened {
		return lasio.ErrNotOpen
	}
	if err := r.Close(); err != nil {
		return err
	}
	r.current = 0
	r.pCount = 0
	if r.filter != nil {
		r.filter.Reset()
	}
	if r.transform != nil {
		r.transform.Reset()
	}
	return nil
}

package index

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	lasio "github.com/ecopia-map/las_merger/internal/io"
)

// Extension of the sidecar file holding the index of a source
const SidecarExtension = ".lxb"

var (
	metaBucket  = []byte("meta")
	cellsBucket = []byte("cells")

	cellSizeKey = []byte("cell_size")
	pointsKey   = []byte("points")
)

// Name of the sidecar index file of a source
func SidecarName(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + SidecarExtension
}

// Writes the index into a bolt file, an existing file is replaced
func (idx *GridIndex) Save(name string) error {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing old index '%s'", name)
	}
	db, err := bolt.Open(name, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return errors.Wrapf(err, "opening index file '%s'", name)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return errors.Wrap(err, "creating meta bucket")
		}
		if err := meta.Put(cellSizeKey, uint64Bytes(math.Float64bits(idx.cellSize))); err != nil {
			return err
		}
		if err := meta.Put(pointsKey, uint64Bytes(idx.points)); err != nil {
			return err
		}
		cells, err := tx.CreateBucketIfNotExists(cellsBucket)
		if err != nil {
			return errors.Wrap(err, "creating cells bucket")
		}
		for key, cell := range idx.cells {
			if err := cells.Put(encodeCellKey(key), encodeIntervals(cell.intervals)); err != nil {
				return errors.Wrapf(err, "storing cell %d,%d", key.x, key.y)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return errors.Wrapf(err, "writing index file '%s'", name)
	}
	return db.Close()
}

// Loads an index written by Save
func Load(name string) (*GridIndex, error) {
	db, err := bolt.Open(name, 0600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening index file '%s'", name)
	}
	defer db.Close()

	var idx *GridIndex
	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		cells := tx.Bucket(cellsBucket)
		if meta == nil || cells == nil {
			return errors.New("not a grid index")
		}
		size := meta.Get(cellSizeKey)
		points := meta.Get(pointsKey)
		if len(size) != 8 || len(points) != 8 {
			return errors.New("corrupt index metadata")
		}
		idx = NewGridIndex(math.Float64frombits(binary.BigEndian.Uint64(size)))
		idx.points = binary.BigEndian.Uint64(points)
		return cells.ForEach(func(k, v []byte) error {
			if len(k) != 8 || len(v)%16 != 0 {
				return errors.Errorf("corrupt cell record of %d bytes", len(v))
			}
			key := decodeCellKey(k)
			idx.cells[key] = &gridCell{index: key, intervals: decodeIntervals(v)}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reading index file '%s'", name)
	}
	return idx, nil
}

// Loads the sidecar index of a source, returns nil without error when there is none
func LoadSidecar(source string) (*GridIndex, error) {
	name := SidecarName(source)
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil, nil
	}
	return Load(name)
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// keys sort by x then y, the sign bit is flipped so negative cells come first
func encodeCellKey(key gridIndex) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b, uint32(key.x)^0x80000000)
	binary.BigEndian.PutUint32(b[4:], uint32(key.y)^0x80000000)
	return b
}

func decodeCellKey(b []byte) gridIndex {
	return gridIndex{
		x: int32(binary.BigEndian.Uint32(b) ^ 0x80000000),
		y: int32(binary.BigEndian.Uint32(b[4:]) ^ 0x80000000),
	}
}

func encodeIntervals(intervals []lasio.Interval) []byte {
	b := make([]byte, 16*len(intervals))
	for i, iv := range intervals {
		binary.BigEndian.PutUint64(b[16*i:], iv.Start)
		binary.BigEndian.PutUint64(b[16*i+8:], iv.End)
	}
	return b
}

func decodeIntervals(b []byte) []lasio.Interval {
	intervals := make([]lasio.Interval, len(b)/16)
	for i := range intervals {
		intervals[i] = lasio.Interval{
			Start: binary.BigEndian.Uint64(b[16*i:]),
			End:   binary.BigEndian.Uint64(b[16*i+8:]),
		}
	}
	return intervals
}

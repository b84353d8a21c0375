package grid

import (
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/utils"
)

// Every serialized grid starts with a four byte tag naming its kind, followed
// by a little endian header and length prefixed arrays.
var (
	tagScalar2     = [4]byte{'S', 'G', '2', 0}
	tagScalar3     = [4]byte{'S', 'G', '3', 0}
	tagCollocated2 = [4]byte{'C', 'V', '2', 0}
	tagCollocated3 = [4]byte{'C', 'V', '3', 0}
	tagFace2       = [4]byte{'F', 'C', '2', 0}
	tagFace3       = [4]byte{'F', 'C', '3', 0}
	tagSystem2     = [4]byte{'G', 'S', '2', 0}
	tagSystem3     = [4]byte{'G', 'S', '3', 0}
)

var byteOrder = utils.ByteOrder

func binaryWrite(w io.Writer, v any) error { return utils.WriteValue(w, v) }

type header2 struct {
	Tag         [4]byte
	Resolution  [2]int64
	GridSpacing r2.Vec
	Origin      r2.Vec
	DataOrigin  uint8
}

type header3 struct {
	Tag         [4]byte
	Resolution  [3]int64
	GridSpacing r3.Vec
	Origin      r3.Vec
	DataOrigin  uint8
}

func (g *Grid2) header(tag [4]byte, d DataOrigin) header2 {
	return header2{
		Tag:         tag,
		Resolution:  [2]int64{int64(g.resolution.X), int64(g.resolution.Y)},
		GridSpacing: g.gridSpacing,
		Origin:      g.origin,
		DataOrigin:  uint8(d),
	}
}

func (g *Grid3) header(tag [4]byte, d DataOrigin) header3 {
	return header3{
		Tag:         tag,
		Resolution:  [3]int64{int64(g.resolution.X), int64(g.resolution.Y), int64(g.resolution.Z)},
		GridSpacing: g.gridSpacing,
		Origin:      g.origin,
		DataOrigin:  uint8(d),
	}
}

func readHeader2(r io.Reader, tag [4]byte) (h header2, err error) {
	if err = binary.Read(r, byteOrder, &h); err != nil {
		err = fmt.Errorf("reading header: %w: %w", ErrCorrupt, err)
		return
	}
	if h.Tag != tag {
		err = fmt.Errorf("tag %q, want %q: %w", h.Tag[:3], tag[:3], ErrGridType)
		return
	}
	if h.Resolution[0] < 0 || h.Resolution[1] < 0 {
		err = fmt.Errorf("negative resolution %v: %w", h.Resolution, ErrCorrupt)
	}
	return
}

func readHeader3(r io.Reader, tag [4]byte) (h header3, err error) {
	if err = binary.Read(r, byteOrder, &h); err != nil {
		err = fmt.Errorf("reading header: %w: %w", ErrCorrupt, err)
		return
	}
	if h.Tag != tag {
		err = fmt.Errorf("tag %q, want %q: %w", h.Tag[:3], tag[:3], ErrGridType)
		return
	}
	if h.Resolution[0] < 0 || h.Resolution[1] < 0 || h.Resolution[2] < 0 {
		err = fmt.Errorf("negative resolution %v: %w", h.Resolution, ErrCorrupt)
	}
	return
}

func (h header2) size() array.Size2 {
	return array.Size2{X: int(h.Resolution[0]), Y: int(h.Resolution[1])}
}

func (h header3) size() array.Size3 {
	return array.Size3{X: int(h.Resolution[0]), Y: int(h.Resolution[1]), Z: int(h.Resolution[2])}
}

func writeArray2[T any](w io.Writer, a *array.Array2[T]) error {
	return utils.WriteSlice(w, a.Data())
}

func readArray2[T any](r io.Reader, a *array.Array2[T], size array.Size2) (err error) {
	var (
		data []T
		zero T
	)
	if data, err = utils.ReadSlice[T](r); err != nil {
		return
	}
	if len(data) != size.Len() {
		return fmt.Errorf("array holds %d values, shape %v needs %d: %w",
			len(data), size, size.Len(), ErrCorrupt)
	}
	a.Resize(size.X, size.Y, zero)
	copy(a.Data(), data)
	return
}

func writeArray3[T any](w io.Writer, a *array.Array3[T]) error {
	return utils.WriteSlice(w, a.Data())
}

func readArray3[T any](r io.Reader, a *array.Array3[T], size array.Size3) (err error) {
	var (
		data []T
		zero T
	)
	if data, err = utils.ReadSlice[T](r); err != nil {
		return
	}
	if len(data) != size.Len() {
		return fmt.Errorf("array holds %d values, shape %v needs %d: %w",
			len(data), size, size.Len(), ErrCorrupt)
	}
	a.Resize(size.X, size.Y, size.Z, zero)
	copy(a.Data(), data)
	return
}

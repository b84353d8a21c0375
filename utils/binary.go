package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrCorrupt = errors.New("corrupt buffer")

// maxSliceLen bounds lengths read back from a buffer so a corrupt prefix
// cannot trigger a huge allocation.
const maxSliceLen = 1 << 31

var ByteOrder = binary.LittleEndian

func WriteValue(w io.Writer, v any) error { return binary.Write(w, ByteOrder, v) }

func ReadValue(r io.Reader, v any) (err error) {
	if err = binary.Read(r, ByteOrder, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return
}

// WriteSlice writes len(data) as an int64 followed by the raw elements. T must
// be a fixed size value such as float64, int64, r2.Vec or r3.Vec.
func WriteSlice[T any](w io.Writer, data []T) (err error) {
	if err = binary.Write(w, ByteOrder, int64(len(data))); err != nil {
		return
	}
	if len(data) == 0 {
		return
	}
	return binary.Write(w, ByteOrder, data)
}

func ReadSlice[T any](r io.Reader) (data []T, err error) {
	var n int64
	if err = binary.Read(r, ByteOrder, &n); err != nil {
		return nil, fmt.Errorf("reading length: %w: %w", ErrCorrupt, err)
	}
	if n < 0 || n > maxSliceLen {
		return nil, fmt.Errorf("slice length %d: %w", n, ErrCorrupt)
	}
	data = make([]T, n)
	if n == 0 {
		return
	}
	if err = binary.Read(r, ByteOrder, data); err != nil {
		return nil, fmt.Errorf("reading %d values: %w: %w", n, ErrCorrupt, err)
	}
	return
}

// WriteInts and ReadInts store int slices as int64 so the format does not
// depend on the platform word size.
func WriteInts(w io.Writer, data []int) error {
	wide := make([]int64, len(data))
	for i, v := range data {
		wide[i] = int64(v)
	}
	return WriteSlice(w, wide)
}

func ReadInts(r io.Reader) (data []int, err error) {
	var wide []int64
	if wide, err = ReadSlice[int64](r); err != nil {
		return
	}
	data = make([]int, len(wide))
	for i, v := range wide {
		data[i] = int(v)
	}
	return
}

// Package checkpoint stores grids and particle systems as zstd compressed
// frames and writes per frame diagnostics as CSV.
package checkpoint

import (
	"fmt"
	"io"

	"github.com/DataDog/zstd"

	"github.com/notargets/gofluid/utils"
)

const DefaultCompressionLevel = zstd.DefaultCompression

// maxFrameLen bounds the compressed length read back from a frame header.
const maxFrameLen = 1 << 34

// WriteCompressed writes payload as one zstd frame preceded by its compressed
// length as a little endian int64.
func WriteCompressed(w io.Writer, level int, payload []byte) (err error) {
	var buf []byte
	if buf, err = zstd.CompressLevel(nil, payload, level); err != nil {
		return fmt.Errorf("compressing %d bytes: %w", len(payload), err)
	}
	if err = utils.WriteValue(w, int64(len(buf))); err != nil {
		return
	}
	_, err = w.Write(buf)
	return
}

// ReadCompressed reads back one frame written by WriteCompressed.
func ReadCompressed(r io.Reader) (payload []byte, err error) {
	var n int64
	if err = utils.ReadValue(r, &n); err != nil {
		return
	}
	if n < 0 || n > maxFrameLen {
		return nil, fmt.Errorf("frame length %d: %w", n, utils.ErrCorrupt)
	}
	buf := make([]byte, n)
	if _, err = io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %d byte frame: %w: %w", n, utils.ErrCorrupt, err)
	}
	if payload, err = zstd.Decompress(nil, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrCorrupt, err)
	}
	return
}

package checkpoint

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Serializable is satisfied by every grid, grid system and particle system.
type Serializable interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// FileName returns the checkpoint name of one frame, e.g. particles_000012.zst.
func FileName(prefix string, frame int) string {
	return fmt.Sprintf("%s_%06d.zst", prefix, frame)
}

func save(path string, level int, obj Serializable) (err error) {
	var buf bytes.Buffer
	if err = obj.Serialize(&buf); err != nil {
		return
	}
	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return
		}
	}
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return
	}
	if err = WriteCompressed(f, level, buf.Bytes()); err != nil {
		f.Close()
		return
	}
	return f.Close()
}

func load(path string, obj Serializable) (err error) {
	var (
		f       *os.File
		payload []byte
	)
	if f, err = os.Open(path); err != nil {
		return
	}
	defer f.Close()
	if payload, err = ReadCompressed(f); err != nil {
		return
	}
	return obj.Deserialize(bytes.NewReader(payload))
}

// SaveGrid writes a scalar, vector or system grid to path.
func SaveGrid(path string, level int, g Serializable) (err error) {
	if err = save(path, level, g); err != nil {
		return fmt.Errorf("saving grid %s: %w", path, err)
	}
	return
}

// LoadGrid replaces the state of g with the grid stored at path. g must be
// of the same concrete type that was saved.
func LoadGrid(path string, g Serializable) (err error) {
	if err = load(path, g); err != nil {
		return fmt.Errorf("loading grid %s: %w", path, err)
	}
	return
}

func SaveParticles(path string, level int, p Serializable) (err error) {
	if err = save(path, level, p); err != nil {
		return fmt.Errorf("saving particles %s: %w", path, err)
	}
	return
}

func LoadParticles(path string, p Serializable) (err error) {
	if err = load(path, p); err != nil {
		return fmt.Errorf("loading particles %s: %w", path, err)
	}
	return
}

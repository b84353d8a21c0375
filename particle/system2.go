package particle

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/searcher"
	"github.com/notargets/gofluid/utils"
)

const (
	DefaultRadius = 1e-3
	DefaultMass   = 1e-3
)

// SystemData2 owns the particle state of a 2D simulation: positions,
// velocities and forces plus any number of extra scalar and vector layers,
// all of the same length.
//
// Positions and the other accessors return live slices. After moving
// particles the caller must call BuildNeighborSearcher (and
// BuildNeighborLists when lists are used) before the next neighbor query.
type SystemData2 struct {
	layers[r2.Vec]
	positionIdx, velocityIdx, forceIdx int
	searcherBuilder                    searcher.Builder2
	neighborSearcher                   searcher.PointNeighborSearcher2
}

func NewSystemData2(numberOfParticles int) (s *SystemData2) {
	s = &SystemData2{
		layers:          layers[r2.Vec]{radius: DefaultRadius, mass: DefaultMass},
		searcherBuilder: searcher.DefaultBuilder2,
	}
	s.positionIdx = s.AddVectorData(r2.Vec{})
	s.velocityIdx = s.AddVectorData(r2.Vec{})
	s.forceIdx = s.AddVectorData(r2.Vec{})
	s.neighborSearcher = s.searcherBuilder()
	s.Resize(numberOfParticles)
	return
}

func (s *SystemData2) Positions() []r2.Vec  { return s.VectorDataAt(s.positionIdx) }
func (s *SystemData2) Velocities() []r2.Vec { return s.VectorDataAt(s.velocityIdx) }
func (s *SystemData2) Forces() []r2.Vec     { return s.VectorDataAt(s.forceIdx) }

func (s *SystemData2) AddParticle(position, velocity, force r2.Vec) {
	_ = s.AddParticles([]r2.Vec{position}, []r2.Vec{velocity}, []r2.Vec{force})
}

// AddParticles appends particles. velocities and forces may be nil, in which
// case the new particles start at rest; otherwise they must match positions
// in length.
func (s *SystemData2) AddParticles(positions, velocities, forces []r2.Vec) (err error) {
	if len(velocities) > 0 && len(velocities) != len(positions) {
		return fmt.Errorf("%d velocities for %d positions: %w", len(velocities), len(positions), ErrLengthMismatch)
	}
	if len(forces) > 0 && len(forces) != len(positions) {
		return fmt.Errorf("%d forces for %d positions: %w", len(forces), len(positions), ErrLengthMismatch)
	}
	oldN := s.NumberOfParticles()
	s.Resize(oldN + len(positions))
	appendLayer(s.Positions(), oldN, positions)
	appendLayer(s.Velocities(), oldN, velocities)
	appendLayer(s.Forces(), oldN, forces)
	return
}

func (s *SystemData2) NeighborSearcher() searcher.PointNeighborSearcher2 { return s.neighborSearcher }

func (s *SystemData2) SetNeighborSearcher(ns searcher.PointNeighborSearcher2) { s.neighborSearcher = ns }

// SetNeighborSearcherBuilder selects the searcher variant created by
// BuildNeighborSearcher.
func (s *SystemData2) SetNeighborSearcherBuilder(b searcher.Builder2) { s.searcherBuilder = b }

func (s *SystemData2) BuildNeighborSearcher(maxSearchRadius float64) {
	start := time.Now()
	s.neighborSearcher = s.searcherBuilder()
	s.neighborSearcher.Build(s.Positions(), maxSearchRadius)
	slog.Debug("built neighbor searcher", "type", s.neighborSearcher.TypeName(),
		"particles", s.NumberOfParticles(), "elapsed", time.Since(start))
}

// BuildNeighborLists stores, for every particle, the indices of the other
// particles within maxSearchRadius, using the current searcher.
func (s *SystemData2) BuildNeighborLists(maxSearchRadius float64) {
	var (
		start  = time.Now()
		points = s.Positions()
		lists  = make([][]int, s.NumberOfParticles())
	)
	utils.ParallelFor(0, len(lists), func(i int) {
		s.neighborSearcher.ForEachNearbyPoint(points[i], maxSearchRadius, func(j int, _ r2.Vec) {
			if i != j {
				lists[i] = append(lists[i], j)
			}
		})
	})
	s.neighborLists = lists
	slog.Debug("built neighbor lists", "particles", len(lists), "elapsed", time.Since(start))
}

func (s *SystemData2) Clone() *SystemData2 {
	out := &SystemData2{
		layers:          s.layers.clone(),
		positionIdx:     s.positionIdx,
		velocityIdx:     s.velocityIdx,
		forceIdx:        s.forceIdx,
		searcherBuilder: s.searcherBuilder,
	}
	if s.neighborSearcher != nil {
		out.neighborSearcher = s.neighborSearcher.Clone()
	}
	return out
}

var tagSystem2 = [4]byte{'P', 'S', '2', 0}

type systemIndices struct {
	Position, Velocity, Force int64
	HasSearcher               bool
}

func (s *SystemData2) Serialize(w io.Writer) (err error) {
	if err = s.serialize(w, tagSystem2); err != nil {
		return fmt.Errorf("serializing particle system: %w", err)
	}
	return
}

func (s *SystemData2) serialize(w io.Writer, tag [4]byte) (err error) {
	if err = utils.WriteValue(w, tag); err != nil {
		return
	}
	if err = s.layers.serialize(w); err != nil {
		return
	}
	idx := systemIndices{
		Position:    int64(s.positionIdx),
		Velocity:    int64(s.velocityIdx),
		Force:       int64(s.forceIdx),
		HasSearcher: s.neighborSearcher != nil,
	}
	if err = utils.WriteValue(w, idx); err != nil {
		return
	}
	if s.neighborSearcher != nil {
		err = s.neighborSearcher.Serialize(w)
	}
	return
}

// Deserialize replaces the whole state of s with a buffer written by
// Serialize.
func (s *SystemData2) Deserialize(r io.Reader) (err error) {
	if err = s.deserialize(r, tagSystem2); err != nil {
		return fmt.Errorf("deserializing particle system: %w", err)
	}
	return
}

func (s *SystemData2) deserialize(r io.Reader, tag [4]byte) (err error) {
	if err = expectTag(r, tag); err != nil {
		return
	}
	var (
		l   layers[r2.Vec]
		idx systemIndices
		ns  searcher.PointNeighborSearcher2
	)
	if err = l.deserialize(r); err != nil {
		return
	}
	if err = utils.ReadValue(r, &idx); err != nil {
		return
	}
	nv := int64(len(l.vectorDataList))
	for _, k := range []int64{idx.Position, idx.Velocity, idx.Force} {
		if k < 0 || k >= nv {
			return fmt.Errorf("attribute index %d of %d layers: %w", k, nv, ErrCorrupt)
		}
	}
	if idx.HasSearcher {
		if ns, err = searcher.Load2(r); err != nil {
			return
		}
	}
	s.layers = l
	s.positionIdx, s.velocityIdx, s.forceIdx = int(idx.Position), int(idx.Velocity), int(idx.Force)
	s.neighborSearcher = ns
	if s.searcherBuilder == nil {
		s.searcherBuilder = searcher.DefaultBuilder2
	}
	return
}

func expectTag(r io.Reader, want [4]byte) (err error) {
	var tag [4]byte
	if err = utils.ReadValue(r, &tag); err != nil {
		return
	}
	if tag != want {
		return fmt.Errorf("tag %q, want %q: %w", tag[:], want[:], ErrSystemType)
	}
	return
}

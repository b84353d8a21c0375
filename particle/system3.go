package particle

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/searcher"
	"github.com/notargets/gofluid/utils"
)

type SystemData3 struct {
	layers[r3.Vec]
	positionIdx, velocityIdx, forceIdx int
	searcherBuilder                    searcher.Builder3
	neighborSearcher                   searcher.PointNeighborSearcher3
}

func NewSystemData3(numberOfParticles int) (s *SystemData3) {
	s = &SystemData3{
		layers:          layers[r3.Vec]{radius: DefaultRadius, mass: DefaultMass},
		searcherBuilder: searcher.DefaultBuilder3,
	}
	s.positionIdx = s.AddVectorData(r3.Vec{})
	s.velocityIdx = s.AddVectorData(r3.Vec{})
	s.forceIdx = s.AddVectorData(r3.Vec{})
	s.neighborSearcher = s.searcherBuilder()
	s.Resize(numberOfParticles)
	return
}

func (s *SystemData3) Positions() []r3.Vec  { return s.VectorDataAt(s.positionIdx) }
func (s *SystemData3) Velocities() []r3.Vec { return s.VectorDataAt(s.velocityIdx) }
func (s *SystemData3) Forces() []r3.Vec     { return s.VectorDataAt(s.forceIdx) }

func (s *SystemData3) AddParticle(position, velocity, force r3.Vec) {
	_ = s.AddParticles([]r3.Vec{position}, []r3.Vec{velocity}, []r3.Vec{force})
}

func (s *SystemData3) AddParticles(positions, velocities, forces []r3.Vec) (err error) {
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

func (s *SystemData3) NeighborSearcher() searcher.PointNeighborSearcher3 { return s.neighborSearcher }

func (s *SystemData3) SetNeighborSearcher(ns searcher.PointNeighborSearcher3) { s.neighborSearcher = ns }

func (s *SystemData3) SetNeighborSearcherBuilder(b searcher.Builder3) { s.searcherBuilder = b }

func (s *SystemData3) BuildNeighborSearcher(maxSearchRadius float64) {
	start := time.Now()
	s.neighborSearcher = s.searcherBuilder()
	s.neighborSearcher.Build(s.Positions(), maxSearchRadius)
	slog.Debug("built neighbor searcher", "type", s.neighborSearcher.TypeName(),
		"particles", s.NumberOfParticles(), "elapsed", time.Since(start))
}

func (s *SystemData3) BuildNeighborLists(maxSearchRadius float64) {
	var (
		start  = time.Now()
		points = s.Positions()
		lists  = make([][]int, s.NumberOfParticles())
	)
	utils.ParallelFor(0, len(lists), func(i int) {
		s.neighborSearcher.ForEachNearbyPoint(points[i], maxSearchRadius, func(j int, _ r3.Vec) {
			if i != j {
				lists[i] = append(lists[i], j)
			}
		})
	})
	s.neighborLists = lists
	slog.Debug("built neighbor lists", "particles", len(lists), "elapsed", time.Since(start))
}

func (s *SystemData3) Clone() *SystemData3 {
	out := &SystemData3{
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

var tagSystem3 = [4]byte{'P', 'S', '3', 0}

func (s *SystemData3) Serialize(w io.Writer) (err error) {
	if err = s.serialize(w, tagSystem3); err != nil {
		return fmt.Errorf("serializing particle system: %w", err)
	}
	return
}

func (s *SystemData3) serialize(w io.Writer, tag [4]byte) (err error) {
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

func (s *SystemData3) Deserialize(r io.Reader) (err error) {
	if err = s.deserialize(r, tagSystem3); err != nil {
		return fmt.Errorf("deserializing particle system: %w", err)
	}
	return
}

func (s *SystemData3) deserialize(r io.Reader, tag [4]byte) (err error) {
	if err = expectTag(r, tag); err != nil {
		return
	}
	var (
		l   layers[r3.Vec]
		idx systemIndices
		ns  searcher.PointNeighborSearcher3
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
		if ns, err = searcher.Load3(r); err != nil {
			return
		}
	}
	s.layers = l
	s.positionIdx, s.velocityIdx, s.forceIdx = int(idx.Position), int(idx.Velocity), int(idx.Force)
	s.neighborSearcher = ns
	if s.searcherBuilder == nil {
		s.searcherBuilder = searcher.DefaultBuilder3
	}
	return
}

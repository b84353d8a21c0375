package gridsolver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
	"github.com/notargets/gofluid/field"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/levelset"
)

type BoundaryConditionSolver3 interface {
	UpdateCollider(collider *geometry.Collider3, gridSize array.Size3, gridSpacing, gridOrigin r3.Vec)
	ConstrainVelocity(velocity *grid.FaceCenteredGrid3, extrapolationDepth int)
	ColliderSDF() field.ScalarField3
	ColliderVelocityField() field.VectorField3
	ClosedDomainBoundaryFlag() Direction
	SetClosedDomainBoundaryFlag(flag Direction)
}

type FractionalBoundaryConditionSolver3 struct {
	collider     *geometry.Collider3
	closedDomain Direction
	colliderSDF  *grid.ScalarGrid3
	colliderVel  field.VectorField3
}

func NewFractionalBoundaryConditionSolver3() *FractionalBoundaryConditionSolver3 {
	return &FractionalBoundaryConditionSolver3{closedDomain: DirectionAll}
}

func (s *FractionalBoundaryConditionSolver3) ClosedDomainBoundaryFlag() Direction { return s.closedDomain }

func (s *FractionalBoundaryConditionSolver3) SetClosedDomainBoundaryFlag(flag Direction) {
	s.closedDomain = flag
}

func (s *FractionalBoundaryConditionSolver3) Collider() *geometry.Collider3 { return s.collider }

func (s *FractionalBoundaryConditionSolver3) ColliderSDF() field.ScalarField3 {
	if s.colliderSDF == nil {
		return field.NewCustomScalarField3(field.NoBoundary3)
	}
	return s.colliderSDF
}

func (s *FractionalBoundaryConditionSolver3) ColliderVelocityField() field.VectorField3 {
	if s.colliderVel == nil {
		return field.ConstantVectorField3{}
	}
	return s.colliderVel
}

func (s *FractionalBoundaryConditionSolver3) colliderVelocityAt(x r3.Vec) r3.Vec {
	if s.collider == nil || s.collider.Surface == nil {
		return r3.Vec{}
	}
	return s.collider.VelocityAt(x)
}

func (s *FractionalBoundaryConditionSolver3) friction() float64 {
	if s.collider == nil {
		return 0
	}
	return s.collider.FrictionCoefficient
}

func (s *FractionalBoundaryConditionSolver3) UpdateCollider(collider *geometry.Collider3, gridSize array.Size3,
	gridSpacing, gridOrigin r3.Vec) {
	s.collider = collider
	if s.colliderSDF == nil {
		s.colliderSDF = grid.NewCellCenteredScalarGrid3(gridSize, gridSpacing, gridOrigin)
	} else {
		s.colliderSDF.Resize(gridSize, gridSpacing, gridOrigin, 0)
	}
	if collider == nil || collider.Surface == nil {
		s.colliderSDF.Fill(math.MaxFloat64)
		s.colliderVel = field.ConstantVectorField3{}
		return
	}
	s.colliderSDF.FillFunc(collider.Surface.SignedDistance)
	vel := field.NewCustomVectorField3(collider.VelocityAt)
	vel.Resolution = gridSpacing.X
	s.colliderVel = vel
}

func (s *FractionalBoundaryConditionSolver3) ensureCollider(velocity *grid.FaceCenteredGrid3) {
	if s.colliderSDF == nil || !s.colliderSDF.HasSameShape(&velocity.Grid3) {
		s.UpdateCollider(s.collider, velocity.Resolution(), velocity.GridSpacing(), velocity.Origin())
	}
}

func (s *FractionalBoundaryConditionSolver3) ConstrainVelocity(velocity *grid.FaceCenteredGrid3,
	extrapolationDepth int) {
	s.ensureCollider(velocity)
	var (
		h         = velocity.GridSpacing()
		positions = [3]func(i, j, k int) r3.Vec{velocity.UPosition(), velocity.VPosition(), velocity.WPosition()}
		halfStep  = [3]r3.Vec{{X: 0.5 * h.X}, {Y: 0.5 * h.Y}, {Z: 0.5 * h.Z}}
		temps     [3]*array.Array3[float64]
	)
	for axis := 0; axis < 3; axis++ {
		var (
			data, _, _ = velocity.Component(axis)
			pos        = positions[axis]
			size       = data.Size()
			valid      = array.NewArray3[bool](size.X, size.Y, size.Z)
		)
		data.ParallelForEachIndex(func(i, j, k int) {
			var (
				pt   = pos(i, j, k)
				phi0 = s.colliderSDF.Sample(r3.Sub(pt, halfStep[axis]))
				phi1 = s.colliderSDF.Sample(r3.Add(pt, halfStep[axis]))
				open = 1 - array.Clamp(levelset.FractionInsideSDF(phi0, phi1), 0, 1)
			)
			if open > 0 {
				valid.Set(i, j, k, true)
				return
			}
			data.Set(i, j, k, geometry.Component3(s.colliderVelocityAt(pt), axis))
		})
		array.ExtrapolateToRegion3(array.Float64Ops, data, valid, extrapolationDepth, data)
	}
	for axis := 0; axis < 3; axis++ {
		var (
			data, _, _ = velocity.Component(axis)
			pos        = positions[axis]
			size       = data.Size()
			temp       = array.NewArray3[float64](size.X, size.Y, size.Z)
		)
		temp.ParallelForEachIndex(func(i, j, k int) {
			pt := pos(i, j, k)
			if !levelset.IsInsideSDF(s.colliderSDF.Sample(pt)) {
				temp.Set(i, j, k, data.At(i, j, k))
				return
			}
			var (
				colliderVel = s.colliderVelocityAt(pt)
				g           = s.colliderSDF.Gradient(pt)
			)
			if r3.Norm2(g) > 0 {
				var (
					n    = r3.Unit(g)
					velr = r3.Sub(velocity.Sample(pt), colliderVel)
					velt = geometry.ProjectAndApplyFriction3(velr, n, s.friction())
				)
				temp.Set(i, j, k, geometry.Component3(r3.Add(velt, colliderVel), axis))
			} else {
				temp.Set(i, j, k, geometry.Component3(colliderVel, axis))
			}
		})
		temps[axis] = temp
	}
	for axis := 0; axis < 3; axis++ {
		data, _, _ := velocity.Component(axis)
		data.CopyFrom(temps[axis])
	}
	s.closeDomain(velocity)
}

func (s *FractionalBoundaryConditionSolver3) closeDomain(velocity *grid.FaceCenteredGrid3) {
	var (
		u, v, w = velocity.U(), velocity.V(), velocity.W()
		us      = u.Size()
		vs      = v.Size()
		ws      = w.Size()
	)
	for k := 0; k < us.Z; k++ {
		for j := 0; j < us.Y; j++ {
			if s.closedDomain&DirectionLeft != 0 {
				u.Set(0, j, k, 0)
			}
			if s.closedDomain&DirectionRight != 0 {
				u.Set(us.X-1, j, k, 0)
			}
		}
	}
	for k := 0; k < vs.Z; k++ {
		for i := 0; i < vs.X; i++ {
			if s.closedDomain&DirectionDown != 0 {
				v.Set(i, 0, k, 0)
			}
			if s.closedDomain&DirectionUp != 0 {
				v.Set(i, vs.Y-1, k, 0)
			}
		}
	}
	for j := 0; j < ws.Y; j++ {
		for i := 0; i < ws.X; i++ {
			if s.closedDomain&DirectionBack != 0 {
				w.Set(i, j, 0, 0)
			}
			if s.closedDomain&DirectionFront != 0 {
				w.Set(i, j, ws.Z-1, 0)
			}
		}
	}
}

type BlockedBoundaryConditionSolver3 struct {
	FractionalBoundaryConditionSolver3
	markers *array.Array3[Marker]
}

func NewBlockedBoundaryConditionSolver3() *BlockedBoundaryConditionSolver3 {
	return &BlockedBoundaryConditionSolver3{
		FractionalBoundaryConditionSolver3: FractionalBoundaryConditionSolver3{closedDomain: DirectionAll},
	}
}

func (s *BlockedBoundaryConditionSolver3) UpdateCollider(collider *geometry.Collider3, gridSize array.Size3,
	gridSpacing, gridOrigin r3.Vec) {
	s.FractionalBoundaryConditionSolver3.UpdateCollider(collider, gridSize, gridSpacing, gridOrigin)
	s.markers = array.NewArray3[Marker](gridSize.X, gridSize.Y, gridSize.Z)
	s.markers.ParallelForEachIndex(func(i, j, k int) {
		if levelset.IsInsideSDF(s.colliderSDF.At(i, j, k)) {
			s.markers.Set(i, j, k, Boundary)
		} else {
			s.markers.Set(i, j, k, Fluid)
		}
	})
}

func (s *BlockedBoundaryConditionSolver3) ConstrainVelocity(velocity *grid.FaceCenteredGrid3,
	extrapolationDepth int) {
	if s.colliderSDF == nil || !s.colliderSDF.HasSameShape(&velocity.Grid3) {
		s.UpdateCollider(s.collider, velocity.Resolution(), velocity.GridSpacing(), velocity.Origin())
	}
	s.FractionalBoundaryConditionSolver3.ConstrainVelocity(velocity, extrapolationDepth)
	var (
		size             = velocity.Resolution()
		u, v, w          = velocity.U(), velocity.V(), velocity.W()
		uPos, vPos, wPos = velocity.UPosition(), velocity.VPosition(), velocity.WPosition()
		fluid            = func(i, j, k int) bool { return s.markers.At(i, j, k) == Fluid }
	)
	s.markers.ForEachIndex(func(i, j, k int) {
		if s.markers.At(i, j, k) != Boundary {
			return
		}
		if i > 0 && fluid(i-1, j, k) {
			u.Set(i, j, k, s.colliderVelocityAt(uPos(i, j, k)).X)
		}
		if i+1 < size.X && fluid(i+1, j, k) {
			u.Set(i+1, j, k, s.colliderVelocityAt(uPos(i+1, j, k)).X)
		}
		if j > 0 && fluid(i, j-1, k) {
			v.Set(i, j, k, s.colliderVelocityAt(vPos(i, j, k)).Y)
		}
		if j+1 < size.Y && fluid(i, j+1, k) {
			v.Set(i, j+1, k, s.colliderVelocityAt(vPos(i, j+1, k)).Y)
		}
		if k > 0 && fluid(i, j, k-1) {
			w.Set(i, j, k, s.colliderVelocityAt(wPos(i, j, k)).Z)
		}
		if k+1 < size.Z && fluid(i, j, k+1) {
			w.Set(i, j, k+1, s.colliderVelocityAt(wPos(i, j, k+1)).Z)
		}
	})
}

var (
	_ BoundaryConditionSolver3 = &FractionalBoundaryConditionSolver3{}
	_ BoundaryConditionSolver3 = &BlockedBoundaryConditionSolver3{}
)

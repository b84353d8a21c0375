package levelset

import (
	"container/heap"
	"math"
	"slices"
)

const (
	unknown uint8 = iota
	known
	trial
)

// lattice is a flat 2D or 3D array of samples; a 2D lattice has size[2] == 1.
type lattice struct {
	size    [3]int
	spacing [3]float64
	dims    int
}

func (l lattice) len() int { return l.size[0] * l.size[1] * l.size[2] }

func (l lattice) stride(axis int) int {
	switch axis {
	case 0:
		return 1
	case 1:
		return l.size[0]
	}
	return l.size[0] * l.size[1]
}

func (l lattice) coordinate(idx, axis int) int {
	switch axis {
	case 0:
		return idx % l.size[0]
	case 1:
		return (idx / l.size[0]) % l.size[1]
	}
	return idx / (l.size[0] * l.size[1])
}

// neighbors returns the flat indices one step down and up along axis and
// whether each exists.
func (l lattice) neighbors(idx, axis int) (lo, hi int, hasLo, hasHi bool) {
	var (
		c = l.coordinate(idx, axis)
		s = l.stride(axis)
	)
	return idx - s, idx + s, c > 0, c+1 < l.size[axis]
}

func (l lattice) forEachNeighbor(idx int, fn func(n int)) {
	for axis := 0; axis < l.dims; axis++ {
		lo, hi, hasLo, hasHi := l.neighbors(idx, axis)
		if hasLo {
			fn(lo)
		}
		if hasHi {
			fn(hi)
		}
	}
}

func (l lattice) anyNeighbor(idx int, pred func(n int) bool) (found bool) {
	l.forEachNeighbor(idx, func(n int) {
		found = found || pred(n)
	})
	return
}

// normalizedGradient is the central difference gradient of phi, clamped at
// the edges, scaled to unit length. A zero gradient stays zero.
func (l lattice) normalizedGradient(phi []float64, idx int) (g [3]float64) {
	var norm float64
	for axis := 0; axis < l.dims; axis++ {
		lo, hi, hasLo, hasHi := l.neighbors(idx, axis)
		if !hasLo {
			lo = idx
		}
		if !hasHi {
			hi = idx
		}
		g[axis] = 0.5 * (phi[hi] - phi[lo]) / l.spacing[axis]
		norm += g[axis] * g[axis]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for axis := range g {
			g[axis] /= norm
		}
	}
	return
}

type trialItem struct {
	idx int
	key float64
}

// trialQueue is a min heap on key.
type trialQueue []trialItem

func (q trialQueue) Len() int           { return len(q) }
func (q trialQueue) Less(i, j int) bool { return q[i].key < q[j].key }
func (q trialQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *trialQueue) Push(x any)        { *q = append(*q, x.(trialItem)) }

func (q *trialQueue) Pop() (x any) {
	n := len(*q)
	x = (*q)[n-1]
	*q = (*q)[:n-1]
	return
}

func (q *trialQueue) push(idx int, key float64) { heap.Push(q, trialItem{idx: idx, key: key}) }
func (q *trialQueue) pop() int                  { return heap.Pop(q).(trialItem).idx }

// solveNearBoundary places the interface between idx and its neighbors of
// the opposite sign by linear interpolation and returns the distance to it,
// signed by sign. phi is read as sign*phi, so sign = -1 solves inside cells.
// A neighbor with phi == 0 lies on the interface and counts for both sides.
func (l lattice) solveNearBoundary(phi []float64, sign float64, idx int) float64 {
	var (
		center   = math.Abs(phi[idx])
		denomSqr float64
	)
	if center == 0 {
		return 0
	}
	onOtherSide := func(n int) bool { return sign*phi[n] <= 0 }
	for axis := 0; axis < l.dims; axis++ {
		var (
			has    bool
			phiMin = math.MaxFloat64
		)
		lo, hi, hasLo, hasHi := l.neighbors(idx, axis)
		if hasLo && onOtherSide(lo) {
			has, phiMin = true, math.Min(phiMin, sign*phi[lo])
		}
		if hasHi && onOtherSide(hi) {
			has, phiMin = true, math.Min(phiMin, sign*phi[hi])
		}
		if has {
			dist := l.spacing[axis] * center / (center + math.Abs(phiMin))
			denomSqr += 1 / (dist * dist)
		}
	}
	if denomSqr == 0 {
		return sign * center
	}
	return sign / math.Sqrt(denomSqr)
}

// solveQuad is the upwind Eikonal update of idx from its known neighbors.
func (l lattice) solveQuad(markers []uint8, phi []float64, idx int) (solution float64) {
	var (
		a, b  float64
		c     = -1.
		first = true
	)
	for axis := 0; axis < l.dims; axis++ {
		var (
			has    bool
			phiMin = math.MaxFloat64
		)
		lo, hi, hasLo, hasHi := l.neighbors(idx, axis)
		if hasLo && markers[lo] == known {
			has, phiMin = true, math.Min(phiMin, phi[lo])
		}
		if hasHi && markers[hi] == known {
			has, phiMin = true, math.Min(phiMin, phi[hi])
		}
		if !has {
			continue
		}
		guess := phiMin + l.spacing[axis]
		if first {
			solution, first = guess, false
		} else {
			solution = math.Max(solution, guess)
		}
		invHSqr := 1 / (l.spacing[axis] * l.spacing[axis])
		a += invHSqr
		b -= phiMin * invHSqr
		c += phiMin * phiMin * invHSqr
	}
	if det := b*b - a*c; det > 0 {
		solution = (-b + math.Sqrt(det)) / a
	}
	return
}

// reinitialize rebuilds output as a signed distance field with the same zero
// level set as input. Marching stops past maxDistance; samples beyond it keep
// their input value.
func (l lattice) reinitialize(input []float64, maxDistance float64, output []float64) {
	var (
		phi     = slices.Clone(input)
		markers = make([]uint8, l.len())
	)
	copy(output, input)
	for idx := range output {
		inside := IsInsideSDF(phi[idx])
		if l.anyNeighbor(idx, func(n int) bool { return IsInsideSDF(phi[n]) != inside }) {
			if inside {
				output[idx] = l.solveNearBoundary(phi, -1, idx)
			} else {
				output[idx] = l.solveNearBoundary(phi, 1, idx)
			}
		}
	}
	// march outward, then flip the sign and march through the inside.
	// Samples on the zero level set stay fixed in both passes.
	for pass := 0; pass < 2; pass++ {
		for idx, v := range output {
			if IsInsideSDF(v) || v == 0 {
				markers[idx] = known
			} else {
				markers[idx] = unknown
			}
		}
		q := &trialQueue{}
		for idx := range output {
			if markers[idx] != known && l.anyNeighbor(idx, func(n int) bool { return markers[n] == known }) {
				markers[idx] = trial
				q.push(idx, output[idx])
			}
		}
		for q.Len() > 0 {
			idx := q.pop()
			markers[idx] = known
			output[idx] = l.solveQuad(markers, output, idx)
			if output[idx] > maxDistance {
				break
			}
			l.forEachNeighbor(idx, func(n int) {
				if markers[n] == unknown {
					markers[n] = trial
					output[n] = l.solveQuad(markers, output, n)
					q.push(n, output[n])
				}
			})
		}
		for idx := range output {
			output[idx] = -output[idx]
		}
	}
}

// extrapolate copies input where sdf is inside and extends it outward in
// order of increasing sdf, each sample taking an upwind weighted average of
// its known neighbors.
func (l lattice) extrapolate(input, sdf []float64, maxDistance float64, output []float64) {
	markers := make([]uint8, l.len())
	for idx := range output {
		if IsInsideSDF(sdf[idx]) {
			markers[idx] = known
		}
		output[idx] = input[idx]
	}
	q := &trialQueue{}
	for idx := range output {
		if markers[idx] != known && l.anyNeighbor(idx, func(n int) bool { return markers[n] == known }) {
			markers[idx] = trial
			q.push(idx, sdf[idx])
		}
	}
	for q.Len() > 0 {
		idx := q.pop()
		if sdf[idx] > maxDistance {
			break
		}
		var (
			grad       = l.normalizedGradient(sdf, idx)
			sum, count float64
		)
		visit := func(n int, weight float64) {
			switch markers[n] {
			case known:
				if weight < 1e-15 {
					weight = 1
				}
				sum += weight * output[n]
				count += weight
			case unknown:
				markers[n] = trial
				q.push(n, sdf[n])
			}
		}
		for axis := 0; axis < l.dims; axis++ {
			lo, hi, hasLo, hasHi := l.neighbors(idx, axis)
			if hasLo {
				visit(lo, math.Max(grad[axis], 0)/l.spacing[axis])
			}
			if hasHi {
				visit(hi, -math.Min(grad[axis], 0)/l.spacing[axis])
			}
		}
		if count > 0 {
			output[idx] = sum / count
		}
		markers[idx] = known
	}
}

package array

import (
	"fmt"
)

type Size2 struct {
	X, Y int
}

type Size3 struct {
	X, Y, Z int
}

func (s Size2) Len() int { return s.X * s.Y }
func (s Size3) Len() int { return s.X * s.Y * s.Z }

// Array1 is a resizable one dimensional array. Particle attribute layers are
// stored in these so that a bulk resize keeps every layer the same length.
type Array1[T any] struct {
	data []T
}

func NewArray1[T any](n int, initVal ...T) (a *Array1[T]) {
	a = &Array1[T]{data: make([]T, n)}
	if len(initVal) != 0 {
		a.Fill(initVal[0])
	}
	return
}

func NewArray1From[T any](values []T) (a *Array1[T]) {
	a = &Array1[T]{data: make([]T, len(values))}
	copy(a.data, values)
	return
}

func (a *Array1[T]) Len() int  { return len(a.data) }
func (a *Array1[T]) Data() []T { return a.data }

func (a *Array1[T]) At(i int) T {
	a.checkBounds(i)
	return a.data[i]
}

func (a *Array1[T]) Set(i int, val T) {
	a.checkBounds(i)
	a.data[i] = val
}

func (a *Array1[T]) checkBounds(i int) {
	if i < 0 || i >= len(a.data) {
		panic(fmt.Errorf("array index %d out of range [0,%d)", i, len(a.data)))
	}
}

func (a *Array1[T]) Fill(val T) {
	for i := range a.data {
		a.data[i] = val
	}
}

// Resize keeps values at indices valid in both lengths and fills the rest.
func (a *Array1[T]) Resize(n int, fill T) {
	if n <= len(a.data) {
		a.data = a.data[:n]
		return
	}
	newData := make([]T, n)
	copy(newData, a.data)
	for i := len(a.data); i < n; i++ {
		newData[i] = fill
	}
	a.data = newData
}

func (a *Array1[T]) Append(vals ...T) {
	a.data = append(a.data, vals...)
}

func (a *Array1[T]) Clone() *Array1[T] {
	return NewArray1From(a.data)
}

func (a *Array1[T]) CopyFrom(other *Array1[T]) {
	if len(a.data) != len(other.data) {
		a.data = make([]T, len(other.data))
	}
	copy(a.data, other.data)
}

func (a *Array1[T]) Swap(other *Array1[T]) {
	a.data, other.data = other.data, a.data
}

// Array2 stores a two dimensional field with i varying fastest:
// index = i + size.X*j.
type Array2[T any] struct {
	size Size2
	data []T
}

func NewArray2[T any](nx, ny int, initVal ...T) (a *Array2[T]) {
	if nx < 0 || ny < 0 {
		panic(fmt.Errorf("negative array size (%d,%d)", nx, ny))
	}
	a = &Array2[T]{
		size: Size2{nx, ny},
		data: make([]T, nx*ny),
	}
	if len(initVal) != 0 {
		a.Fill(initVal[0])
	}
	return
}

func (a *Array2[T]) Size() Size2 { return a.size }
func (a *Array2[T]) Width() int  { return a.size.X }
func (a *Array2[T]) Height() int { return a.size.Y }
func (a *Array2[T]) Len() int    { return len(a.data) }
func (a *Array2[T]) Data() []T   { return a.data }

func (a *Array2[T]) Index(i, j int) int { return i + a.size.X*j }

func (a *Array2[T]) At(i, j int) T {
	a.checkBounds(i, j)
	return a.data[i+a.size.X*j]
}

func (a *Array2[T]) Set(i, j int, val T) {
	a.checkBounds(i, j)
	a.data[i+a.size.X*j] = val
}

func (a *Array2[T]) checkBounds(i, j int) {
	if i < 0 || i >= a.size.X || j < 0 || j >= a.size.Y {
		panic(fmt.Errorf("array index (%d,%d) out of range (%d,%d)",
			i, j, a.size.X, a.size.Y))
	}
}

func (a *Array2[T]) Fill(val T) {
	for i := range a.data {
		a.data[i] = val
	}
}

// Resize preserves the values of the overlapping sub-range and fills every
// newly exposed element with fill.
func (a *Array2[T]) Resize(nx, ny int, fill T) {
	if nx == a.size.X && ny == a.size.Y {
		return
	}
	var (
		grown = NewArray2[T](nx, ny, fill)
		iMax  = min(nx, a.size.X)
		jMax  = min(ny, a.size.Y)
	)
	for j := 0; j < jMax; j++ {
		copy(grown.data[j*nx:j*nx+iMax], a.data[j*a.size.X:j*a.size.X+iMax])
	}
	a.size, a.data = grown.size, grown.data
}

func (a *Array2[T]) Clone() *Array2[T] {
	b := &Array2[T]{size: a.size, data: make([]T, len(a.data))}
	copy(b.data, a.data)
	return b
}

func (a *Array2[T]) CopyFrom(other *Array2[T]) {
	if a.size != other.size {
		a.size = other.size
		a.data = make([]T, len(other.data))
	}
	copy(a.data, other.data)
}

func (a *Array2[T]) Swap(other *Array2[T]) {
	a.size, other.size = other.size, a.size
	a.data, other.data = other.data, a.data
}

func (a *Array2[T]) ForEachIndex(fn func(i, j int)) {
	ForEachIndex2(a.size, fn)
}

func (a *Array2[T]) ParallelForEachIndex(fn func(i, j int)) {
	ParallelForEachIndex2(a.size, fn)
}

// Array3 stores a three dimensional field with index = i + X*(j + Y*k).
type Array3[T any] struct {
	size Size3
	data []T
}

func NewArray3[T any](nx, ny, nz int, initVal ...T) (a *Array3[T]) {
	if nx < 0 || ny < 0 || nz < 0 {
		panic(fmt.Errorf("negative array size (%d,%d,%d)", nx, ny, nz))
	}
	a = &Array3[T]{
		size: Size3{nx, ny, nz},
		data: make([]T, nx*ny*nz),
	}
	if len(initVal) != 0 {
		a.Fill(initVal[0])
	}
	return
}

func (a *Array3[T]) Size() Size3 { return a.size }
func (a *Array3[T]) Width() int  { return a.size.X }
func (a *Array3[T]) Height() int { return a.size.Y }
func (a *Array3[T]) Depth() int  { return a.size.Z }
func (a *Array3[T]) Len() int    { return len(a.data) }
func (a *Array3[T]) Data() []T   { return a.data }

func (a *Array3[T]) Index(i, j, k int) int {
	return i + a.size.X*(j+a.size.Y*k)
}

func (a *Array3[T]) At(i, j, k int) T {
	a.checkBounds(i, j, k)
	return a.data[i+a.size.X*(j+a.size.Y*k)]
}

func (a *Array3[T]) Set(i, j, k int, val T) {
	a.checkBounds(i, j, k)
	a.data[i+a.size.X*(j+a.size.Y*k)] = val
}

func (a *Array3[T]) checkBounds(i, j, k int) {
	if i < 0 || i >= a.size.X || j < 0 || j >= a.size.Y || k < 0 || k >= a.size.Z {
		panic(fmt.Errorf("array index (%d,%d,%d) out of range (%d,%d,%d)",
			i, j, k, a.size.X, a.size.Y, a.size.Z))
	}
}

func (a *Array3[T]) Fill(val T) {
	for i := range a.data {
		a.data[i] = val
	}
}

func (a *Array3[T]) Resize(nx, ny, nz int, fill T) {
	if nx == a.size.X && ny == a.size.Y && nz == a.size.Z {
		return
	}
	var (
		grown = NewArray3[T](nx, ny, nz, fill)
		iMax  = min(nx, a.size.X)
		jMax  = min(ny, a.size.Y)
		kMax  = min(nz, a.size.Z)
	)
	for k := 0; k < kMax; k++ {
		for j := 0; j < jMax; j++ {
			dst := nx * (j + ny*k)
			src := a.size.X * (j + a.size.Y*k)
			copy(grown.data[dst:dst+iMax], a.data[src:src+iMax])
		}
	}
	a.size, a.data = grown.size, grown.data
}

func (a *Array3[T]) Clone() *Array3[T] {
	b := &Array3[T]{size: a.size, data: make([]T, len(a.data))}
	copy(b.data, a.data)
	return b
}

func (a *Array3[T]) CopyFrom(other *Array3[T]) {
	if a.size != other.size {
		a.size = other.size
		a.data = make([]T, len(other.data))
	}
	copy(a.data, other.data)
}

func (a *Array3[T]) Swap(other *Array3[T]) {
	a.size, other.size = other.size, a.size
	a.data, other.data = other.data, a.data
}

func (a *Array3[T]) ForEachIndex(fn func(i, j, k int)) {
	ForEachIndex3(a.size, fn)
}

func (a *Array3[T]) ParallelForEachIndex(fn func(i, j, k int)) {
	ParallelForEachIndex3(a.size, fn)
}

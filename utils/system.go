package utils

import (
	"math"
	"runtime"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// MemUsage returns the live heap and the memory obtained from the OS, in
// MiB.
func MemUsage() (allocMiB, sysMiB uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return bToMb(m.Alloc), bToMb(m.Sys)
}

// IsNan reports whether any component of A is NaN.
func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case []r2.Vec:
		for _, p := range v {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) {
				return true
			}
		}
	case []r3.Vec:
		for _, p := range v {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
				return true
			}
		}
	}
	return false
}

package checkpoint

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Diagnostics is one CSV row, written after each frame.
type Diagnostics struct {
	Frame          int     `csv:"frame"`
	Time           float64 `csv:"time"`
	Particles      int     `csv:"particles"`
	MaxSpeed       float64 `csv:"max_speed"`
	CFL            float64 `csv:"cfl"`
	SolverIters    int     `csv:"solver_iters"`
	SolverResidual float64 `csv:"solver_residual"`
	KineticEnergy  float64 `csv:"kinetic_energy"`
	ElapsedMs      float64 `csv:"elapsed_ms"`
}

// DiagnosticsWriter appends Diagnostics rows to a CSV file. A nil writer
// discards everything, so callers can leave CSV output switched off.
type DiagnosticsWriter struct {
	file          *os.File
	headerWritten bool
}

// NewDiagnosticsWriter creates path and its directory. It returns nil when
// path is empty.
func NewDiagnosticsWriter(path string) (*DiagnosticsWriter, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating diagnostics directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &DiagnosticsWriter{file: f}, nil
}

func (d *DiagnosticsWriter) Write(row Diagnostics) error {
	if d == nil {
		return nil
	}
	records := []Diagnostics{row}
	if !d.headerWritten {
		if err := gocsv.Marshal(records, d.file); err != nil {
			return fmt.Errorf("writing diagnostics: %w", err)
		}
		d.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, d.file); err != nil {
		return fmt.Errorf("writing diagnostics: %w", err)
	}
	return nil
}

func (d *DiagnosticsWriter) Close() error {
	if d == nil {
		return nil
	}
	return d.file.Close()
}

// ReadDiagnostics loads every row of a file written by DiagnosticsWriter.
func ReadDiagnostics(path string) (rows []Diagnostics, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return
	}
	defer f.Close()
	if err = gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("reading diagnostics %s: %w", path, err)
	}
	return
}

// ParticleStats2 returns the largest particle speed and the total kinetic
// energy for particles of equal mass.
func ParticleStats2(velocities []r2.Vec, mass float64) (maxSpeed, kineticEnergy float64) {
	for _, v := range velocities {
		s2 := r2.Dot(v, v)
		maxSpeed = math.Max(maxSpeed, math.Sqrt(s2))
		kineticEnergy += 0.5 * mass * s2
	}
	return
}

func ParticleStats3(velocities []r3.Vec, mass float64) (maxSpeed, kineticEnergy float64) {
	for _, v := range velocities {
		s2 := r3.Dot(v, v)
		maxSpeed = math.Max(maxSpeed, math.Sqrt(s2))
		kineticEnergy += 0.5 * mass * s2
	}
	return
}

package InputParameters

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/array"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalidParameter = errors.New("invalid input parameter")

// Shape describes a box (Lower, Upper) or a sphere (Center, Radius). Only
// the first Dimension entries of each vector are used.
type Shape struct {
	Shape  string    `json:"Shape"` // box, sphere or none
	Lower  []float64 `json:"Lower"`
	Upper  []float64 `json:"Upper"`
	Center []float64 `json:"Center"`
	Radius float64   `json:"Radius"`
}

type EmitterParameters struct {
	Shape
	Spacing float64 `json:"Spacing"` // zero means half the grid spacing
	Jitter  float64 `json:"Jitter"`
	Seed    int64   `json:"Seed"`
}

type OutputParameters struct {
	Directory          string `json:"Directory"`
	CheckpointInterval int    `json:"CheckpointInterval"` // frames, zero disables checkpoints
	CSV                bool   `json:"CSV"`
	CompressionLevel   int    `json:"CompressionLevel"`
}

type ParallelParameters struct {
	Degree int    `json:"Degree"` // zero keeps the number of CPUs
	Policy string `json:"Policy"` // serial or parallel
}

// Parameters obtained from the YAML input file. ghodss/yaml goes through
// encoding/json, so the field tags are json tags.
type InputParameters struct {
	Title             string             `json:"Title"`
	Dimension         int                `json:"Dimension"`
	Resolution        []int              `json:"Resolution"`
	DomainSize        float64            `json:"DomainSize"` // extent along x, cells are square
	Origin            []float64          `json:"Origin"`
	Solver            string             `json:"Solver"` // pic, flip or apic
	PICBlendingFactor float64            `json:"PICBlendingFactor"`
	MaxCFL            float64            `json:"MaxCFL"`
	FinalTime         float64            `json:"FinalTime"`
	FPS               float64            `json:"FPS"`
	Viscosity         float64            `json:"Viscosity"`
	Gravity           []float64          `json:"Gravity"`
	PressureSolver    string             `json:"PressureSolver"` // single or fractional
	LinearSolver      string             `json:"LinearSolver"`   // iccg, mg, cg, gauss-seidel or jacobi
	Tolerance         float64            `json:"Tolerance"`
	MaxIterations     int                `json:"MaxIterations"`
	UseCompressed     bool               `json:"UseCompressed"`
	ClosedDomain      bool               `json:"ClosedDomain"`
	Emitter           EmitterParameters  `json:"Emitter"`
	Collider          Shape              `json:"Collider"`
	Output            OutputParameters   `json:"Output"`
	Parallel          ParallelParameters `json:"Parallel"`
}

// NewInputParameters returns the embedded defaults.
func NewInputParameters() (ip *InputParameters) {
	ip = &InputParameters{}
	if err := yaml.Unmarshal(defaultsYAML, ip); err != nil {
		panic(fmt.Errorf("parsing embedded defaults: %w", err))
	}
	return
}

// Load reads path over the embedded defaults and validates the result. An
// empty path gives the defaults.
func Load(path string) (ip *InputParameters, err error) {
	ip = NewInputParameters()
	if path != "" {
		var data []byte
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("parsing input file %s: %w", path, err)
		}
	}
	if err = ip.Validate(); err != nil {
		return nil, err
	}
	return
}

// Parse overwrites the fields present in data and leaves the rest alone.
func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidParameter)
}

func oneOf(value string, choices ...string) bool {
	for _, c := range choices {
		if value == c {
			return true
		}
	}
	return false
}

func (ip *InputParameters) Validate() error {
	d := ip.Dimension
	switch {
	case d != 2 && d != 3:
		return invalid("Dimension %d", d)
	case len(ip.Resolution) < d:
		return invalid("Resolution needs %d entries, has %d", d, len(ip.Resolution))
	case len(ip.Origin) < d:
		return invalid("Origin needs %d entries, has %d", d, len(ip.Origin))
	case len(ip.Gravity) < d:
		return invalid("Gravity needs %d entries, has %d", d, len(ip.Gravity))
	case !(ip.DomainSize > 0):
		return invalid("DomainSize %g", ip.DomainSize)
	case !oneOf(ip.Solver, "pic", "flip", "apic"):
		return invalid("Solver %q", ip.Solver)
	case ip.PICBlendingFactor < 0 || ip.PICBlendingFactor > 1:
		return invalid("PICBlendingFactor %g outside [0, 1]", ip.PICBlendingFactor)
	case !(ip.MaxCFL > 0):
		return invalid("MaxCFL %g", ip.MaxCFL)
	case ip.FinalTime < 0:
		return invalid("FinalTime %g", ip.FinalTime)
	case !(ip.FPS > 0):
		return invalid("FPS %g", ip.FPS)
	case ip.Viscosity < 0:
		return invalid("Viscosity %g", ip.Viscosity)
	case !oneOf(ip.PressureSolver, "single", "fractional"):
		return invalid("PressureSolver %q", ip.PressureSolver)
	case !oneOf(ip.LinearSolver, "iccg", "mg", "cg", "gauss-seidel", "jacobi"):
		return invalid("LinearSolver %q", ip.LinearSolver)
	case !(ip.Tolerance > 0):
		return invalid("Tolerance %g", ip.Tolerance)
	case ip.MaxIterations < 1:
		return invalid("MaxIterations %d", ip.MaxIterations)
	case ip.UseCompressed && ip.LinearSolver == "mg":
		return invalid("LinearSolver mg has no compressed form")
	case ip.Emitter.Spacing < 0:
		return invalid("Emitter.Spacing %g", ip.Emitter.Spacing)
	case ip.Emitter.Jitter < 0 || ip.Emitter.Jitter > 1:
		return invalid("Emitter.Jitter %g outside [0, 1]", ip.Emitter.Jitter)
	case ip.Output.CheckpointInterval < 0:
		return invalid("Output.CheckpointInterval %d", ip.Output.CheckpointInterval)
	case ip.Output.CompressionLevel < 1 || ip.Output.CompressionLevel > 22:
		return invalid("Output.CompressionLevel %d outside [1, 22]", ip.Output.CompressionLevel)
	case !oneOf(ip.Parallel.Policy, "serial", "parallel"):
		return invalid("Parallel.Policy %q", ip.Parallel.Policy)
	}
	for i := 0; i < d; i++ {
		if ip.Resolution[i] < 1 {
			return invalid("Resolution %v", ip.Resolution)
		}
	}
	if err := ip.Emitter.Shape.validate("Emitter", d); err != nil {
		return err
	}
	return ip.Collider.validate("Collider", d)
}

func (s Shape) validate(name string, d int) error {
	switch s.Shape {
	case "none", "":
		return nil
	case "box":
		if len(s.Lower) < d || len(s.Upper) < d {
			return invalid("%s box needs %d entries in Lower and Upper", name, d)
		}
	case "sphere":
		if len(s.Center) < d || !(s.Radius > 0) {
			return invalid("%s sphere needs %d entries in Center and a positive Radius", name, d)
		}
	default:
		return invalid("%s.Shape %q", name, s.Shape)
	}
	return nil
}

// NumberOfFrames is FinalTime*FPS rounded up.
func (ip *InputParameters) NumberOfFrames() int {
	return int(math.Ceil(ip.FinalTime*ip.FPS - 1e-9))
}

func (ip *InputParameters) GridSpacing() float64 {
	return ip.DomainSize / float64(ip.Resolution[0])
}

// EmitterSpacing resolves a zero Emitter.Spacing to half the grid spacing.
func (ip *InputParameters) EmitterSpacing() float64 {
	if ip.Emitter.Spacing > 0 {
		return ip.Emitter.Spacing
	}
	return 0.5 * ip.GridSpacing()
}

func (ip *InputParameters) Size2() array.Size2 {
	return array.Size2{X: ip.Resolution[0], Y: ip.Resolution[1]}
}

func (ip *InputParameters) Size3() array.Size3 {
	return array.Size3{X: ip.Resolution[0], Y: ip.Resolution[1], Z: ip.Resolution[2]}
}

func Vec2(v []float64) r2.Vec { return r2.Vec{X: v[0], Y: v[1]} }

func Vec3(v []float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d]\t\t\t\t= Dimension\n", ip.Dimension)
	fmt.Printf("%v\t\t= Resolution\n", ip.Resolution[:ip.Dimension])
	fmt.Printf("%8.5f\t\t= Grid Spacing\n", ip.GridSpacing())
	fmt.Printf("[%s]\t\t\t= Solver\n", ip.Solver)
	if ip.Solver == "flip" {
		fmt.Printf("%8.5f\t\t= PIC Blending Factor\n", ip.PICBlendingFactor)
	}
	fmt.Printf("%8.5f\t\t= Max CFL\n", ip.MaxCFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("%8.5f\t\t= FPS\n", ip.FPS)
	fmt.Printf("%8.5f\t\t= Viscosity\n", ip.Viscosity)
	fmt.Printf("%v\t\t= Gravity\n", ip.Gravity[:ip.Dimension])
	fmt.Printf("[%s/%s]\t\t= Pressure/Linear Solver\n", ip.PressureSolver, ip.LinearSolver)
	fmt.Printf("[%s]\t\t\t= Emitter\n", ip.Emitter.Shape.Shape)
	fmt.Printf("[%s]\t\t\t= Collider\n", ip.Collider.Shape)
	fmt.Printf("\"%s\"\t\t= Output Directory\n", ip.Output.Directory)
}

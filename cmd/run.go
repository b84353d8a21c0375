package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gofluid/InputParameters"
	"github.com/notargets/gofluid/checkpoint"
	"github.com/notargets/gofluid/fdm"
	"github.com/notargets/gofluid/gridsolver"
	"github.com/notargets/gofluid/utils"
)

const (
	residualCheckInterval = 10
	diagnosticsFile       = "diagnostics.csv"
)

var ErrDiverged = errors.New("simulation diverged")

type RunOptions struct {
	InputFile string
	OutputDir string // replaces Output.Directory when set
	Profile   bool
}

func runOptionsFromFlags(cmd *cobra.Command) (opts RunOptions) {
	opts.InputFile, _ = cmd.Flags().GetString("inputConditionsFile")
	opts.OutputDir, _ = cmd.Flags().GetString("outputDir")
	opts.Profile = viper.GetBool("profile")
	return
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters, defaults are used for anything left out")
	c.Flags().StringP("outputDir", "o", "", "directory for checkpoints and diagnostics, overrides Output.Directory")
}

// processInput loads the parameters for a run of the given dimension and
// applies the parallel settings.
func processInput(opts RunOptions, dimension int) (ip *InputParameters.InputParameters, err error) {
	if ip, err = InputParameters.Load(opts.InputFile); err != nil {
		return
	}
	if ip.Dimension != dimension {
		ip.Dimension = dimension
		if err = ip.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.OutputDir != "" {
		ip.Output.Directory = opts.OutputDir
	}
	switch {
	case ip.Parallel.Policy == "serial":
		utils.SetMaxNumberOfThreads(1)
	case ip.Parallel.Degree > 0:
		utils.SetMaxNumberOfThreads(ip.Parallel.Degree)
	}
	return
}

func newLinearSolver2(ip *InputParameters.InputParameters) fdm.Solver2 {
	switch ip.LinearSolver {
	case "mg":
		return fdm.NewMG2(mgParameters(ip))
	case "cg":
		return fdm.NewCG2(ip.MaxIterations, ip.Tolerance)
	case "gauss-seidel":
		return fdm.NewGaussSeidel2(ip.MaxIterations, residualCheckInterval, ip.Tolerance, 1, false)
	case "jacobi":
		return fdm.NewJacobi2(ip.MaxIterations, residualCheckInterval, ip.Tolerance)
	default:
		return fdm.NewICCG2(ip.MaxIterations, ip.Tolerance)
	}
}

func newLinearSolver3(ip *InputParameters.InputParameters) fdm.Solver3 {
	switch ip.LinearSolver {
	case "mg":
		return fdm.NewMG3(mgParameters(ip))
	case "cg":
		return fdm.NewCG3(ip.MaxIterations, ip.Tolerance)
	case "gauss-seidel":
		return fdm.NewGaussSeidel3(ip.MaxIterations, residualCheckInterval, ip.Tolerance, 1, false)
	case "jacobi":
		return fdm.NewJacobi3(ip.MaxIterations, residualCheckInterval, ip.Tolerance)
	default:
		return fdm.NewICCG3(ip.MaxIterations, ip.Tolerance)
	}
}

// mgParameters coarsens until the smallest side is about four cells.
func mgParameters(ip *InputParameters.InputParameters) fdm.MGParameters {
	smallest := ip.Resolution[0]
	for _, n := range ip.Resolution[1:ip.Dimension] {
		smallest = min(smallest, n)
	}
	levels := 1
	for n := smallest; n > 4; n /= 2 {
		levels++
	}
	params := fdm.DefaultMGParameters(levels)
	params.MaxTolerance = ip.Tolerance
	params.MaxNumberOfCycles = ip.MaxIterations
	return params
}

func newPressureSolver2(ip *InputParameters.InputParameters) (p gridsolver.PressureSolver2) {
	if ip.PressureSolver == "single" {
		s := gridsolver.NewSinglePhasePressure2()
		s.SetLinearSystemSolver(newLinearSolver2(ip))
		return s
	}
	s := gridsolver.NewFractionalSinglePhasePressure2()
	s.SetLinearSystemSolver(newLinearSolver2(ip))
	return s
}

func newPressureSolver3(ip *InputParameters.InputParameters) (p gridsolver.PressureSolver3) {
	if ip.PressureSolver == "single" {
		s := gridsolver.NewSinglePhasePressure3()
		s.SetLinearSystemSolver(newLinearSolver3(ip))
		return s
	}
	s := gridsolver.NewFractionalSinglePhasePressure3()
	s.SetLinearSystemSolver(newLinearSolver3(ip))
	return s
}

func closedDomain(ip *InputParameters.InputParameters) gridsolver.Direction {
	if ip.ClosedDomain {
		return gridsolver.DirectionAll
	}
	return gridsolver.DirectionNone
}

// solverStats reads the iteration count and residual of the last pressure
// solve, when the pressure solver exposes its linear solver.
func solverStats(pressure any) (iterations int, residual float64) {
	var stats fdm.Stats
	switch p := pressure.(type) {
	case interface{ LinearSystemSolver() fdm.Solver2 }:
		if s := p.LinearSystemSolver(); s != nil {
			stats = s
		}
	case interface{ LinearSystemSolver() fdm.Solver3 }:
		if s := p.LinearSystemSolver(); s != nil {
			stats = s
		}
	}
	if stats == nil {
		return
	}
	return stats.LastNumberOfIterations(), stats.LastResidual()
}

// simulation is what runFrames needs from a 2D or 3D run.
type simulation interface {
	Advance(frame gridsolver.Frame) error
	// Diagnostics fills the physical fields of the row for the frame just
	// computed.
	Diagnostics(frame gridsolver.Frame) checkpoint.Diagnostics
	SaveCheckpoint(dir string, frame, level int) error
	// Diverged reports NaN particle state.
	Diverged() bool
}

// runFrames advances sim through every frame of ip, writing diagnostics
// and checkpoints as configured.
func runFrames(ip *InputParameters.InputParameters, sim simulation, withProfile bool) (err error) {
	var (
		out       = ip.Output
		numFrames = ip.NumberOfFrames()
		diag      *checkpoint.DiagnosticsWriter
	)
	if withProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(out.Directory), profile.Quiet).Stop()
	}
	if out.CSV {
		if diag, err = checkpoint.NewDiagnosticsWriter(filepath.Join(out.Directory, diagnosticsFile)); err != nil {
			return
		}
		defer diag.Close()
	}
	slog.Info("starting run", "title", ip.Title, "solver", ip.Solver, "frames", numFrames)
	frame := gridsolver.NewFrame(0, 1/ip.FPS)
	for ; frame.Index < numFrames; frame.Advance() {
		start := time.Now()
		if err = sim.Advance(frame); err != nil {
			return fmt.Errorf("frame %d: %w", frame.Index, err)
		}
		if sim.Diverged() {
			return fmt.Errorf("frame %d: %w", frame.Index, ErrDiverged)
		}
		row := sim.Diagnostics(frame)
		row.Frame = frame.Index
		row.Time = frame.TimeInSeconds() + frame.TimeIntervalInSeconds
		row.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000
		allocMiB, _ := utils.MemUsage()
		slog.Info("frame",
			"index", row.Frame, "time", row.Time, "particles", row.Particles,
			"maxSpeed", row.MaxSpeed, "cfl", row.CFL, "elapsedMs", row.ElapsedMs, "allocMiB", allocMiB)
		if err = diag.Write(row); err != nil {
			return
		}
		last := frame.Index == numFrames-1
		if out.CheckpointInterval > 0 && (frame.Index%out.CheckpointInterval == 0 || last) {
			if err = sim.SaveCheckpoint(out.Directory, frame.Index, out.CompressionLevel); err != nil {
				return
			}
		}
	}
	return
}

/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/notargets/gofluid/InputParameters"
	"github.com/notargets/gofluid/checkpoint"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/gridsolver"
	"github.com/notargets/gofluid/hybrid"
	"github.com/notargets/gofluid/particle"
	"github.com/notargets/gofluid/utils"
)

// TwoDCmd represents the 2D command
var TwoDCmd = &cobra.Command{
	Use:   "2D",
	Short: "Two dimensional hybrid liquid solver",
	Long: `
Runs a two dimensional PIC, FLIP or APIC simulation described by an input
file. Anything the file leaves out keeps its default value,

gofluid 2D -I damBreak.yaml -o out`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("2D called")
		opts := runOptionsFromFlags(cmd)
		ip, err := processInput(opts, 2)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		ip.Print()
		if err = Run2D(ip, opts.Profile); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(TwoDCmd)
	addRunFlags(TwoDCmd)
}

func Run2D(ip *InputParameters.InputParameters, withProfile bool) error {
	return runFrames(ip, NewSimulation2(ip), withProfile)
}

// Simulation2 is a configured 2D hybrid solver. The embedded PIC2 of a FLIP
// or APIC solver still dispatches to their transfers, so it drives all three.
type Simulation2 struct {
	*hybrid.PIC2
	Emitter *particle.VolumeEmitter2
}

func newHybrid2(ip *InputParameters.InputParameters) *hybrid.PIC2 {
	var (
		h       = ip.GridSpacing()
		res     = ip.Size2()
		spacing = r2.Vec{X: h, Y: h}
		origin  = InputParameters.Vec2(ip.Origin)
	)
	switch ip.Solver {
	case "flip":
		s := hybrid.NewFLIP2(res, spacing, origin)
		s.SetPICBlendingFactor(ip.PICBlendingFactor)
		return s.PIC2
	case "apic":
		return hybrid.NewAPIC2(res, spacing, origin).PIC2
	default:
		return hybrid.NewPIC2(res, spacing, origin)
	}
}

func surface2(s InputParameters.Shape) geometry.Surface2 {
	switch s.Shape {
	case "box":
		return geometry.Box2{Bound: geometry.NewBoundingBox2(InputParameters.Vec2(s.Lower), InputParameters.Vec2(s.Upper))}
	case "sphere":
		return geometry.Sphere2{Center: InputParameters.Vec2(s.Center), Radius: s.Radius}
	}
	return nil
}

func NewSimulation2(ip *InputParameters.InputParameters) (sim *Simulation2) {
	sim = &Simulation2{PIC2: newHybrid2(ip)}
	sim.SetGravity(InputParameters.Vec2(ip.Gravity))
	sim.SetViscosityCoefficient(ip.Viscosity)
	sim.SetMaxCFL(ip.MaxCFL)
	sim.SetUseCompressedLinearSystem(ip.UseCompressed)
	sim.SetClosedDomainBoundaryFlag(closedDomain(ip))
	sim.SetPressureSolver(newPressureSolver2(ip))
	if s := surface2(ip.Collider); s != nil {
		sim.SetCollider(geometry.NewCollider2(s))
	}
	if s := surface2(ip.Emitter.Shape); s != nil {
		domain := sim.GridSystemData().BoundingBox()
		sim.Emitter = particle.NewVolumeEmitter2(s, domain, ip.EmitterSpacing(), ip.Emitter.Seed)
		sim.Emitter.Jitter = ip.Emitter.Jitter
		sim.SetParticleEmitter(sim.Emitter)
	}
	return
}

func (sim *Simulation2) Diagnostics(frame gridsolver.Frame) (row checkpoint.Diagnostics) {
	ps := sim.ParticleSystemData()
	row.Particles = ps.NumberOfParticles()
	row.MaxSpeed, row.KineticEnergy = checkpoint.ParticleStats2(ps.Velocities(), ps.Mass())
	row.CFL = sim.CFL(frame.TimeIntervalInSeconds)
	row.SolverIters, row.SolverResidual = solverStats(sim.PressureSolver())
	return
}

func (sim *Simulation2) Diverged() bool {
	ps := sim.ParticleSystemData()
	return utils.IsNan(ps.Positions()) || utils.IsNan(ps.Velocities())
}

func (sim *Simulation2) SaveCheckpoint(dir string, frame, level int) (err error) {
	if err = checkpoint.SaveParticles(filepath.Join(dir, checkpoint.FileName("particles", frame)), level,
		sim.ParticleSystemData()); err != nil {
		return
	}
	return checkpoint.SaveGrid(filepath.Join(dir, checkpoint.FileName("grid", frame)), level, sim.GridSystemData())
}

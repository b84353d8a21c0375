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
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/InputParameters"
	"github.com/notargets/gofluid/checkpoint"
	"github.com/notargets/gofluid/geometry"
	"github.com/notargets/gofluid/gridsolver"
	"github.com/notargets/gofluid/hybrid"
	"github.com/notargets/gofluid/particle"
	"github.com/notargets/gofluid/utils"
)

// ThreeDCmd represents the 3D command
var ThreeDCmd = &cobra.Command{
	Use:   "3D",
	Short: "Three dimensional hybrid liquid solver",
	Long: `
Runs a three dimensional PIC, FLIP or APIC simulation described by an input
file. Anything the file leaves out keeps its default value,

gofluid 3D -I sphereDrop.yaml -o out`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("3D called")
		opts := runOptionsFromFlags(cmd)
		ip, err := processInput(opts, 3)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		ip.Print()
		if err = Run3D(ip, opts.Profile); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ThreeDCmd)
	addRunFlags(ThreeDCmd)
}

func Run3D(ip *InputParameters.InputParameters, withProfile bool) error {
	return runFrames(ip, NewSimulation3(ip), withProfile)
}

type Simulation3 struct {
	*hybrid.PIC3
	Emitter *particle.VolumeEmitter3
}

func newHybrid3(ip *InputParameters.InputParameters) *hybrid.PIC3 {
	var (
		h       = ip.GridSpacing()
		res     = ip.Size3()
		spacing = r3.Vec{X: h, Y: h, Z: h}
		origin  = InputParameters.Vec3(ip.Origin)
	)
	switch ip.Solver {
	case "flip":
		s := hybrid.NewFLIP3(res, spacing, origin)
		s.SetPICBlendingFactor(ip.PICBlendingFactor)
		return s.PIC3
	case "apic":
		return hybrid.NewAPIC3(res, spacing, origin).PIC3
	default:
		return hybrid.NewPIC3(res, spacing, origin)
	}
}

func surface3(s InputParameters.Shape) geometry.Surface3 {
	switch s.Shape {
	case "box":
		return geometry.Box3{Bound: geometry.NewBoundingBox3(InputParameters.Vec3(s.Lower), InputParameters.Vec3(s.Upper))}
	case "sphere":
		return geometry.Sphere3{Center: InputParameters.Vec3(s.Center), Radius: s.Radius}
	}
	return nil
}

func NewSimulation3(ip *InputParameters.InputParameters) (sim *Simulation3) {
	sim = &Simulation3{PIC3: newHybrid3(ip)}
	sim.SetGravity(InputParameters.Vec3(ip.Gravity))
	sim.SetViscosityCoefficient(ip.Viscosity)
	sim.SetMaxCFL(ip.MaxCFL)
	sim.SetUseCompressedLinearSystem(ip.UseCompressed)
	sim.SetClosedDomainBoundaryFlag(closedDomain(ip))
	sim.SetPressureSolver(newPressureSolver3(ip))
	if s := surface3(ip.Collider); s != nil {
		sim.SetCollider(geometry.NewCollider3(s))
	}
	if s := surface3(ip.Emitter.Shape); s != nil {
		domain := sim.GridSystemData().BoundingBox()
		sim.Emitter = particle.NewVolumeEmitter3(s, domain, ip.EmitterSpacing(), ip.Emitter.Seed)
		sim.Emitter.Jitter = ip.Emitter.Jitter
		sim.SetParticleEmitter(sim.Emitter)
	}
	return
}

func (sim *Simulation3) Diagnostics(frame gridsolver.Frame) (row checkpoint.Diagnostics) {
	ps := sim.ParticleSystemData()
	row.Particles = ps.NumberOfParticles()
	row.MaxSpeed, row.KineticEnergy = checkpoint.ParticleStats3(ps.Velocities(), ps.Mass())
	row.CFL = sim.CFL(frame.TimeIntervalInSeconds)
	row.SolverIters, row.SolverResidual = solverStats(sim.PressureSolver())
	return
}

func (sim *Simulation3) Diverged() bool {
	ps := sim.ParticleSystemData()
	return utils.IsNan(ps.Positions()) || utils.IsNan(ps.Velocities())
}

func (sim *Simulation3) SaveCheckpoint(dir string, frame, level int) (err error) {
	if err = checkpoint.SaveParticles(filepath.Join(dir, checkpoint.FileName("particles", frame)), level,
		sim.ParticleSystemData()); err != nil {
		return
	}
	return checkpoint.SaveGrid(filepath.Join(dir, checkpoint.FileName("grid", frame)), level, sim.GridSystemData())
}

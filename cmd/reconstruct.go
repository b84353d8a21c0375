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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofluid/InputParameters"
	"github.com/notargets/gofluid/checkpoint"
	"github.com/notargets/gofluid/grid"
	"github.com/notargets/gofluid/implicit"
	"github.com/notargets/gofluid/particle"
)

type ReconstructOptions struct {
	ParticleFile string
	OutputFile   string
	Method       string  // anisotropic or spherical
	KernelRadius float64 // zero means 1.5 grid spacings
	Dimension    int
}

// ReconstructCmd represents the reconstruct command
var ReconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Turn a particle checkpoint into a signed distance grid",
	Long: `
Reads a particle checkpoint written by the 2D or 3D command and samples the
liquid surface on the grid described by the input file,

gofluid reconstruct -I damBreak.yaml -P out/particles_000010.zst -O surface_000010.zst`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reconstruct called")
		var (
			ro  ReconstructOptions
			err error
		)
		inputFile, _ := cmd.Flags().GetString("inputConditionsFile")
		ro.ParticleFile, _ = cmd.Flags().GetString("particleFile")
		ro.OutputFile, _ = cmd.Flags().GetString("outputFile")
		ro.Method, _ = cmd.Flags().GetString("method")
		ro.KernelRadius, _ = cmd.Flags().GetFloat64("kernelRadius")
		ro.Dimension, _ = cmd.Flags().GetInt("dimension")
		if len(ro.ParticleFile) == 0 || len(ro.OutputFile) == 0 {
			fmt.Printf("error: must supply a particle file (-P) and an output file (-O)\n")
			os.Exit(1)
		}
		ip, err := processInput(RunOptions{InputFile: inputFile}, ro.Dimension)
		if err == nil {
			err = Reconstruct(ip, ro)
		}
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ReconstructCmd)
	ReconstructCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file describing the output grid")
	ReconstructCmd.Flags().StringP("particleFile", "P", "", "particle checkpoint to read")
	ReconstructCmd.Flags().StringP("outputFile", "O", "", "grid checkpoint to write")
	ReconstructCmd.Flags().StringP("method", "m", "anisotropic", "anisotropic or spherical kernels")
	ReconstructCmd.Flags().Float64P("kernelRadius", "r", 0, "kernel radius, zero uses 1.5 grid spacings")
	ReconstructCmd.Flags().IntP("dimension", "D", 2, "2 or 3")
}

func Reconstruct(ip *InputParameters.InputParameters, ro ReconstructOptions) (err error) {
	radius := ro.KernelRadius
	if radius <= 0 {
		radius = 1.5 * ip.GridSpacing()
	}
	if ro.Method != "anisotropic" && ro.Method != "spherical" {
		return fmt.Errorf("method %q: %w", ro.Method, InputParameters.ErrInvalidParameter)
	}
	level := ip.Output.CompressionLevel
	h := ip.GridSpacing()
	switch ip.Dimension {
	case 2:
		var (
			ps     = particle.NewSystemData2(0)
			output = grid.NewCellCenteredScalarGrid2(ip.Size2(), r2.Vec{X: h, Y: h}, InputParameters.Vec2(ip.Origin))
			conv   implicit.PointsToImplicit2
		)
		if err = checkpoint.LoadParticles(ro.ParticleFile, ps); err != nil {
			return
		}
		if ro.Method == "spherical" {
			conv = implicit.NewSphericalPointsToImplicit2(radius, true)
		} else {
			conv = implicit.NewAnisotropicPointsToImplicit2(radius)
		}
		if err = conv.Convert(ps.Positions(), output); err != nil {
			return
		}
		slog.Info("reconstructed surface", "particles", ps.NumberOfParticles(), "method", ro.Method)
		return checkpoint.SaveGrid(ro.OutputFile, level, output)
	default:
		var (
			ps     = particle.NewSystemData3(0)
			output = grid.NewCellCenteredScalarGrid3(ip.Size3(), r3.Vec{X: h, Y: h, Z: h}, InputParameters.Vec3(ip.Origin))
			conv   implicit.PointsToImplicit3
		)
		if err = checkpoint.LoadParticles(ro.ParticleFile, ps); err != nil {
			return
		}
		if ro.Method == "spherical" {
			conv = implicit.NewSphericalPointsToImplicit3(radius, true)
		} else {
			conv = implicit.NewAnisotropicPointsToImplicit3(radius)
		}
		if err = conv.Convert(ps.Positions(), output); err != nil {
			return
		}
		slog.Info("reconstructed surface", "particles", ps.NumberOfParticles(), "method", ro.Method)
		return checkpoint.SaveGrid(ro.OutputFile, level, output)
	}
}

/*
Copyright © 2024 the hillslope authors.
This file is part of hillslope.

hillslope is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hillslope is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hillslope.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package hillslope calculates hillslope sediment transport on a
// distributed triangulated irregular network (TIN) using a linear
// diffusion equation, with separate diffusivities above and below sea level.
package hillslope

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hillslope/collective"
)

// Version gives the version number.
const Version = "0.3.0"

// Diffusion holds the state of the linear hillslope diffusion process for
// one mesh partition. It is not safe for concurrent use.
type Diffusion struct {
	CDAerial float64 // Subaerial diffusion coefficient [m²/yr]
	CDMarine float64 // Submarine diffusion coefficient [m²/yr]

	// CFL is the most recently computed global stable timestep [yr].
	// It is zero until a stability function has been called.
	CFL float64

	// Kernel is used by Stability. If nil, VectorKernel is used.
	Kernel StabilityKernel

	// Comm joins the partitions of the mesh. If nil, the mesh is assumed
	// to be a single partition.
	Comm collective.Communicator

	Log logrus.FieldLogger
}

// NewDiffusion returns a configured diffusion process whose stability
// calculations are reduced over comm.
func NewDiffusion(aerial, marine float64, comm collective.Communicator) (*Diffusion, error) {
	d := &Diffusion{
		Comm: comm,
		Log:  logrus.StandardLogger(),
	}
	if err := d.Configure(aerial, marine); err != nil {
		return nil, err
	}
	return d, nil
}

// Configure sets the subaerial and submarine diffusion coefficients.
// Both must be non-negative. Having both of them equal to zero is allowed
// here (no diffusion), but the stability calculation will then fail.
func (d *Diffusion) Configure(aerial, marine float64) error {
	if aerial < 0 || marine < 0 {
		return fmt.Errorf("%w: diffusion coefficients must be >= 0 (aerial=%g, marine=%g)",
			ErrConfiguration, aerial, marine)
	}
	d.CDAerial, d.CDMarine = aerial, marine
	return nil
}

// maxCD returns the larger of the two diffusion coefficients, or an error
// if it can not be used as a divisor.
func (d *Diffusion) maxCD() (float64, error) {
	m := max(d.CDAerial, d.CDMarine)
	if !(m > 0) {
		return 0, fmt.Errorf("%w: at least one diffusion coefficient must be > 0 (aerial=%g, marine=%g)",
			ErrConfiguration, d.CDAerial, d.CDMarine)
	}
	return m, nil
}

// StabilityFromGeometry calculates the maximal timestep that keeps the
// hillslope scheme stable, using the whole-slice VectorKernel.
// edgeLengths holds the TIN edge lengths of the local partition; entries
// that are not positive are ignored.
//
// The timestep only depends on the mesh geometry, so it needs to be
// calculated again only when the mesh changes. The local value is reduced
// to the global minimum across all partitions, so every partition must
// call a stability function the same number of times and in the same
// order.
func (d *Diffusion) StabilityFromGeometry(ctx context.Context, edgeLengths []float64) (float64, error) {
	return d.stability(ctx, VectorKernel{}, edgeLengths)
}

// StabilityFromKernel is equivalent to StabilityFromGeometry but uses the
// single-pass LoopKernel to calculate the local timestep.
func (d *Diffusion) StabilityFromKernel(ctx context.Context, edgeLengths []float64) (float64, error) {
	return d.stability(ctx, LoopKernel{}, edgeLengths)
}

// Stability calculates the global stable timestep using d.Kernel.
func (d *Diffusion) Stability(ctx context.Context, edgeLengths []float64) (float64, error) {
	k := d.Kernel
	if k == nil {
		k = VectorKernel{}
	}
	return d.stability(ctx, k, edgeLengths)
}

func (d *Diffusion) stability(ctx context.Context, k StabilityKernel, edgeLengths []float64) (float64, error) {
	maxCD, err := d.maxCD()
	if err != nil {
		return 0, err
	}
	local, err := k.LocalTimestep(edgeLengths, maxCD)
	if err != nil {
		return 0, err
	}
	comm := d.Comm
	if comm == nil {
		comm = collective.Self()
	}
	cfl, err := comm.AllreduceMin(ctx, local)
	if err != nil {
		return 0, fmt.Errorf("hillslope: reducing stable timestep: %w", err)
	}
	d.CFL = cfl
	d.logger().WithFields(logrus.Fields{
		"rank":   comm.Rank(),
		"kernel": k.Name(),
		"local":  local,
		"cfl":    cfl,
	}).Debug("hillslope stability")
	return cfl, nil
}

func (d *Diffusion) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

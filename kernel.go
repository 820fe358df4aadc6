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

package hillslope

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CFLFactor is the safety factor applied to l²/CD in the stable timestep
// of the explicit diffusion scheme.
const CFLFactor = 0.05

// StabilityKernel calculates the stable hillslope timestep for the edges
// of a single partition.
type StabilityKernel interface {
	// Name identifies the kernel in configuration files and logs.
	Name() string

	// LocalTimestep returns CFLFactor·min(l²)/maxCD over the strictly
	// positive lengths l in edgeLengths. It returns ErrEmptyGeometry
	// if there are none.
	LocalTimestep(edgeLengths []float64, maxCD float64) (float64, error)
}

// VectorKernel computes the local timestep with whole-slice operations.
type VectorKernel struct{}

// Name returns "geometry".
func (VectorKernel) Name() string { return "geometry" }

// LocalTimestep implements StabilityKernel.
func (VectorKernel) LocalTimestep(edgeLengths []float64, maxCD float64) (float64, error) {
	dist := make([]float64, 0, len(edgeLengths))
	for _, l := range edgeLengths {
		if l > 0 {
			dist = append(dist, l)
		}
	}
	if len(dist) == 0 {
		return math.NaN(), fmt.Errorf("%w (%d edges)", ErrEmptyGeometry, len(edgeLengths))
	}
	floats.Mul(dist, dist)
	return CFLFactor * floats.Min(dist) / maxCD, nil
}

// LoopKernel computes the local timestep in a single allocation-free pass
// over the edges.
type LoopKernel struct{}

// Name returns "kernel".
func (LoopKernel) Name() string { return "kernel" }

// LocalTimestep implements StabilityKernel.
func (LoopKernel) LocalTimestep(edgeLengths []float64, maxCD float64) (float64, error) {
	minSq := math.Inf(1)
	found := false
	for _, l := range edgeLengths {
		if !(l > 0) {
			continue
		}
		found = true
		if sq := l * l; sq < minSq {
			minSq = sq
		}
	}
	if !found {
		return math.NaN(), fmt.Errorf("%w (%d edges)", ErrEmptyGeometry, len(edgeLengths))
	}
	return CFLFactor * minSq / maxCD, nil
}

// KernelByName returns the stability kernel with the given name.
// The empty string selects VectorKernel.
func KernelByName(name string) (StabilityKernel, error) {
	switch name {
	case "", VectorKernel{}.Name():
		return VectorKernel{}, nil
	case LoopKernel{}.Name():
		return LoopKernel{}, nil
	default:
		return nil, fmt.Errorf("hillslope: unknown stability kernel %q; valid options are %q and %q",
			name, VectorKernel{}.Name(), LoopKernel{}.Name())
	}
}

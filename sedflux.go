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

// Nodes holds the per-node inputs to the sediment flux calculation for
// the nodes of one partition. All of the columns must have the same length
// and the same node ordering.
type Nodes struct {
	// Flux is, for each node, the sum over its neighbors of the height
	// difference divided by the TIN edge length, multiplied by the
	// length of the shared Voronoi edge [m].
	Flux []float64

	Elevation []float64 // [m]
	Area      []float64 // Voronoi polygon area [m²]
}

// Len returns the number of nodes.
func (n Nodes) Len() int { return len(n.Elevation) }

// Validate checks that the columns of n are index aligned.
func (n Nodes) Validate() error {
	if len(n.Flux) != len(n.Elevation) || len(n.Area) != len(n.Elevation) {
		return &ShapeMismatchError{
			Flux:      len(n.Flux),
			Elevation: len(n.Elevation),
			Area:      len(n.Area),
		}
	}
	return nil
}

// ComputeSedimentFlux calculates the hillslope sediment flux [m/yr] at each
// node using a finite-volume linear diffusion approximation. Nodes at or
// above seaLevel use CDAerial and nodes below it use CDMarine. Nodes without
// a positive Voronoi area get zero flux. The inputs are not modified.
func (d *Diffusion) ComputeSedimentFlux(n Nodes, seaLevel float64) ([]float64, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	flux := make([]float64, n.Len())
	for i, z := range n.Elevation {
		if !(n.Area[i] > 0) {
			continue
		}
		raw := n.Flux[i] / n.Area[i]
		if z >= seaLevel {
			flux[i] = raw * d.CDAerial
		} else {
			flux[i] = raw * d.CDMarine
		}
	}
	return flux, nil
}

// SedimentFlux is a convenience wrapper around ComputeSedimentFlux for
// callers that hold the node columns separately.
func (d *Diffusion) SedimentFlux(diffFlux []float64, seaLevel float64, elevation, area []float64) ([]float64, error) {
	return d.ComputeSedimentFlux(Nodes{Flux: diffFlux, Elevation: elevation, Area: area}, seaLevel)
}

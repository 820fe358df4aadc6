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

// Package tin holds the local view of one partition of a triangulated
// irregular network and its Voronoi dual, and derives from it the inputs
// that the hillslope process needs.
package tin

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/hillslope"
)

// Partition is the part of a TIN that is handled by one process.
// All per-node fields use the same local node ordering.
type Partition struct {
	Nodes     []geom.Point // TIN node locations [m]
	Elevation []float64    // [m]

	// Neighbors holds the local indices of the neighbors of each node.
	// -1 marks an absent neighbor.
	Neighbors [][]int

	// VoronoiEdges holds, for each node and neighbor, the length of the
	// Voronoi polygon edge shared between them [m].
	VoronoiEdges [][]float64

	// VoronoiArea is the area of the Voronoi polygon of each node [m²].
	// If it is empty, the areas of VoronoiCells are used instead.
	VoronoiArea  []float64
	VoronoiCells []geom.Polygon

	// Owned marks the nodes whose elevation is updated by this partition;
	// the rest are halo nodes owned by a neighboring partition.
	// If it is empty, every node is owned.
	Owned []bool
}

// Len returns the number of nodes in p.
func (p *Partition) Len() int { return len(p.Nodes) }

// Validate checks that the fields of p are index aligned and that the
// neighbor indices refer to nodes in p.
func (p *Partition) Validate() error {
	n := len(p.Nodes)
	if len(p.Elevation) != n {
		return fmt.Errorf("tin: %d nodes but %d elevations", n, len(p.Elevation))
	}
	if len(p.Neighbors) != n {
		return fmt.Errorf("tin: %d nodes but %d neighbor lists", n, len(p.Neighbors))
	}
	if len(p.VoronoiEdges) != n {
		return fmt.Errorf("tin: %d nodes but %d Voronoi edge lists", n, len(p.VoronoiEdges))
	}
	if len(p.VoronoiArea) == 0 && len(p.VoronoiCells) == 0 && n > 0 {
		return fmt.Errorf("tin: either VoronoiArea or VoronoiCells must be specified")
	}
	if len(p.VoronoiArea) != 0 && len(p.VoronoiArea) != n {
		return fmt.Errorf("tin: %d nodes but %d Voronoi areas", n, len(p.VoronoiArea))
	}
	if len(p.VoronoiArea) == 0 && len(p.VoronoiCells) != n {
		return fmt.Errorf("tin: %d nodes but %d Voronoi cells", n, len(p.VoronoiCells))
	}
	if len(p.Owned) != 0 && len(p.Owned) != n {
		return fmt.Errorf("tin: %d nodes but %d ownership flags", n, len(p.Owned))
	}
	for i, nb := range p.Neighbors {
		if len(p.VoronoiEdges[i]) != len(nb) {
			return fmt.Errorf("tin: node %d has %d neighbors but %d Voronoi edges",
				i, len(nb), len(p.VoronoiEdges[i]))
		}
		for _, j := range nb {
			if j < -1 || j >= n {
				return fmt.Errorf("tin: node %d has neighbor %d outside of [0, %d)", i, j, n)
			}
		}
	}
	return nil
}

// IsOwned reports whether node i is owned by p.
func (p *Partition) IsOwned(i int) bool {
	return len(p.Owned) == 0 || p.Owned[i]
}

// maxNeighbors returns the largest number of neighbors of any node.
func (p *Partition) maxNeighbors() int {
	m := 0
	for _, nb := range p.Neighbors {
		if len(nb) > m {
			m = len(nb)
		}
	}
	return m
}

// edgeLength returns the length of the TIN edge between nodes i and j.
func (p *Partition) edgeLength(i, j int) float64 {
	return geom.LineString{p.Nodes[i], p.Nodes[j]}.Length()
}

// EdgeLengths returns the lengths of the TIN edges from each node to each
// of its neighbors, as a row-major table with one row per node and one
// column per neighbor slot. Slots without a neighbor are zero.
func (p *Partition) EdgeLengths() []float64 {
	w := p.maxNeighbors()
	o := make([]float64, len(p.Nodes)*w)
	for i, nb := range p.Neighbors {
		for k, j := range nb {
			if j < 0 {
				continue
			}
			o[i*w+k] = p.edgeLength(i, j)
		}
	}
	return o
}

// Areas returns the Voronoi polygon area of each node.
func (p *Partition) Areas() []float64 {
	if len(p.VoronoiArea) != 0 {
		return p.VoronoiArea
	}
	o := make([]float64, len(p.VoronoiCells))
	for i, c := range p.VoronoiCells {
		o[i] = c.Area()
	}
	return o
}

// DiffusiveFlux returns, for each node, the sum over its neighbors of the
// elevation difference divided by the TIN edge length, multiplied by
// the length of the shared Voronoi edge. Degenerate edges are skipped.
func (p *Partition) DiffusiveFlux() []float64 {
	o := make([]float64, len(p.Nodes))
	for i, nb := range p.Neighbors {
		for k, j := range nb {
			if j < 0 {
				continue
			}
			l := p.edgeLength(i, j)
			if !(l > 0) {
				continue
			}
			o[i] += (p.Elevation[j] - p.Elevation[i]) / l * p.VoronoiEdges[i][k]
		}
	}
	return o
}

// Deposit adds dz to the elevation of each owned node. Halo nodes are left
// for their owning partition to update.
func (p *Partition) Deposit(dz []float64) error {
	if len(dz) != len(p.Elevation) {
		return fmt.Errorf("tin: %d elevation changes for %d nodes", len(dz), len(p.Elevation))
	}
	for i, d := range dz {
		if p.IsOwned(i) {
			p.Elevation[i] += d
		}
	}
	return nil
}

// NodeTable returns the per-node inputs to the hillslope sediment flux
// calculation for the current elevations.
func (p *Partition) NodeTable() hillslope.Nodes {
	return hillslope.Nodes{
		Flux:      p.DiffusiveFlux(),
		Elevation: p.Elevation,
		Area:      p.Areas(),
	}
}

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

package tin

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
)

// nodeRecord is the file representation of a single node.
type nodeRecord struct {
	X, Y, Z      float64
	Area         *float64
	Cell         [][]float64 // Voronoi polygon ring as [x, y] pairs
	Neighbors    []int
	VoronoiEdges []float64
	Owned        *bool
}

type partitionFile struct {
	Node []nodeRecord
}

// Load reads a partition in TOML format from r, where each node is
// given as a [[Node]] table, for example:
//
//	[[Node]]
//	X = 0.0
//	Y = 0.0
//	Z = 12.5
//	Area = 4.0
//	Neighbors = [1, 2, -1]
//	VoronoiEdges = [2.0, 2.0, 0.0]
//
// Instead of Area, a node can have a Cell with the vertices of its Voronoi
// polygon; either all nodes or none must have an Area. Owned defaults to
// true.
func Load(r io.Reader) (*Partition, error) {
	var f partitionFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("tin: decoding partition: %w", err)
	}
	p := &Partition{
		Nodes:        make([]geom.Point, len(f.Node)),
		Elevation:    make([]float64, len(f.Node)),
		Neighbors:    make([][]int, len(f.Node)),
		VoronoiEdges: make([][]float64, len(f.Node)),
	}
	var nAreas, nOwned int
	for _, n := range f.Node {
		if n.Area != nil {
			nAreas++
		}
		if n.Owned != nil {
			nOwned++
		}
	}
	if nAreas != 0 && nAreas != len(f.Node) {
		return nil, fmt.Errorf("tin: %d of %d nodes have an Area; either all or none must", nAreas, len(f.Node))
	}
	if nAreas > 0 {
		p.VoronoiArea = make([]float64, len(f.Node))
	} else {
		p.VoronoiCells = make([]geom.Polygon, len(f.Node))
	}
	if nOwned > 0 {
		p.Owned = make([]bool, len(f.Node))
	}
	for i, n := range f.Node {
		p.Nodes[i] = geom.Point{X: n.X, Y: n.Y}
		p.Elevation[i] = n.Z
		p.Neighbors[i] = n.Neighbors
		p.VoronoiEdges[i] = n.VoronoiEdges
		if p.VoronoiArea != nil {
			p.VoronoiArea[i] = *n.Area
		} else {
			ring := make([]geom.Point, len(n.Cell))
			for j, xy := range n.Cell {
				if len(xy) != 2 {
					return nil, fmt.Errorf("tin: node %d: Voronoi cell vertex %d has %d coordinates, not 2", i, j, len(xy))
				}
				ring[j] = geom.Point{X: xy[0], Y: xy[1]}
			}
			p.VoronoiCells[i] = geom.Polygon{ring}
		}
		if p.Owned != nil {
			p.Owned[i] = n.Owned == nil || *n.Owned
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile reads a partition from the TOML file at path.
func LoadFile(path string) (*Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tin: opening partition file: %w", err)
	}
	defer f.Close()
	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Save writes the current state of p to w in the format read by Load.
func (p *Partition) Save(w io.Writer) error {
	f := partitionFile{Node: make([]nodeRecord, len(p.Nodes))}
	for i, pt := range p.Nodes {
		r := nodeRecord{
			X:            pt.X,
			Y:            pt.Y,
			Z:            p.Elevation[i],
			Neighbors:    p.Neighbors[i],
			VoronoiEdges: p.VoronoiEdges[i],
		}
		if len(p.VoronoiArea) != 0 {
			a := p.VoronoiArea[i]
			r.Area = &a
		} else if len(p.VoronoiCells[i]) > 0 {
			for _, v := range p.VoronoiCells[i][0] {
				r.Cell = append(r.Cell, []float64{v.X, v.Y})
			}
		}
		if len(p.Owned) != 0 {
			o := p.Owned[i]
			r.Owned = &o
		}
		f.Node[i] = r
	}
	return toml.NewEncoder(w).Encode(f)
}

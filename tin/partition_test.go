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
	"bytes"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
	"gonum.org/v1/gonum/floats"
)

// strip returns a partition of three nodes on a line, 2 m apart, with unit
// Voronoi edges and 2 m² Voronoi areas.
func strip() *Partition {
	return &Partition{
		Nodes:        []geom.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 4, Y: 0}},
		Elevation:    []float64{0, 4, 2},
		Neighbors:    [][]int{{1, -1}, {0, 2}, {1, -1}},
		VoronoiEdges: [][]float64{{1, 0}, {1, 1}, {1, 0}},
		VoronoiArea:  []float64{2, 2, 2},
	}
}

const stripTOML = `
[[Node]]
X = 0.0
Y = 0.0
Z = 0.0
Area = 2.0
Neighbors = [1, -1]
VoronoiEdges = [1.0, 0.0]

[[Node]]
X = 2.0
Y = 0.0
Z = 4.0
Area = 2.0
Neighbors = [0, 2]
VoronoiEdges = [1.0, 1.0]

[[Node]]
X = 4.0
Y = 0.0
Z = 2.0
Area = 2.0
Neighbors = [1, -1]
VoronoiEdges = [1.0, 0.0]
`

func TestValidate(t *testing.T) {
	if err := strip().Validate(); err != nil {
		t.Fatal(err)
	}
	for name, mutate := range map[string]func(p *Partition){
		"elevation":    func(p *Partition) { p.Elevation = p.Elevation[:2] },
		"neighbors":    func(p *Partition) { p.Neighbors = p.Neighbors[:2] },
		"voronoiEdges": func(p *Partition) { p.VoronoiEdges[1] = []float64{1} },
		"area":         func(p *Partition) { p.VoronoiArea = []float64{1} },
		"noArea":       func(p *Partition) { p.VoronoiArea = nil },
		"owned":        func(p *Partition) { p.Owned = []bool{true} },
		"range":        func(p *Partition) { p.Neighbors[0][0] = 3 },
	} {
		t.Run(name, func(t *testing.T) {
			p := strip()
			mutate(p)
			if err := p.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestEdgeLengths(t *testing.T) {
	have := strip().EdgeLengths()
	want := []float64{2, 0, 2, 2, 2, 0}
	if !floats.Equal(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestAreasFromCells(t *testing.T) {
	p := strip()
	p.VoronoiArea = nil
	square := func(x float64) geom.Polygon {
		return geom.Polygon{{{X: x - 1, Y: -0.5}, {X: x + 1, Y: -0.5}, {X: x + 1, Y: 0.5}, {X: x - 1, Y: 0.5}}}
	}
	p.VoronoiCells = []geom.Polygon{square(0), square(2), square(4)}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if have, want := p.Areas(), []float64{2, 2, 2}; !floats.EqualApprox(have, want, 1e-12) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestDiffusiveFlux(t *testing.T) {
	p := strip()
	have := p.DiffusiveFlux()
	// node 0: (4-0)/2*1 = 2
	// node 1: (0-4)/2*1 + (2-4)/2*1 = -3
	// node 2: (4-2)/2*1 = 1
	want := []float64{2, -3, 1}
	if !floats.EqualApprox(have, want, 1e-12) {
		t.Errorf("have %v, want %v", have, want)
	}
	// Mass is conserved when Voronoi edges are symmetric.
	if s := floats.Sum(have); s != 0 {
		t.Errorf("flux sum = %g", s)
	}
}

func TestDiffusiveFluxDegenerateEdge(t *testing.T) {
	p := strip()
	p.Nodes[2] = p.Nodes[1] // zero-length edge between nodes 1 and 2
	have := p.DiffusiveFlux()
	want := []float64{2, -2, 0}
	if !floats.EqualApprox(have, want, 1e-12) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestNodeTable(t *testing.T) {
	n := strip().NodeTable()
	if err := n.Validate(); err != nil {
		t.Fatal(err)
	}
	if n.Len() != 3 {
		t.Errorf("have %d nodes, want 3", n.Len())
	}
}

func TestDeposit(t *testing.T) {
	p := strip()
	p.Owned = []bool{true, false, true}
	if err := p.Deposit([]float64{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 4, 3}; !floats.Equal(p.Elevation, want) {
		t.Errorf("have %v, want %v", p.Elevation, want)
	}
	if err := p.Deposit([]float64{1}); err == nil {
		t.Error("expected a length error")
	}
}

func TestLoad(t *testing.T) {
	have, err := Load(strings.NewReader(stripTOML))
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(have, strip()); len(diff) != 0 {
		t.Errorf("partition differs:\n%s", strings.Join(diff, "\n"))
	}
}

func TestLoadCells(t *testing.T) {
	const file = `
[[Node]]
X = 0.0
Y = 0.0
Z = 1.0
Cell = [[-1.0, -1.0], [1.0, -1.0], [1.0, 1.0], [-1.0, 1.0]]
Neighbors = []
VoronoiEdges = []
Owned = false
`
	p, err := Load(strings.NewReader(file))
	if err != nil {
		t.Fatal(err)
	}
	if a := p.Areas(); len(a) != 1 || a[0] != 4 {
		t.Errorf("areas = %v", a)
	}
	if p.IsOwned(0) {
		t.Error("node 0 should not be owned")
	}
}

func TestLoadMixedAreas(t *testing.T) {
	file := strings.Replace(stripTOML, "Area = 2.0\n", "", 1)
	if _, err := Load(strings.NewReader(file)); err == nil {
		t.Error("expected an error for partially specified areas")
	}
}

func TestSaveLoad(t *testing.T) {
	p := strip()
	p.Owned = []bool{true, true, false}
	var b bytes.Buffer
	if err := p.Save(&b); err != nil {
		t.Fatal(err)
	}
	have, err := Load(&b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(have, p); len(diff) != 0 {
		t.Errorf("partition differs after round trip:\n%s", strings.Join(diff, "\n"))
	}
}

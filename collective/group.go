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

package collective

import (
	"context"
	"fmt"
	"sync"
)

// group is a reusable barrier shared by the members of an in-process group.
type group struct {
	mu   sync.Mutex
	cond *sync.Cond
	size int

	arrived    int
	generation uint64
	acc        float64 // running minimum of the current round
	result     float64 // minimum of the last completed round
}

type member struct {
	g    *group
	rank int
}

// NewGroup returns the members of an in-process group of n ranks. Each
// member is meant to be used by a separate goroutine, one per partition.
func NewGroup(n int) ([]Communicator, error) {
	if n < 1 {
		return nil, fmt.Errorf("collective: group size must be >= 1, not %d", n)
	}
	g := &group{size: n}
	g.cond = sync.NewCond(&g.mu)
	o := make([]Communicator, n)
	for i := range o {
		o[i] = &member{g: g, rank: i}
	}
	return o, nil
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.g.size }

// AllreduceMin implements Communicator. ctx is only checked before v is
// contributed.
func (m *member) AllreduceMin(ctx context.Context, v float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g := m.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.arrived == 0 || v < g.acc {
		g.acc = v
	}
	g.arrived++
	if g.arrived == g.size {
		g.result = g.acc
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()
		return g.result, nil
	}
	// The next round can't complete until this member returns, so result
	// stays valid while we wait.
	gen := g.generation
	for gen == g.generation {
		g.cond.Wait()
	}
	return g.result, nil
}

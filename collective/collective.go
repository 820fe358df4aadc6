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

// Package collective provides collective reductions over a fixed group of
// cooperating mesh partitions, which may live in the same process or in
// separate processes connected over RPC.
package collective

import "context"

// Communicator joins one rank to a fixed group of ranks.
//
// AllreduceMin is a barrier: it blocks until every rank in the group has
// contributed its value and then returns the minimum of all of them, which
// is identical on every rank. Every rank must call it the same number of
// times and in the same order. A rank that skips a call, or calls it from
// a different point in its control flow, stalls the whole group; this can
// not be detected locally. Once a value has been contributed the call can
// not be abandoned.
type Communicator interface {
	// Rank is the index of this member in the group, in [0, Size).
	Rank() int

	// Size is the number of members in the group.
	Size() int

	// AllreduceMin returns the minimum of v across the group.
	AllreduceMin(ctx context.Context, v float64) (float64, error)
}

type self struct{}

// Self returns a Communicator for a group with a single member.
func Self() Communicator { return self{} }

func (self) Rank() int { return 0 }
func (self) Size() int { return 1 }

func (self) AllreduceMin(ctx context.Context, v float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return v, nil
}

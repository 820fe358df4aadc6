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
	"sort"

	"gonum.org/v1/gonum/interp"
)

// SeaLevelFunc returns the sea level [m] at simulation time t [yr].
type SeaLevelFunc func(t float64) float64

// ConstantSeaLevel returns a SeaLevelFunc that always returns z.
func ConstantSeaLevel(z float64) SeaLevelFunc {
	return func(float64) float64 { return z }
}

// SeaLevelCurve returns a SeaLevelFunc that linearly interpolates between
// the given (time, level) points. Before the first and after the last time
// the sea level is held constant. The times do not need to be sorted but
// must be unique.
func SeaLevelCurve(times, levels []float64) (SeaLevelFunc, error) {
	if len(times) != len(levels) {
		return nil, fmt.Errorf("hillslope: sea level curve has %d times but %d levels", len(times), len(levels))
	}
	switch len(times) {
	case 0:
		return nil, fmt.Errorf("hillslope: sea level curve has no points")
	case 1:
		return ConstantSeaLevel(levels[0]), nil
	}
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })
	xs := make([]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i], ys[i] = times[j], levels[j]
		if i > 0 && xs[i] == xs[i-1] {
			return nil, fmt.Errorf("hillslope: sea level curve has duplicate time %g", xs[i])
		}
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("hillslope: fitting sea level curve: %w", err)
	}
	first, last := xs[0], xs[len(xs)-1]
	return func(t float64) float64 {
		switch {
		case t <= first:
			return ys[0]
		case t >= last:
			return ys[len(ys)-1]
		}
		return pl.Predict(t)
	}, nil
}

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
	"math"
	"testing"
)

func TestSeaLevelCurve(t *testing.T) {
	// Unsorted on purpose.
	f, err := SeaLevelCurve([]float64{1000, 0, 2000}, []float64{-10, 0, 10})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct{ t, want float64 }{
		{-500, 0},
		{0, 0},
		{500, -5},
		{1000, -10},
		{1500, 0},
		{2000, 10},
		{5000, 10},
	}
	for _, test := range tests {
		if have := f(test.t); math.Abs(have-test.want) > testTolerance {
			t.Errorf("t=%g: have %g, want %g", test.t, have, test.want)
		}
	}
}

func TestSeaLevelCurveSinglePoint(t *testing.T) {
	f, err := SeaLevelCurve([]float64{100}, []float64{-3})
	if err != nil {
		t.Fatal(err)
	}
	if f(0) != -3 || f(1e6) != -3 {
		t.Errorf("single point curve should be constant")
	}
}

func TestSeaLevelCurveInvalid(t *testing.T) {
	if _, err := SeaLevelCurve(nil, nil); err == nil {
		t.Error("expected an error for an empty curve")
	}
	if _, err := SeaLevelCurve([]float64{0, 1}, []float64{0}); err == nil {
		t.Error("expected an error for mismatched lengths")
	}
	if _, err := SeaLevelCurve([]float64{0, 0}, []float64{0, 1}); err == nil {
		t.Error("expected an error for duplicate times")
	}
}

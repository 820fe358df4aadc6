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
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when the diffusion coefficients can not
	// be used, for instance when both of them are zero and the stability
	// condition would divide by zero.
	ErrConfiguration = errors.New("hillslope: invalid diffusion configuration")

	// ErrEmptyGeometry is returned when a partition has no edge with a
	// strictly positive length.
	ErrEmptyGeometry = errors.New("hillslope: no positive edge lengths")

	// ErrShapeMismatch is matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("hillslope: node columns differ in length")
)

// ShapeMismatchError reports node columns that are not index aligned.
type ShapeMismatchError struct {
	Flux, Elevation, Area int // column lengths
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("hillslope: node columns differ in length: flux=%d, elevation=%d, area=%d",
		e.Flux, e.Elevation, e.Area)
}

// Is allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// Copyright (C) 2026 The galprof authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package isophote

import (
	"math"
)

// Semi-major axis assigned when a catalog reports zero size, to avoid
// seeding the fit with a degenerate ellipse.
const DefaultSma = 10.0

// The geometry of an ellipse on the pixel grid. The position angle is
// measured counter-clockwise from the positive x axis, in radians.
type EllipseGeometry struct {
	X0  float64 // center x [pixels]
	Y0  float64 // center y [pixels]
	Sma float64 // semi-major axis length [pixels]
	Eps float64 // ellipticity 1-b/a, in [0,1)
	Pa  float64 // position angle [radians]
}

// Creates an ellipse geometry, coercing a degenerate semi-major axis to
// DefaultSma and clamping the ellipticity into [0,1).
func NewEllipseGeometry(x0, y0, sma, eps, pa float64) EllipseGeometry {
	if sma <= 0 {
		sma = DefaultSma
	}
	if eps < 0 {
		eps = 0
	}
	if eps >= 1 {
		eps = 0.95
	}
	return EllipseGeometry{X0: x0, Y0: y0, Sma: sma, Eps: eps, Pa: pa}
}

// Returns the semi-minor axis length sma*(1-eps).
func (g EllipseGeometry) SemiMinor() float64 {
	return g.Sma * (1 - g.Eps)
}

// Returns the radius of the ellipse at the given polar angle, measured
// from the ellipse center with phi=0 along the major axis.
func (g EllipseGeometry) RadiusAt(phi float64) float64 {
	b := g.SemiMinor()
	s, c := math.Sincos(phi)
	return g.Sma * b / math.Sqrt(b*c*b*c+g.Sma*s*g.Sma*s)
}

// Maps ellipse polar coordinates (r, phi) to pixel coordinates.
func (g EllipseGeometry) ToPixel(r, phi float64) (x, y float64) {
	s, c := math.Sincos(phi + g.Pa)
	return g.X0 + r*c, g.Y0 + r*s
}

// An elliptical aperture descriptor, as handed to photometry collaborators.
type EllipticalAperture struct {
	X0        float64
	Y0        float64
	SemiMajor float64
	SemiMinor float64
	Pa        float64
}

// Returns the aperture covering the given geometry.
func (g EllipseGeometry) Aperture() EllipticalAperture {
	return EllipticalAperture{
		X0:        g.X0,
		Y0:        g.Y0,
		SemiMajor: g.Sma,
		SemiMinor: g.SemiMinor(),
		Pa:        g.Pa,
	}
}

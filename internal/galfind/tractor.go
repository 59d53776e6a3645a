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

package galfind

import (
	"math"
	"strings"

	"galprof/internal/frame"
	"galprof/internal/isophote"
)

// A Tractor catalog record carrying the survey shape measurements for one
// galaxy. Shape radii are in arcsec; e1/e2 are the ellipticity components.
type Tractor struct {
	Type       string  `json:"type" yaml:"type"` // DEV, EXP, COMP, ...
	ShapeDevR  float64 `json:"shapedev_r" yaml:"shapedev_r"`
	ShapeDevE1 float64 `json:"shapedev_e1" yaml:"shapedev_e1"`
	ShapeDevE2 float64 `json:"shapedev_e2" yaml:"shapedev_e2"`
	ShapeExpR  float64 `json:"shapeexp_r" yaml:"shapeexp_r"`
	ShapeExpE1 float64 `json:"shapeexp_e1" yaml:"shapeexp_e1"`
	ShapeExpE2 float64 `json:"shapeexp_e2" yaml:"shapeexp_e2"`
}

// Returns the shape radius and ellipticity components matching the galaxy
// type. De Vaucouleurs profiles use the DEV columns, everything else the
// exponential ones.
func (t *Tractor) shape() (r, e1, e2 float64) {
	if strings.ToUpper(strings.TrimSpace(t.Type)) == "DEV" {
		return t.ShapeDevR, t.ShapeDevE1, t.ShapeDevE2
	}
	return t.ShapeExpR, t.ShapeExpE1, t.ShapeExpE2
}

// Converts the catalog ellipticity components to an ellipse ellipticity and
// position angle. |e| maps to the axis ratio via ba = (1-|e|)/(1+|e|), so
// eps = 1-ba; the position angle is half the polar angle of (e1,e2).
func EpsPaFromComponents(e1, e2 float64) (eps, pa float64) {
	e := math.Sqrt(e1*e1 + e2*e2)
	ba := (1 - e) / (1 + e)
	if e1 != 0 {
		pa = 0.5 * math.Atan(e2/e1)
	}
	return 1 - ba, pa
}

// Builds the initial ellipse geometry for a galaxy, centered on the image.
// With useTractor, the catalog shape columns provide ellipticity and
// position angle; otherwise the galaxy is detected from the pixels. A zero
// catalog radius falls back to the default seed sma.
func InitialEllipse(f *frame.Frame, cat *Tractor, pixscale float64, useTractor bool, detectSigma float64) (isophote.EllipseGeometry, isophote.EllipticalAperture, error) {
	sma := 0.0
	if cat != nil {
		r, e1, e2 := cat.shape()
		sma = r / pixscale

		if useTractor {
			eps, pa := EpsPaFromComponents(e1, e2)
			geom := isophote.NewEllipseGeometry(float64(f.Width)/2, float64(f.Height)/2, sma, eps, pa)
			return geom, geom.Aperture(), nil
		}
	}

	g, err := FindGalaxy(f, detectSigma)
	if err != nil {
		return isophote.EllipseGeometry{}, isophote.EllipticalAperture{}, err
	}
	geom := isophote.NewEllipseGeometry(float64(f.Width)/2, float64(f.Height)/2, sma, g.Eps, g.Theta)
	return geom, geom.Aperture(), nil
}

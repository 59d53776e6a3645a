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

// Package mge decomposes a galaxy image into a multi-Gaussian expansion:
// sector photometry along the isophote shape, then a fit of concentric
// Gaussians to the sector profiles.
package mge

import (
	"errors"
	"math"

	"galprof/internal/frame"
)

// Default number of angular sectors between the major and minor axis
const DefaultSectors = 11

// Innermost radius of the logarithmic radial binning, in pixels
const minSectorRadius = 0.38

// Radial bins per decade of radius
const binsPerDecade = 24

// Sector photometry of a galaxy image: mean counts per angular sector and
// logarithmic radial bin, with fourfold symmetry folded into one quadrant.
type SectorPhot struct {
	Radius []float64 // elliptical radius of each measurement [pixels]
	Angle  []float64 // sector angle from the major axis [degrees]
	Counts []float64 // mean counts of the bin
}

// Measures sector photometry around (xpeak,ypeak) with the major axis at
// angle theta (radians, ccw from x). Pixels are assigned to sectors by
// their polar angle folded into [0,90] degrees and to radial bins spaced
// logarithmically. Bins averaging at or below minLevel are dropped.
func SectorsPhotometry(f *frame.Frame, eps, theta float64, xpeak, ypeak int, nSectors int, minLevel float64) (*SectorPhot, error) {
	if nSectors <= 0 {
		nSectors = DefaultSectors
	}
	q := 1 - eps
	if q <= 0 {
		return nil, errors.New("mge: degenerate axis ratio")
	}
	sinT, cosT := math.Sincos(theta)

	rmax := math.Hypot(float64(f.Width), float64(f.Height))
	nBins := int(math.Ceil(math.Log10(rmax/minSectorRadius) * binsPerDecade))
	logStep := math.Log10(rmax/minSectorRadius) / float64(nBins)

	type accum struct {
		sumV, sumR float64
		n          int
	}
	cells := make([]accum, nSectors*nBins)

	for i, v := range f.Data {
		if f.Mask[i] {
			continue
		}
		dx := float64(i%f.Width) - float64(xpeak)
		dy := float64(i/f.Width) - float64(ypeak)
		// rotate into the major-axis frame
		xp := dx*cosT + dy*sinT
		yp := -dx*sinT + dy*cosT

		r := math.Hypot(xp, yp/q)
		if r < minSectorRadius || r >= rmax {
			continue
		}
		phi := math.Atan2(math.Abs(yp), math.Abs(xp)) // folded into [0,pi/2]

		sector := int(phi / (math.Pi / 2) * float64(nSectors))
		if sector >= nSectors {
			sector = nSectors - 1
		}
		bin := int(math.Log10(r/minSectorRadius) / logStep)
		if bin >= nBins {
			bin = nBins - 1
		}

		c := &cells[sector*nBins+bin]
		c.sumV += v
		c.sumR += r
		c.n++
	}

	phot := &SectorPhot{}
	for s := 0; s < nSectors; s++ {
		angle := (float64(s) + 0.5) * 90 / float64(nSectors)
		for b := 0; b < nBins; b++ {
			c := cells[s*nBins+b]
			if c.n == 0 {
				continue
			}
			counts := c.sumV / float64(c.n)
			if counts <= minLevel {
				continue
			}
			phot.Radius = append(phot.Radius, c.sumR/float64(c.n))
			phot.Angle = append(phot.Angle, angle)
			phot.Counts = append(phot.Counts, counts)
		}
	}
	if len(phot.Counts) == 0 {
		return nil, errors.New("mge: no sector measurements above the minimum level")
	}
	return phot, nil
}

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

// Package galfind locates the dominant galaxy in a single-band image and
// estimates its initial ellipse geometry from pixel moments.
package galfind

import (
	"errors"
	"math"

	"galprof/internal/frame"
	"galprof/internal/isophote"
	"galprof/internal/qsort"
	"galprof/internal/stats"
)

// Number of random pixels sampled when estimating the sky background on
// large cutouts
const backgroundSamples = 64 * 1024

// Raised when no connected group of pixels stands above the background
var ErrNoGalaxy = errors.New("galfind: no galaxy detected above the background")

// The dominant galaxy blob of an image, described by its pixel moments
type Galaxy struct {
	XPeak, YPeak int     // brightest pixel of the blob
	XMed, YMed   float64 // median pixel position of the blob
	Eps          float64 // ellipticity 1-b/a from second moments
	Theta        float64 // major axis angle, ccw from x axis [radians]
	MajorAxis    float64 // major axis length [pixels]
	NPix         int     // blob size in pixels
	Peak         float64 // background-subtracted peak intensity
}

// Finds the largest connected group of pixels more than nsigma standard
// deviations above the sigma-clipped sky background and derives its
// geometry from first and second pixel moments.
func FindGalaxy(f *frame.Frame, nsigma float64) (*Galaxy, error) {
	data := f.UnmaskedData()
	if len(data) == 0 {
		return nil, ErrNoGalaxy
	}

	var bg, sigma float64
	if len(data) > backgroundSamples {
		bg = stats.FastApproxMedian(data, backgroundSamples)
		sigma = stats.FastApproxStdDev(data, bg, backgroundSamples)
	} else {
		bg, sigma = stats.SigmaClippedMedian(data, 3, 3)
	}
	threshold := bg + nsigma*sigma

	blob := largestBlob(f, threshold)
	if len(blob) < 4 {
		return nil, ErrNoGalaxy
	}

	g := &Galaxy{NPix: len(blob)}

	// peak and median positions
	xs := make([]float64, len(blob))
	ys := make([]float64, len(blob))
	peakVal := math.Inf(-1)
	for i, p := range blob {
		xs[i], ys[i] = float64(p.x), float64(p.y)
		if p.v > peakVal {
			peakVal = p.v
			g.XPeak, g.YPeak = p.x, p.y
		}
	}
	g.XMed = qsort.QSelectFloat64(xs, len(xs)/2+1)
	g.YMed = qsort.QSelectFloat64(ys, len(ys)/2+1)
	g.Peak = peakVal - bg

	// intensity-weighted first and second moments
	var mass, mx, my float64
	for _, p := range blob {
		w := p.v - bg
		mass += w
		mx += w * float64(p.x)
		my += w * float64(p.y)
	}
	if mass <= 0 {
		return nil, ErrNoGalaxy
	}
	mx /= mass
	my /= mass

	var mxx, myy, mxy float64
	for _, p := range blob {
		w := p.v - bg
		dx, dy := float64(p.x)-mx, float64(p.y)-my
		mxx += w * dx * dx
		myy += w * dy * dy
		mxy += w * dx * dy
	}
	mxx /= mass
	myy /= mass
	mxy /= mass

	// eigenvalues of the moment matrix give the axis lengths
	tr := mxx + myy
	det := mxx*myy - mxy*mxy
	disc := math.Sqrt(math.Max(0.25*tr*tr-det, 0))
	lambda1 := 0.5*tr + disc
	lambda2 := 0.5*tr - disc
	if lambda1 <= 0 {
		return nil, ErrNoGalaxy
	}
	if lambda2 < 0 {
		lambda2 = 0
	}

	g.Eps = 1 - math.Sqrt(lambda2/lambda1)
	g.Theta = 0.5 * math.Atan2(2*mxy, mxx-myy)
	// 3 sigma along the major axis encloses essentially all of the light
	g.MajorAxis = 6 * math.Sqrt(lambda1)
	return g, nil
}

type blobPixel struct {
	x, y int
	v    float64
}

// Returns the largest 8-connected group of unmasked pixels above the
// threshold, via flood fill over a visited map.
func largestBlob(f *frame.Frame, threshold float64) []blobPixel {
	visited := make([]bool, len(f.Data))
	var best []blobPixel
	stack := make([]int, 0, 1024)

	for start := range f.Data {
		if visited[start] || f.Mask[start] || f.Data[start] <= threshold {
			continue
		}
		blob := []blobPixel{}
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%f.Width, i/f.Width
			blob = append(blob, blobPixel{x: x, y: y, v: f.Data[i]})
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if !f.Inside(nx, ny) {
						continue
					}
					j := ny*f.Width + nx
					if visited[j] || f.Mask[j] || f.Data[j] <= threshold {
						continue
					}
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
		if len(blob) > len(best) {
			best = blob
		}
	}
	return best
}

// Position angle measured ccw from the x axis, for use as an ellipse
// geometry seed.
func (g *Galaxy) Pa() float64 { return g.Theta }

// Returns the initial ellipse geometry and aperture derived from the
// detection.
func (g *Galaxy) InitialGeometry() (isophote.EllipseGeometry, isophote.EllipticalAperture) {
	geom := isophote.NewEllipseGeometry(g.XMed, g.YMed, 0.5*g.MajorAxis, g.Eps, g.Theta)
	return geom, geom.Aperture()
}

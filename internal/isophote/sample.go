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

	"galprof/internal/frame"
	"galprof/internal/stats"
)

// Pixel integration mode for extracting intensities along an ellipse
type IntegrMode int

const (
	IntegrBilinear IntegrMode = iota // bilinear interpolation (default)
	IntegrNearest                    // nearest-neighbor sampling
)

// Relative semi-major axis offset used for the local gradient estimate
const gradientStep = 0.1

// An intensity sample extracted along one elliptical path. The geometry is
// fixed for the lifetime of the sample; Update may be called repeatedly as
// the owning fitter adjusts it between iterations.
type Sample struct {
	Frame    *frame.Frame
	Geometry EllipseGeometry

	IntegrMode IntegrMode
	SClip      float64 // sigma-clipping threshold
	NClip      int     // sigma-clipping iterations

	// extraction results, filled in by Update
	Angles []float64 // polar angles of the retained samples
	Values []float64 // intensities of the retained samples

	Mean    float64 // sigma-clipped mean intensity
	StdDev  float64 // standard deviation of the clipped sample
	MeanErr float64 // standard error of the mean

	Gradient float64 // local radial intensity gradient d(mean)/d(sma)

	TotalPoints  int  // sample positions along the path
	ActualPoints int  // positions that produced a usable intensity
	EdgeHit      bool // true if the path left the frame
}

// Creates a sample for the given geometry, overriding its semi-major axis
// with sma.
func NewSample(f *frame.Frame, sma float64, geometry EllipseGeometry, mode IntegrMode, sclip float64, nclip int) *Sample {
	g := geometry
	g.Sma = sma
	return &Sample{
		Frame:      f,
		Geometry:   g,
		IntegrMode: mode,
		SClip:      sclip,
		NClip:      nclip,
	}
}

// Extracts intensities along the elliptical path and computes the clipped
// mean, its error, and the local radial gradient. Returns false if too few
// usable positions remain.
func (s *Sample) Update() bool {
	s.Angles, s.Values, s.TotalPoints, s.ActualPoints, s.EdgeHit = s.extract(s.Geometry.Sma)
	if s.ActualPoints < 4 {
		return false
	}

	mean, stdDev, _ := stats.SigmaClippedMean(s.Values, s.SClip, s.SClip, s.NClip)
	s.Mean, s.StdDev = mean, stdDev
	s.MeanErr = stdDev / math.Sqrt(float64(s.ActualPoints))

	// gradient from a second path slightly further out
	outSma := s.Geometry.Sma * (1 + gradientStep)
	_, outValues, _, outActual, _ := s.extract(outSma)
	if outActual >= 4 {
		outMean, _, _ := stats.SigmaClippedMean(outValues, s.SClip, s.SClip, s.NClip)
		s.Gradient = (outMean - mean) / (outSma - s.Geometry.Sma)
	} else {
		s.Gradient = 0
	}
	return true
}

// Walks the elliptical path at roughly one-pixel arc spacing, gathering
// intensities with the configured integration mode. Masked pixels are
// skipped; positions outside the frame set the edge flag.
func (s *Sample) extract(sma float64) (angles, values []float64, total, actual int, edgeHit bool) {
	n := int(math.Ceil(2 * math.Pi * sma))
	if n < 8 {
		n = 8
	}
	angles = make([]float64, 0, n)
	values = make([]float64, 0, n)

	dphi := 2 * math.Pi / float64(n)
	g := s.Geometry
	g.Sma = sma
	for i := 0; i < n; i++ {
		phi := float64(i) * dphi
		r := g.RadiusAt(phi)
		x, y := g.ToPixel(r, phi)
		if x < 0 || y < 0 || x > float64(s.Frame.Width-1) || y > float64(s.Frame.Height-1) {
			edgeHit = true
			continue
		}
		var v float64
		var ok bool
		switch s.IntegrMode {
		case IntegrNearest:
			v, ok = s.Frame.Nearest(x, y)
		default:
			v, ok = s.Frame.Bilinear(x, y)
		}
		if !ok {
			continue
		}
		angles = append(angles, phi)
		values = append(values, v)
	}
	return angles, values, n, len(values), edgeHit
}

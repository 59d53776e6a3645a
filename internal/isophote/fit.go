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
	"errors"
	"math"
	"sort"

	"galprof/internal/frame"
)

// Stop codes recorded on fitted isophotes
const (
	StopOK        = iota // fit converged
	StopMaxIter          // iteration cap reached, last sample kept
	StopNoSample         // too few usable sample positions
	StopGradient         // unusable local gradient, no correction possible
	StopOffImage         // path left the image
)

// Options controlling the isophote fit over increasing semi-major axis
type FitOptions struct {
	MinSma     float64    // innermost semi-major axis, 0 fits down to the smallest step
	MaxSma     float64    // outermost semi-major axis, 0 grows until the image edge
	Step       float64    // growth per isophote, relative to the seed sma
	Linear     bool       // linear growth law; false grows geometrically
	IntegrMode IntegrMode // pixel integration mode
	SClip      float64    // sigma-clipping threshold
	NClip      int        // sigma-clipping iterations
	MaxIter    int        // iteration cap per isophote
	Conver     float64    // convergence: largest harmonic vs. residual rms
	MaxFails   int        // consecutive invalid isophotes before stopping
}

// Default fit options matching the survey reduction settings
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Step:       0.1,
		Linear:     true,
		IntegrMode: IntegrBilinear,
		SClip:      5,
		NClip:      3,
		MaxIter:    50,
		Conver:     0.05,
		MaxFails:   3,
	}
}

// A single fitted (or sampled) elliptical isophote
type Isophote struct {
	Sample   *Sample
	Niter    int  // fit iterations spent; 0 for fixed-geometry samples
	Valid    bool // true if usable for profile work
	StopCode int
}

// Semi-major axis of the isophote in pixels
func (iso *Isophote) Sma() float64 { return iso.Sample.Geometry.Sma }

// Sigma-clipped mean intensity along the isophote
func (iso *Isophote) Intensity() float64 { return iso.Sample.Mean }

// Standard error of the mean intensity
func (iso *Isophote) IntensityErr() float64 { return iso.Sample.MeanErr }

// An ordered list of isophotes by increasing semi-major axis
type IsophoteList []*Isophote

// Returns the semi-major axis values of all isophotes, in order.
func (l IsophoteList) SmaValues() []float64 {
	res := make([]float64, len(l))
	for i, iso := range l {
		res[i] = iso.Sma()
	}
	return res
}

func (l IsophoteList) sortBySma() {
	sort.Slice(l, func(i, j int) bool { return l[i].Sma() < l[j].Sma() })
}

// Fits elliptical isophotes to a single-band image
type Ellipse struct {
	Frame    *frame.Frame
	Geometry EllipseGeometry
}

// Creates an isophote fitter seeded with the given initial geometry.
func NewEllipse(f *frame.Frame, geometry EllipseGeometry) *Ellipse {
	return &Ellipse{Frame: f, Geometry: geometry}
}

// Fits one isophote at the given semi-major axis, iteratively adjusting
// center, ellipticity and position angle until the intensity variation
// along the path is free of first and second harmonics.
func (e *Ellipse) fitIsophote(sma float64, opts FitOptions) *Isophote {
	g := e.Geometry
	g.Sma = sma

	var sample *Sample
	for iter := 1; iter <= opts.MaxIter; iter++ {
		sample = NewSample(e.Frame, sma, g, opts.IntegrMode, opts.SClip, opts.NClip)
		if !sample.Update() {
			code := StopNoSample
			if sample.EdgeHit {
				code = StopOffImage
			}
			return &Isophote{Sample: sample, Niter: iter, Valid: false, StopCode: code}
		}

		h, err := fitHarmonics(sample.Angles, sample.Values)
		if err != nil {
			return &Isophote{Sample: sample, Niter: iter, Valid: false, StopCode: StopNoSample}
		}

		which, amp := h.largest()
		if amp < opts.Conver*h.ResRMS || h.ResRMS == 0 {
			return &Isophote{Sample: sample, Niter: iter, Valid: true, StopCode: StopOK}
		}

		grad := sample.Gradient
		if grad >= 0 || math.IsNaN(grad) {
			// isophote intensity must decrease outwards for the harmonic
			// corrections to be meaningful
			return &Isophote{Sample: sample, Niter: iter, Valid: false, StopCode: StopGradient}
		}

		// apply the correction for the dominant harmonic
		// (Jedrzejewski 1987)
		sinPa, cosPa := math.Sincos(g.Pa)
		switch which {
		case 0: // a1: center shift
			g.X0 += -h.A1 * sinPa / grad
			g.Y0 += h.A1 * cosPa / grad
		case 1: // b1: center shift
			g.X0 += -h.B1 * cosPa / grad
			g.Y0 += -h.B1 * sinPa / grad
		case 2: // a2: position angle error
			q := 1 - g.Eps
			g.Pa += h.A2 * 2 * q / (sma * grad * (q*q - 1))
			if g.Pa > math.Pi {
				g.Pa -= math.Pi
			} else if g.Pa < 0 {
				g.Pa += math.Pi
			}
		case 3: // b2: ellipticity error
			q := 1 - g.Eps
			g.Eps -= h.B2 * 2 * q / (sma * grad)
			if g.Eps < 0 {
				g.Eps = 0
			} else if g.Eps > 0.95 {
				g.Eps = 0.95
			}
		}
	}

	// out of iterations: keep the last sample, usable but flagged
	return &Isophote{Sample: sample, Niter: opts.MaxIter, Valid: true, StopCode: StopMaxIter}
}

// Fits isophotes at a sequence of semi-major axis values, growing outward
// from the seed geometry and then filling inward, until the path leaves the
// image, the configured maximum is reached, or too many consecutive fits
// fail. The successful geometry of each isophote seeds the next.
func (e *Ellipse) FitImage(opts FitOptions) (IsophoteList, error) {
	sma0 := e.Geometry.Sma
	if sma0 <= 0 {
		sma0 = DefaultSma
	}
	list := IsophoteList{}

	// outward pass
	fails := 0
	sma := sma0
	for {
		if opts.MaxSma > 0 && sma > opts.MaxSma {
			break
		}
		iso := e.fitIsophote(sma, opts)
		if iso.StopCode == StopOffImage {
			break
		}
		if iso.Valid {
			list = append(list, iso)
			e.Geometry = iso.Sample.Geometry // carry the shape outward
			fails = 0
		} else {
			fails++
			if fails >= opts.MaxFails {
				break
			}
		}
		sma = grow(sma, sma0, opts, true)
	}

	// inward pass, re-using the seed geometry
	e.Geometry.Sma = sma0
	fails = 0
	sma = grow(sma0, sma0, opts, false)
	for sma > opts.MinSma && sma > 0.5 {
		iso := e.fitIsophote(sma, opts)
		if iso.Valid {
			list = append(list, iso)
			fails = 0
		} else {
			fails++
			if fails >= opts.MaxFails {
				break
			}
		}
		sma = grow(sma, sma0, opts, false)
	}

	if len(list) == 0 {
		return nil, errors.New("isophote: no isophotes could be fitted")
	}
	list.sortBySma()
	return list, nil
}

// Advances the semi-major axis by one step. In linear mode the increment is
// a fixed fraction of the seed sma; in geometric mode each isophote grows
// by the same relative amount.
func grow(sma, sma0 float64, opts FitOptions, outward bool) float64 {
	if opts.Linear {
		ds := opts.Step * sma0
		if outward {
			return sma + ds
		}
		return sma - ds
	}
	if outward {
		return sma * (1 + opts.Step)
	}
	return sma / (1 + opts.Step)
}

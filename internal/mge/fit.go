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

package mge

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Options for the multi-Gaussian fit
type FitOptions struct {
	NGauss     int     // number of Gaussian components
	OuterSlope float64 // minimum outer power-law slope, caps the widest Gaussian
	MinLevel   float64 // surface brightness floor for sector photometry
	NSectors   int     // angular sectors for photometry
}

// Defaults matching the survey reduction settings
func DefaultFitOptions() FitOptions {
	return FitOptions{
		NGauss:     11,
		OuterSlope: 4,
		MinLevel:   0,
		NSectors:   DefaultSectors,
	}
}

// The fitted multi-Gaussian expansion of one band, plus the detection
// geometry it inherited.
type Fit struct {
	Sigmas      []float64 // Gaussian dispersions along the major axis [pixels]
	TotalCounts []float64 // total counts of each component
	Qs          []float64 // axis ratio of each component
	Chi2        float64   // rms of relative residuals at the solution
	Converged   bool

	// geometry inherited from the galaxy detection
	Eps        float64
	Pa         float64
	Theta      float64
	MajorAxis  float64
	XMed, YMed float64
	XPeak      int
	YPeak      int
}

// Fits a sum of concentric Gaussians to the sector photometry. The widths
// are spaced geometrically between two fitted extremes and share a fitted
// axis ratio; the amplitudes are solved by non-negative least squares
// inside each evaluation, so the outer search runs over three parameters
// only. The outer slope constraint caps the widest Gaussian so the model
// falls at least as fast as r^-outerSlope beyond the data.
func FitSectors(phot *SectorPhot, eps float64, opts FitOptions) (*Fit, error) {
	if len(phot.Counts) < opts.NGauss {
		return nil, errors.New("mge: fewer sector measurements than Gaussian components")
	}

	rmax := 0.0
	for _, r := range phot.Radius {
		if r > rmax {
			rmax = r
		}
	}
	sigmaCap := rmax / math.Sqrt(opts.OuterSlope)
	logSigMinLo, logSigMinHi := math.Log(minSectorRadius), math.Log(sigmaCap/2)
	logSigMaxLo, logSigMaxHi := math.Log(minSectorRadius*2), math.Log(sigmaCap)

	q0 := 1 - eps
	if q0 < 0.05 {
		q0 = 0.05
	}

	// precompute the sample positions in the major-axis frame
	n := len(phot.Counts)
	xp := make([]float64, n)
	yp := make([]float64, n)
	for i := range phot.Counts {
		s, c := math.Sincos(phot.Angle[i] * math.Pi / 180)
		xp[i] = phot.Radius[i] * c
		yp[i] = phot.Radius[i] * s
	}

	design := make([]float64, n*opts.NGauss)
	sigmas := make([]float64, opts.NGauss)

	eval := func(x []float64) (chi float64, amps []float64) {
		logSigMin, logSigMax, q := x[0], x[1], x[2]
		if logSigMin < logSigMinLo || logSigMin > logSigMinHi ||
			logSigMax < logSigMaxLo || logSigMax > logSigMaxHi ||
			logSigMax <= logSigMin || q < 0.05 || q > 1 {
			return 1e30, nil
		}
		for j := 0; j < opts.NGauss; j++ {
			f := float64(j) / float64(opts.NGauss-1)
			sigmas[j] = math.Exp(logSigMin + f*(logSigMax-logSigMin))
		}
		for i := 0; i < n; i++ {
			for j := 0; j < opts.NGauss; j++ {
				arg := (xp[i]*xp[i] + yp[i]*yp[i]/(q*q)) / (2 * sigmas[j] * sigmas[j])
				design[i*opts.NGauss+j] = math.Exp(-arg)
			}
		}
		amps = nnls(design, phot.Counts, n, opts.NGauss)

		sumSq := 0.0
		for i := 0; i < n; i++ {
			model := 0.0
			for j := 0; j < opts.NGauss; j++ {
				model += amps[j] * design[i*opts.NGauss+j]
			}
			rel := (model - phot.Counts[i]) / phot.Counts[i]
			sumSq += rel * rel
		}
		return math.Sqrt(sumSq / float64(n)), amps
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			chi, _ := eval(x)
			return chi
		},
	}
	x0 := []float64{
		math.Log(1.0),
		math.Log(sigmaCap / 2),
		q0,
	}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})

	fit := &Fit{Eps: eps}
	if err != nil {
		fit.Converged = false
		return fit, nil
	}

	chi, amps := eval(result.X)
	if amps == nil {
		fit.Converged = false
		return fit, nil
	}
	q := result.X[2]
	fit.Chi2 = chi
	fit.Converged = true
	fit.Sigmas = make([]float64, opts.NGauss)
	fit.TotalCounts = make([]float64, opts.NGauss)
	fit.Qs = make([]float64, opts.NGauss)
	copy(fit.Sigmas, sigmas)
	for j := range amps {
		fit.TotalCounts[j] = 2 * math.Pi * sigmas[j] * sigmas[j] * q * amps[j]
		fit.Qs[j] = q
	}
	return fit, nil
}

// Evaluates the fitted expansion at an elliptical radius along the major
// axis.
func (f *Fit) SurfaceBrightness(r float64) float64 {
	sum := 0.0
	for j := range f.Sigmas {
		peak := f.TotalCounts[j] / (2 * math.Pi * f.Sigmas[j] * f.Sigmas[j] * f.Qs[j])
		sum += peak * math.Exp(-r*r/(2*f.Sigmas[j]*f.Sigmas[j]))
	}
	return sum
}

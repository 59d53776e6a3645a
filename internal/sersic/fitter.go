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

package sersic

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"galprof/internal/profile"
)

// Options controlling the multi-start fit
type Options struct {
	NBall    int     // number of randomized starting points
	Chi2Fail float64 // chi^2 assigned to trials that do not converge
	MaxIter  int     // iteration cap per trial
	Seed     uint64  // RNG seed for reproducible draws
	FixAlpha bool
	FixBeta  bool
}

// Default fit options
func DefaultOptions() Options {
	return Options{
		NBall:    10,
		Chi2Fail: 1e6,
		MaxIter:  200,
		Seed:     1,
	}
}

// The outcome of a Sersic fit. When Success is false the parameter values
// hold the best attempt and Chi2 equals the failure value; the input data
// remain available either way.
type Result struct {
	Success bool
	Values  [NParams]float64
	Errors  [NParams]float64          // 0 for fixed or unconstrained parameters
	Cov     [NParams][NParams]float64 // full parameter covariance, 0 rows/cols for fixed parameters
	Chi2    float64                   // reduced chi^2
	Dof     int

	// Stacked input data, in flux units relative to the zero point
	Radius  []float64
	Flux    []float64
	FluxErr []float64
	BandIdx []int

	Model *Model
	Phot  map[string]Phot
}

// Model surface brightness [flux units] for one band at the given radii.
func (r *Result) EvalBand(radii []float64, band int) []float64 {
	return r.Model.EvalBand(radii, band, r.Values[:])
}

// Fits the wavelength-dependent Sersic model to a surface-brightness
// profile. The fit runs in flux space, launching opts.NBall randomized
// trials and keeping the lowest-chi^2 solution.
func FitProfile(p *profile.SBProfile, psfSigma [3]float64, opts Options) (*Result, error) {
	m := NewModel(psfSigma, opts.FixAlpha, opts.FixBeta)

	var radius, flux, fluxErr []float64
	var bandIdx []int
	for b, band := range Bands {
		mu, ok := p.Mu[band]
		if !ok {
			continue
		}
		muErr := p.MuErr[band]
		for i, sma := range p.Sma {
			f := profile.MuToFlux(mu[i])
			radius = append(radius, sma)
			flux = append(flux, f)
			fluxErr = append(fluxErr, profile.MuErrToFluxErr(f, muErr[i]))
			bandIdx = append(bandIdx, b)
		}
	}
	if len(radius) <= NParams {
		return nil, errors.New("sersic: not enough surface brightness points to fit")
	}

	res := &Result{
		Model:   m,
		Radius:  radius,
		Flux:    flux,
		FluxErr: fluxErr,
		BandIdx: bandIdx,
		Dof:     len(radius) - NParams,
		Chi2:    opts.Chi2Fail,
	}

	var free []int
	for i := 0; i < NParams; i++ {
		if !m.Fixed(i) {
			free = append(free, i)
		}
	}

	lm := &lmProblem{
		eval:    func(pv []float64) []float64 { return m.Eval(radius, bandIdx, pv) },
		y:       flux,
		sigma:   fluxErr,
		bounds:  m.Bounds(),
		free:    free,
		maxIter: opts.MaxIter,
	}

	src := rand.NewSource(opts.Seed)
	bounds := m.Bounds()
	p0 := m.DefaultParams()
	copy(res.Values[:], p0)

	best := math.Inf(1)
	var bestP []float64
	var bestCov *mat.SymDense
	for trial := 0; trial < opts.NBall; trial++ {
		start := drawStart(p0, bounds, free, src)
		sol, cov, ok := lm.run(start)
		if !ok {
			continue
		}
		chi2 := chiSquared(lm.residuals(sol)) / float64(res.Dof)
		if math.IsNaN(chi2) || chi2 >= best {
			continue
		}
		best, bestP, bestCov = chi2, sol, cov
	}

	if bestP == nil {
		return res, nil // no trial converged; Success stays false
	}

	// polish: one more run from the winner for the final covariance
	if sol, cov, ok := lm.run(bestP); ok {
		if chi2 := chiSquared(lm.residuals(sol)) / float64(res.Dof); !math.IsNaN(chi2) && chi2 <= best {
			best, bestP, bestCov = chi2, sol, cov
		}
	}

	res.Success = true
	res.Chi2 = best
	copy(res.Values[:], bestP)
	for c, k := range free {
		for d, l := range free {
			res.Cov[k][l] = bestCov.At(c, d)
		}
		if v := bestCov.At(c, c); v > 0 {
			res.Errors[k] = math.Sqrt(v)
		}
	}
	res.Phot = integratePhot(res)
	return res, nil
}

// Draws one randomized starting point: bounded parameters uniform within
// their bounds, unconstrained ones perturbed by 10% Gaussian scatter.
func drawStart(p0 []float64, bounds [NParams]Bound, free []int, src rand.Source) []float64 {
	start := append([]float64(nil), p0...)
	for _, k := range free {
		if b := bounds[k]; b.Closed() {
			start[k] = distuv.Uniform{Min: b.Lo, Max: b.Hi, Src: src}.Rand()
		} else {
			sigma := 0.1 * math.Abs(p0[k])
			if sigma == 0 {
				sigma = 0.1
			}
			start[k] = distuv.Normal{Mu: p0[k], Sigma: sigma, Src: src}.Rand()
		}
	}
	return start
}

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

// Package sersic fits a wavelength-dependent Sersic brightness profile to
// multi-band surface-brightness measurements and integrates it into total
// photometry.
package sersic

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Effective wavelengths of the DECam filters, and the reference wavelength
// tying the bands together [Angstrom]
const (
	LambdaG   = 4890.0
	LambdaR   = 6470.0
	LambdaZ   = 9196.0
	LambdaRef = 6470.0
)

// The three bands modeled jointly
var Bands = [3]string{"g", "r", "z"}

// Parameter vector layout
const (
	ParamNref = iota
	ParamR50ref
	ParamAlpha
	ParamBeta
	ParamMu50G
	ParamMu50R
	ParamMu50Z
	NParams
)

// Names of the model parameters, index-aligned with the vector layout
var ParamNames = [NParams]string{"nref", "r50ref", "alpha", "beta", "mu50_g", "mu50_r", "mu50_z"}

// A closed parameter bound. Unbounded parameters carry infinities.
type Bound struct {
	Lo, Hi float64
}

// Returns true if the parameter is constrained on both sides.
func (b Bound) Closed() bool {
	return !math.IsInf(b.Lo, -1) && !math.IsInf(b.Hi, 1)
}

// A surface-brightness model of three Sersic profiles tied together by a
// Sersic index and half-light radius that vary as power laws of wavelength.
type Model struct {
	Lambda    [3]float64 // effective wavelength per band [Angstrom]
	LambdaRef float64
	PSFSigma  [3]float64 // per-band PSF width [arcsec], 0 disables smoothing
	FixAlpha  bool       // hold alpha at its default instead of fitting
	FixBeta   bool       // hold beta at its default instead of fitting
}

// Creates a model for the g,r,z bands with the given per-band PSF widths.
func NewModel(psfSigma [3]float64, fixAlpha, fixBeta bool) *Model {
	return &Model{
		Lambda:    [3]float64{LambdaG, LambdaR, LambdaZ},
		LambdaRef: LambdaRef,
		PSFSigma:  psfSigma,
		FixAlpha:  fixAlpha,
		FixBeta:   fixBeta,
	}
}

// Default parameter vector: an n=4 profile with 10 arcsec half-light
// radius, no wavelength dependence, unit amplitudes.
func (m *Model) DefaultParams() []float64 {
	return []float64{4, 10, 0, 0, 1, 1, 1}
}

// Fit bounds per parameter; the amplitudes are unconstrained.
func (m *Model) Bounds() [NParams]Bound {
	inf := math.Inf(1)
	return [NParams]Bound{
		{0.1, 8},     // nref
		{1e-3, 30},   // r50ref [arcsec]
		{-1, 1},      // alpha
		{-1, 1},      // beta
		{-inf, inf},  // mu50_g
		{-inf, inf},  // mu50_r
		{-inf, inf},  // mu50_z
	}
}

// Returns true if the parameter with the given index is held fixed.
func (m *Model) Fixed(i int) bool {
	return (i == ParamAlpha && m.FixAlpha) || (i == ParamBeta && m.FixBeta)
}

// Sersic index at the given wavelength
func (m *Model) SersicN(nref, lambda, alpha float64) float64 {
	return nref * math.Pow(lambda/m.LambdaRef, alpha)
}

// Half-light radius at the given wavelength
func (m *Model) R50(r50ref, lambda, beta float64) float64 {
	return r50ref * math.Pow(lambda/m.LambdaRef, beta)
}

// The Sersic shape coefficient b_n, defined by the regularized incomplete
// gamma function: P(2n, b_n) = 1/2.
func BN(n float64) float64 {
	return mathext.GammaIncRegInv(2*n, 0.5)
}

// Evaluates the model for one band at the given radii [arcsec]. If the
// band has a positive PSF width, the inner profile is smoothed with a 1-D
// Gaussian of that width; radii beyond five PSF widths keep the analytic
// value.
func (m *Model) EvalBand(r []float64, band int, p []float64) []float64 {
	n := m.SersicN(p[ParamNref], m.Lambda[band], p[ParamAlpha])
	r50 := m.R50(p[ParamR50ref], m.Lambda[band], p[ParamBeta])
	mu50 := p[ParamMu50G+band]
	bn := BN(n)

	mu := make([]float64, len(r))
	for i, ri := range r {
		mu[i] = mu50 * math.Exp(-bn*(math.Pow(ri/r50, 1/n)-1))
	}

	psf := m.PSFSigma[band]
	if psf <= 0 {
		return mu
	}

	// Gaussian smoothing in radius space with normalized weights; the
	// normalization doubles as an extend boundary at both ends
	smooth := make([]float64, len(r))
	for i, ri := range r {
		if ri > 5*psf {
			smooth[i] = mu[i]
			continue
		}
		sum, wsum := 0.0, 0.0
		for j, rj := range r {
			d := (ri - rj) / psf
			if d < -4 || d > 4 {
				continue
			}
			w := math.Exp(-0.5 * d * d)
			sum += w * mu[j]
			wsum += w
		}
		if wsum > 0 {
			smooth[i] = sum / wsum
		} else {
			smooth[i] = mu[i]
		}
	}
	return smooth
}

// Evaluates the model at stacked data points, where bandIdx maps each
// point to its band.
func (m *Model) Eval(r []float64, bandIdx []int, p []float64) []float64 {
	out := make([]float64, len(r))
	for b := 0; b < 3; b++ {
		var radii []float64
		var where []int
		for i, bi := range bandIdx {
			if bi == b {
				radii = append(radii, r[i])
				where = append(where, i)
			}
		}
		if len(radii) == 0 {
			continue
		}
		mu := m.EvalBand(radii, b, p)
		for k, i := range where {
			out[i] = mu[k]
		}
	}
	return out
}

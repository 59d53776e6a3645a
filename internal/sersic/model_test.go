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
	"math"
	"testing"
)

func TestBN(t *testing.T) {
	// classic values: b_1=1.6783, b_4=7.6693
	if b := BN(1); math.Abs(b-1.6783) > 1e-3 {
		t.Errorf("b_1=%f; want 1.6783", b)
	}
	if b := BN(4); math.Abs(b-7.6693) > 1e-3 {
		t.Errorf("b_4=%f; want 7.6693", b)
	}
}

func TestWavelengthScaling(t *testing.T) {
	m := NewModel([3]float64{}, false, false)
	// alpha=0, beta=0: no wavelength dependence
	if n := m.SersicN(4, LambdaG, 0); n != 4 {
		t.Errorf("n=%f; want 4", n)
	}
	if r := m.R50(10, LambdaZ, 0); r != 10 {
		t.Errorf("r50=%f; want 10", r)
	}
	// at the reference wavelength the exponents never matter
	if n := m.SersicN(4, LambdaRef, 0.5); n != 4 {
		t.Errorf("n=%f; want 4 at reference wavelength", n)
	}
	// bluer band with positive alpha has lower n
	if n := m.SersicN(4, LambdaG, 0.5); n >= 4 {
		t.Errorf("n=%f; want < 4 for g band with alpha=0.5", n)
	}
}

func TestEvalBandAtHalfLightRadius(t *testing.T) {
	m := NewModel([3]float64{}, false, false)
	p := []float64{4, 10, 0, 0, 7, 8, 9}
	for b := 0; b < 3; b++ {
		mu := m.EvalBand([]float64{10}, b, p)
		want := p[ParamMu50G+b]
		if math.Abs(mu[0]-want) > 1e-12 {
			t.Errorf("band %d: mu(r50)=%f; want exactly %f", b, mu[0], want)
		}
	}
}

func TestEvalBandMonotone(t *testing.T) {
	m := NewModel([3]float64{}, false, false)
	p := []float64{2, 5, 0, 0, 100, 100, 100}
	r := []float64{0.5, 1, 2, 4, 8, 16, 32}
	mu := m.EvalBand(r, 1, p)
	for i := 1; i < len(mu); i++ {
		if mu[i] >= mu[i-1] {
			t.Errorf("profile not decreasing at r=%f", r[i])
		}
	}
}

func TestEvalBandPSFSmoothing(t *testing.T) {
	psf := 1.5
	m := NewModel([3]float64{psf, psf, psf}, false, false)
	m0 := NewModel([3]float64{}, false, false)
	p := []float64{4, 5, 0, 0, 100, 100, 100}

	r := make([]float64, 100)
	for i := range r {
		r[i] = 0.1 + 0.3*float64(i)
	}
	conv := m.EvalBand(r, 1, p)
	raw := m0.EvalBand(r, 1, p)

	// smoothing suppresses the cusp at small radii
	if conv[0] >= raw[0] {
		t.Errorf("conv(r=%.1f)=%f; want below the analytic %f", r[0], conv[0], raw[0])
	}
	// beyond 5 psf widths the analytic profile is kept exactly
	for i := range r {
		if r[i] > 5*psf && conv[i] != raw[i] {
			t.Errorf("r=%f: conv=%f differs from analytic %f", r[i], conv[i], raw[i])
		}
	}
}

func TestEvalStacksBands(t *testing.T) {
	m := NewModel([3]float64{}, false, false)
	p := []float64{4, 10, 0, 0, 7, 8, 9}
	r := []float64{10, 10, 10}
	bandIdx := []int{0, 1, 2}
	mu := m.Eval(r, bandIdx, p)
	for b := 0; b < 3; b++ {
		if math.Abs(mu[b]-p[ParamMu50G+b]) > 1e-12 {
			t.Errorf("stacked band %d: mu=%f; want %f", b, mu[b], p[ParamMu50G+b])
		}
	}
}

func TestFixedParams(t *testing.T) {
	m := NewModel([3]float64{}, true, false)
	if !m.Fixed(ParamAlpha) {
		t.Errorf("alpha not fixed")
	}
	if m.Fixed(ParamBeta) {
		t.Errorf("beta fixed unexpectedly")
	}
	if m.Fixed(ParamNref) {
		t.Errorf("nref fixed unexpectedly")
	}
}

func TestBounds(t *testing.T) {
	m := NewModel([3]float64{}, false, false)
	b := m.Bounds()
	if b[ParamNref].Lo != 0.1 || b[ParamNref].Hi != 8 {
		t.Errorf("nref bounds=%+v; want [0.1,8]", b[ParamNref])
	}
	if b[ParamR50ref].Lo != 1e-3 || b[ParamR50ref].Hi != 30 {
		t.Errorf("r50ref bounds=%+v; want [1e-3,30]", b[ParamR50ref])
	}
	if !b[ParamAlpha].Closed() || !b[ParamBeta].Closed() {
		t.Errorf("alpha/beta should be bounded")
	}
	if b[ParamMu50R].Closed() {
		t.Errorf("mu50 should be unbounded")
	}
}

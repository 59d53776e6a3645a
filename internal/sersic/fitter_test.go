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

	"galprof/internal/profile"
)

// Builds a noise-free surface-brightness profile from known parameters.
func makeProfile(params []float64, muErr float64) *profile.SBProfile {
	m := NewModel([3]float64{}, false, false)
	sma := make([]float64, 30)
	for i := range sma {
		sma[i] = 0.5 + 1.0*float64(i)
	}
	p := &profile.SBProfile{
		Sma:   sma,
		Mu:    map[string][]float64{},
		MuErr: map[string][]float64{},
		Bands: []string{"g", "r", "z"},
	}
	for b, band := range Bands {
		flux := m.EvalBand(sma, b, params)
		mus := make([]float64, len(sma))
		errs := make([]float64, len(sma))
		for i, f := range flux {
			mus[i] = profile.FluxToMu(f)
			errs[i] = muErr
		}
		p.Mu[band] = mus
		p.MuErr[band] = errs
	}
	return p
}

func TestFitProfileRecoversTruth(t *testing.T) {
	truth := []float64{4, 5, 0, 0, profile.MuToFlux(21), profile.MuToFlux(20.5), profile.MuToFlux(20)}
	p := makeProfile(truth, 0.03)

	res, err := FitProfile(p, [3]float64{}, DefaultOptions())
	if err != nil {
		t.Fatalf("FitProfile: %s", err.Error())
	}
	if !res.Success {
		t.Fatalf("fit failed on noise-free data")
	}
	if math.Abs(res.Values[ParamNref]-4)/4 > 0.01 {
		t.Errorf("nref=%f; want ~4", res.Values[ParamNref])
	}
	if math.Abs(res.Values[ParamR50ref]-5)/5 > 0.01 {
		t.Errorf("r50ref=%f; want ~5", res.Values[ParamR50ref])
	}
	if math.Abs(res.Values[ParamAlpha]) > 0.01 {
		t.Errorf("alpha=%f; want ~0", res.Values[ParamAlpha])
	}
	if math.Abs(res.Values[ParamBeta]) > 0.01 {
		t.Errorf("beta=%f; want ~0", res.Values[ParamBeta])
	}
	if res.Chi2 > 0.1 {
		t.Errorf("chi2=%f; want ~0 on noise-free data", res.Chi2)
	}
	if res.Dof != 3*30-NParams {
		t.Errorf("dof=%d; want %d", res.Dof, 3*30-NParams)
	}
	for i := 0; i < NParams; i++ {
		if e := res.Errors[i]; math.Abs(res.Cov[i][i]-e*e) > 1e-12*e*e {
			t.Errorf("cov[%d][%d]=%g does not match error %g", i, i, res.Cov[i][i], e)
		}
		for j := 0; j < NParams; j++ {
			if res.Cov[i][j] != res.Cov[j][i] {
				t.Errorf("covariance not symmetric at (%d,%d)", i, j)
			}
		}
	}
}

func TestFitProfileFixedExponents(t *testing.T) {
	truth := []float64{2, 8, 0, 0, 10, 10, 10}
	p := makeProfile(truth, 0.03)

	opts := DefaultOptions()
	opts.FixAlpha = true
	opts.FixBeta = true
	res, err := FitProfile(p, [3]float64{}, opts)
	if err != nil {
		t.Fatalf("FitProfile: %s", err.Error())
	}
	if !res.Success {
		t.Fatalf("fit failed")
	}
	if res.Values[ParamAlpha] != 0 || res.Values[ParamBeta] != 0 {
		t.Errorf("alpha=%f beta=%f; want held at 0", res.Values[ParamAlpha], res.Values[ParamBeta])
	}
	if res.Errors[ParamAlpha] != 0 || res.Errors[ParamBeta] != 0 {
		t.Errorf("fixed parameters must not report uncertainties")
	}
	for j := 0; j < NParams; j++ {
		if res.Cov[ParamAlpha][j] != 0 || res.Cov[j][ParamBeta] != 0 {
			t.Errorf("fixed parameters must have zero covariance rows and columns")
		}
	}
}

func TestFitProfileFailurePreservesData(t *testing.T) {
	truth := []float64{4, 5, 0, 0, 10, 10, 10}
	p := makeProfile(truth, 0) // zero errors poison every trial

	opts := DefaultOptions()
	opts.NBall = 1
	res, err := FitProfile(p, [3]float64{}, opts)
	if err != nil {
		t.Fatalf("FitProfile: %s", err.Error())
	}
	if res.Success {
		t.Errorf("fit reported success with unusable weights")
	}
	if res.Chi2 != opts.Chi2Fail {
		t.Errorf("chi2=%f; want failure value %f", res.Chi2, opts.Chi2Fail)
	}
	if len(res.Radius) != 3*30 || len(res.Flux) != 3*30 {
		t.Errorf("input data not preserved on failure")
	}
	if res.Phot != nil {
		t.Errorf("photometry computed for a failed fit")
	}
}

func TestFitProfileReproducible(t *testing.T) {
	truth := []float64{3, 6, 0.1, -0.1, 20, 25, 30}
	p := makeProfile(truth, 0.03)

	opts := DefaultOptions()
	a, err := FitProfile(p, [3]float64{}, opts)
	if err != nil {
		t.Fatalf("FitProfile: %s", err.Error())
	}
	b, err := FitProfile(p, [3]float64{}, opts)
	if err != nil {
		t.Fatalf("FitProfile: %s", err.Error())
	}
	for i := 0; i < NParams; i++ {
		if a.Values[i] != b.Values[i] {
			t.Errorf("param %s differs between identical runs: %f vs %f",
				ParamNames[i], a.Values[i], b.Values[i])
		}
	}
}

func TestFitProfileTooFewPoints(t *testing.T) {
	p := &profile.SBProfile{
		Sma:   []float64{1, 2},
		Mu:    map[string][]float64{"r": {20, 21}},
		MuErr: map[string][]float64{"r": {0.03, 0.03}},
	}
	if _, err := FitProfile(p, [3]float64{}, DefaultOptions()); err == nil {
		t.Errorf("fit accepted fewer points than parameters")
	}
}

func TestIntegratePhot(t *testing.T) {
	truth := []float64{4, 5, 0, 0, 50, 50, 50}
	p := makeProfile(truth, 0.03)

	res, err := FitProfile(p, [3]float64{}, DefaultOptions())
	if err != nil {
		t.Fatalf("FitProfile: %s", err.Error())
	}
	if !res.Success {
		t.Fatalf("fit failed")
	}
	for _, band := range Bands {
		ph, ok := res.Phot[band]
		if !ok {
			t.Fatalf("no photometry for band %s", band)
		}
		if ph.FluxObs <= 0 {
			t.Errorf("band %s: fluxObs=%f; want positive", band, ph.FluxObs)
		}
		if ph.Flux <= ph.FluxObs {
			t.Errorf("band %s: total flux %f not above observed %f", band, ph.Flux, ph.FluxObs)
		}
		if ph.Mag >= ph.MagObs {
			t.Errorf("band %s: total mag %f not brighter than observed %f", band, ph.Mag, ph.MagObs)
		}
		// dm_in/dm_out/dm are magnitudes of the extrapolated light itself
		extra := profile.MuToFlux(ph.DmIn) + profile.MuToFlux(ph.DmOut)
		missed := ph.Flux - ph.FluxObs
		if math.Abs(extra-missed)/missed > 1e-6 {
			t.Errorf("band %s: dm_in+dm_out flux %f; want %f", band, extra, missed)
		}
		if got := profile.MuToFlux(ph.Dm); math.Abs(got-missed)/missed > 1e-6 {
			t.Errorf("band %s: dm flux %f; want %f", band, got, missed)
		}
		if ph.DmIn <= ph.Mag || ph.DmOut <= ph.Mag {
			t.Errorf("band %s: dm_in=%f dm_out=%f brighter than total mag %f", band, ph.DmIn, ph.DmOut, ph.Mag)
		}
	}
}

func TestCurveOfGrowthConstantDisk(t *testing.T) {
	// I(r)=c over [0,R]: flux = pi R^2 c
	r := make([]float64, 51)
	sb := make([]float64, 51)
	for i := range r {
		r[i] = float64(i) * 0.2
		sb[i] = 3
	}
	flux := curveOfGrowth(r, sb)
	want := math.Pi * 10 * 10 * 3
	if math.Abs(flux-want)/want > 1e-6 {
		t.Errorf("flux=%f; want %f", flux, want)
	}
}

func TestSpacingHelpers(t *testing.T) {
	lin := linspace(10, 5)
	if lin[0] != 0 || lin[4] != 10 || math.Abs(lin[2]-5) > 1e-12 {
		t.Errorf("linspace=%v", lin)
	}
	lg := logspace(1, 1000, 4)
	for i, want := range []float64{1, 10, 100, 1000} {
		if math.Abs(lg[i]-want)/want > 1e-9 {
			t.Errorf("logspace[%d]=%f; want %f", i, lg[i], want)
		}
	}
}

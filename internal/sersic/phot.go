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

	"gonum.org/v1/gonum/integrate"

	"galprof/internal/profile"
)

// Per-band integrated photometry from a fitted model. Fluxes are in the
// native units of the surface brightness zero point; magnitudes in mag.
type Phot struct {
	FluxObs float64 // 2*pi*r*I(r) over the measured radial range
	Flux    float64 // FluxObs plus the modeled light inside and outside it
	MagObs  float64
	Mag     float64
	DmIn    float64 // magnitude of the light interior to the innermost measured radius
	DmOut   float64 // magnitude of the light exterior to the outermost measured radius
	Dm      float64 // magnitude of the combined extrapolated light
}

const extrapPoints = 50

// Flux of an axisymmetric profile: 2*pi * Simpson integral of r*I(r).
func curveOfGrowth(r, sb []float64) float64 {
	y := make([]float64, len(r))
	for i := range r {
		y[i] = r[i] * sb[i]
	}
	return 2 * math.Pi * integrate.Simpsons(r, y)
}

// Evenly spaced points on [0, stop], inclusive.
func linspace(stop float64, n int) []float64 {
	out := make([]float64, n)
	step := stop / float64(n-1)
	for i := range out {
		out[i] = float64(i) * step
	}
	out[n-1] = stop
	return out
}

// Logarithmically spaced points from start to stop, inclusive.
func logspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	lo, hi := math.Log10(start), math.Log10(stop)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, lo+float64(i)*step)
	}
	return out
}

// Integrates the observed and extrapolated light per band. Inward of the
// innermost and outward of the outermost measured radius the fitted model
// supplies the missing light, the outward leg extending to 1000 arcsec.
func integratePhot(res *Result) map[string]Phot {
	phot := make(map[string]Phot, len(Bands))
	for b, band := range Bands {
		var r, sb []float64
		for i, bi := range res.BandIdx {
			if bi == b {
				r = append(r, res.Radius[i])
				sb = append(sb, res.Flux[i])
			}
		}
		if len(r) < 3 {
			continue
		}

		obs := curveOfGrowth(r, sb)

		rIn := linspace(r[0], extrapPoints)
		fluxIn := curveOfGrowth(rIn, res.EvalBand(rIn, b))

		rOut := logspace(r[len(r)-1], 1000, extrapPoints)
		fluxOut := curveOfGrowth(rOut, res.EvalBand(rOut, b))

		total := obs + fluxIn + fluxOut
		p := Phot{
			FluxObs: obs,
			Flux:    total,
		}
		if obs > 0 {
			p.MagObs = profile.FluxToMu(obs)
		}
		if total > 0 {
			p.Mag = profile.FluxToMu(total)
		}
		if fluxIn > 0 {
			p.DmIn = profile.FluxToMu(fluxIn)
		}
		if fluxOut > 0 {
			p.DmOut = profile.FluxToMu(fluxOut)
		}
		if fluxIn+fluxOut > 0 {
			p.Dm = profile.FluxToMu(fluxIn + fluxOut)
		}
		phot[band] = p
	}
	return phot
}

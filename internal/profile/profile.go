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

// Package profile assembles per-band isophote intensities into aligned
// surface-brightness profiles in magnitude units.
package profile

import (
	"errors"
	"math"

	"galprof/internal/isophote"
)

// Survey zeropoint: 22.5 mag corresponds to a flux of 1 nanomaggie
const ZeroPoint = 22.5

// Default pixel scale of the survey imaging [arcsec/pixel]
const DefaultPixScale = 0.262

// Default floor on magnitude errors [mag]
const DefaultMinErr = 0.03

// A multi-band surface-brightness profile with shared radii. Mu and MuErr
// are keyed by band and aligned index-by-index with Sma.
type SBProfile struct {
	Sma      []float64            // semi-major axis [arcsec]
	Mu       map[string][]float64 // surface brightness [mag/arcsec^2]
	MuErr    map[string][]float64 // surface brightness error, floored [mag]
	Bands    []string
	Redshift float64
	PSFSigma map[string]float64 // per-band PSF width [arcsec]
}

// Converts a linear flux to a magnitude relative to the survey zeropoint.
func FluxToMu(flux float64) float64 {
	return ZeroPoint - 2.5*math.Log10(flux)
}

// Converts a magnitude back to linear flux.
func MuToFlux(mu float64) float64 {
	return math.Pow(10, -0.4*(mu-ZeroPoint))
}

// Propagates a linear flux error into magnitude space.
func FluxErrToMuErr(flux, fluxErr float64) float64 {
	return 2.5 / math.Ln10 * fluxErr / flux
}

// Propagates a magnitude error into linear flux space.
func MuErrToFluxErr(flux, muErr float64) float64 {
	return 0.4 * math.Ln10 * flux * muErr
}

// Assembles the per-band isophote lists into one aligned profile. Radii
// where any band lacks a positive intensity are dropped in all bands, so
// the arrays stay index-aligned. Magnitude errors are floored at minErr.
func Assemble(isofits map[string]isophote.IsophoteList, bands []string, pixscale, minErr, redshift float64, psfSigma map[string]float64) (*SBProfile, error) {
	if len(bands) == 0 {
		return nil, errors.New("profile: no bands")
	}
	ref := isofits[bands[0]]
	for _, b := range bands {
		if len(isofits[b]) != len(ref) {
			return nil, errors.New("profile: band isophote lists are not aligned")
		}
	}
	if minErr <= 0 {
		minErr = DefaultMinErr
	}
	if pixscale <= 0 {
		pixscale = DefaultPixScale
	}

	p := &SBProfile{
		Mu:       map[string][]float64{},
		MuErr:    map[string][]float64{},
		Bands:    bands,
		Redshift: redshift,
		PSFSigma: psfSigma,
	}
	for i := range ref {
		usable := true
		for _, b := range bands {
			iso := isofits[b][i]
			if !iso.Valid || iso.Intensity() <= 0 {
				usable = false
				break
			}
		}
		if !usable {
			continue
		}
		p.Sma = append(p.Sma, ref[i].Sma()*pixscale)
		for _, b := range bands {
			iso := isofits[b][i]
			mu := FluxToMu(iso.Intensity())
			muErr := FluxErrToMuErr(iso.Intensity(), iso.IntensityErr())
			if muErr < minErr {
				muErr = minErr
			}
			p.Mu[b] = append(p.Mu[b], mu)
			p.MuErr[b] = append(p.MuErr[b], muErr)
		}
	}
	if len(p.Sma) == 0 {
		return nil, errors.New("profile: no usable isophotes")
	}
	return p, nil
}

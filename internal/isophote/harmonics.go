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

	"gonum.org/v1/gonum/mat"
)

// First and second harmonic amplitudes of the intensity variation along an
// elliptical path. For a perfect isophote all four amplitudes vanish; each
// nonzero amplitude maps to an error in one geometry parameter
// (Jedrzejewski 1987).
type harmonics struct {
	Y0     float64 // mean level
	A1, B1 float64 // sin(phi), cos(phi) amplitudes -> center offsets
	A2, B2 float64 // sin(2phi), cos(2phi) amplitudes -> pa, eps errors
	ResRMS float64 // rms of the residuals after harmonic removal
}

// Fits y(phi) = y0 + a1 sin(phi) + b1 cos(phi) + a2 sin(2phi) + b2 cos(2phi)
// to the sampled intensities by linear least squares.
func fitHarmonics(angles, values []float64) (*harmonics, error) {
	n := len(values)
	if n < 5 {
		return nil, errors.New("isophote: too few samples for harmonic fit")
	}

	a := mat.NewDense(n, 5, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		s1, c1 := math.Sincos(angles[i])
		s2, c2 := math.Sincos(2 * angles[i])
		a.Set(i, 0, 1)
		a.Set(i, 1, s1)
		a.Set(i, 2, c1)
		a.Set(i, 3, s2)
		a.Set(i, 4, c2)
		b.SetVec(i, values[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return nil, err
	}

	h := &harmonics{
		Y0: c.AtVec(0),
		A1: c.AtVec(1), B1: c.AtVec(2),
		A2: c.AtVec(3), B2: c.AtVec(4),
	}

	sumSq := float64(0)
	for i := 0; i < n; i++ {
		s1, c1 := math.Sincos(angles[i])
		s2, c2 := math.Sincos(2 * angles[i])
		model := h.Y0 + h.A1*s1 + h.B1*c1 + h.A2*s2 + h.B2*c2
		diff := values[i] - model
		sumSq += diff * diff
	}
	h.ResRMS = math.Sqrt(sumSq / float64(n))
	return h, nil
}

// Returns the index (0..3 for a1,b1,a2,b2) and magnitude of the largest
// harmonic amplitude.
func (h *harmonics) largest() (index int, amplitude float64) {
	amps := [4]float64{h.A1, h.B1, h.A2, h.B2}
	index, amplitude = 0, math.Abs(amps[0])
	for i, a := range amps {
		if math.Abs(a) > amplitude {
			index, amplitude = i, math.Abs(a)
		}
	}
	return index, amplitude
}

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
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solves min ||Ax-b|| subject to x>=0 with the Lawson-Hanson active-set
// method. a is row-major with n rows and m columns. Returns the m
// non-negative coefficients.
func nnls(a []float64, b []float64, n, m int) []float64 {
	x := make([]float64, m)
	passive := make([]bool, m)
	w := make([]float64, m)
	resid := make([]float64, n)

	const maxOuter = 3 // Lawson-Hanson bound on restarts per variable
	for outer := 0; outer < maxOuter*m; outer++ {
		// gradient w = A^T (b - Ax)
		for i := 0; i < n; i++ {
			s := b[i]
			for j := 0; j < m; j++ {
				s -= a[i*m+j] * x[j]
			}
			resid[i] = s
		}
		best, bestW := -1, 1e-10
		for j := 0; j < m; j++ {
			if passive[j] {
				continue
			}
			w[j] = 0
			for i := 0; i < n; i++ {
				w[j] += a[i*m+j] * resid[i]
			}
			if w[j] > bestW {
				best, bestW = j, w[j]
			}
		}
		if best < 0 {
			break // KKT conditions met
		}
		passive[best] = true

		// inner loop: solve the unconstrained problem on the passive set,
		// backtracking while any passive coefficient goes non-positive
		for {
			z, ok := solvePassive(a, b, n, m, passive)
			if !ok {
				passive[best] = false
				return x
			}
			minNeg := math.Inf(1)
			for j := 0; j < m; j++ {
				if passive[j] && z[j] <= 0 {
					alpha := x[j] / (x[j] - z[j])
					if alpha < minNeg {
						minNeg = alpha
					}
				}
			}
			if math.IsInf(minNeg, 1) {
				for j := 0; j < m; j++ {
					if passive[j] {
						x[j] = z[j]
					} else {
						x[j] = 0
					}
				}
				break
			}
			for j := 0; j < m; j++ {
				if passive[j] {
					x[j] += minNeg * (z[j] - x[j])
					if x[j] <= 1e-12 {
						x[j] = 0
						passive[j] = false
					}
				}
			}
		}
	}
	return x
}

// Least-squares solve restricted to the passive columns. Returns the full
// coefficient vector with zeros on the active set.
func solvePassive(a []float64, b []float64, n, m int, passive []bool) ([]float64, bool) {
	cols := []int{}
	for j := 0; j < m; j++ {
		if passive[j] {
			cols = append(cols, j)
		}
	}
	if len(cols) == 0 {
		return make([]float64, m), true
	}

	sub := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for k, j := range cols {
			sub.Set(i, k, a[i*m+j])
		}
	}
	bv := mat.NewVecDense(n, b)

	var qr mat.QR
	qr.Factorize(sub)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, bv); err != nil {
		return nil, false
	}

	z := make([]float64, m)
	for k, j := range cols {
		z[j] = c.AtVec(k)
	}
	return z, true
}

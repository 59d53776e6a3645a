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

// The damping loop must run through its first iteration without panicking
// and converge on noise-free data generated from known parameters.
func TestLevmarRunConverges(t *testing.T) {
	m := NewModel([3]float64{}, true, true)
	radii := make([]float64, 40)
	bandIdx := make([]int, 40)
	for i := range radii {
		radii[i] = 0.5 + 0.5*float64(i)
		bandIdx[i] = 1
	}
	truth := []float64{1.5, 4, 0, 0, 1, 80, 1}
	y := m.Eval(radii, bandIdx, truth)
	sigma := make([]float64, len(y))
	for i := range sigma {
		sigma[i] = 0.01 * y[i]
	}

	free := []int{ParamNref, ParamR50ref, ParamMu50R}
	lm := &lmProblem{
		eval:    func(p []float64) []float64 { return m.Eval(radii, bandIdx, p) },
		y:       y,
		sigma:   sigma,
		bounds:  m.Bounds(),
		free:    free,
		maxIter: 200,
	}

	start := []float64{2.5, 6, 0, 0, 1, 60, 1}
	p, cov, ok := lm.run(start)
	if !ok {
		t.Fatalf("fit did not converge with a valid covariance")
	}
	for _, k := range free {
		if rel := math.Abs(p[k]-truth[k]) / truth[k]; rel > 0.01 {
			t.Errorf("parameter %s got %f expect %f", ParamNames[k], p[k], truth[k])
		}
	}
	if cov.SymmetricDim() != len(free) {
		t.Fatalf("covariance dimension got %d expect %d", cov.SymmetricDim(), len(free))
	}
	for c := range free {
		if cov.At(c, c) <= 0 {
			t.Errorf("covariance diagonal %d got %g expect > 0", c, cov.At(c, c))
		}
	}
}

func TestLevmarRejectsBadWeights(t *testing.T) {
	m := NewModel([3]float64{}, true, true)
	radii := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	bandIdx := []int{1, 1, 1, 1, 1, 1, 1, 1}
	truth := []float64{1.5, 4, 0, 0, 1, 80, 1}
	y := m.Eval(radii, bandIdx, truth)
	sigma := make([]float64, len(y)) // zero uncertainties poison the residuals

	lm := &lmProblem{
		eval:    func(p []float64) []float64 { return m.Eval(radii, bandIdx, p) },
		y:       y,
		sigma:   sigma,
		bounds:  m.Bounds(),
		free:    []int{ParamNref, ParamR50ref, ParamMu50R},
		maxIter: 200,
	}
	if _, _, ok := lm.run(truth); ok {
		t.Errorf("fit with zero uncertainties reported ok")
	}
}

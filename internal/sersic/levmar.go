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

	"gonum.org/v1/gonum/mat"
)

// A weighted nonlinear least-squares problem over a subset of free
// parameters. eval must return model values for all data points given a
// full parameter vector.
type lmProblem struct {
	eval    func(p []float64) []float64
	y       []float64 // observations
	sigma   []float64 // per-point uncertainties
	bounds  [NParams]Bound
	free    []int // indexes of the parameters being optimized
	maxIter int
}

const (
	lmLambda0   = 1e-3
	lmLambdaUp  = 10.0
	lmLambdaDn  = 0.1
	lmLambdaMax = 1e12
	lmFtol      = 1e-10
)

// Clamps the free parameters of p into their bounds, in place.
func (lm *lmProblem) clamp(p []float64) {
	for _, k := range lm.free {
		b := lm.bounds[k]
		if p[k] < b.Lo {
			p[k] = b.Lo
		}
		if p[k] > b.Hi {
			p[k] = b.Hi
		}
	}
}

// Weighted residuals (y - f)/sigma at the given parameters.
func (lm *lmProblem) residuals(p []float64) []float64 {
	f := lm.eval(p)
	res := make([]float64, len(lm.y))
	for i := range res {
		res[i] = (lm.y[i] - f[i]) / lm.sigma[i]
	}
	return res
}

func chiSquared(res []float64) float64 {
	sum := 0.0
	for _, r := range res {
		sum += r * r
	}
	return sum
}

// Forward-difference Jacobian of the weighted residuals with respect to
// the free parameters, rows=data points, cols=free parameters.
func (lm *lmProblem) jacobian(p, res []float64) *mat.Dense {
	j := mat.NewDense(len(lm.y), len(lm.free), nil)
	work := make([]float64, len(p))
	for c, k := range lm.free {
		copy(work, p)
		h := 1e-7 * math.Abs(p[k])
		if h < 1e-9 {
			h = 1e-9
		}
		if b := lm.bounds[k]; work[k]+h > b.Hi {
			h = -h // step inward at the upper bound
		}
		work[k] += h
		res2 := lm.residuals(work)
		for r := range res2 {
			j.Set(r, c, (res2[r]-res[r])/h)
		}
	}
	return j
}

// Minimizes the weighted sum of squared residuals starting from p0.
// Returns the solution, the covariance of the free parameters, and
// whether the fit converged with a valid covariance.
func (lm *lmProblem) run(p0 []float64) (p []float64, cov *mat.SymDense, ok bool) {
	p = append([]float64(nil), p0...)
	lm.clamp(p)
	res := lm.residuals(p)
	chi2 := chiSquared(res)
	if math.IsNaN(chi2) || math.IsInf(chi2, 0) {
		return p, nil, false
	}

	nf := len(lm.free)
	lambda := lmLambda0
	trial := make([]float64, len(p))

	for iter := 0; iter < lm.maxIter; iter++ {
		j := lm.jacobian(p, res)

		var jtj mat.SymDense
		jtj.SymOuterK(1, j.T())
		jtr := mat.NewVecDense(nf, nil)
		jtr.MulVec(j.T(), mat.NewVecDense(len(res), res))
		jtr.ScaleVec(-1, jtr) // descent direction

		improved := false
		for lambda <= lmLambdaMax {
			// CopySym does not grow an empty receiver, size it first
			damped := mat.NewSymDense(nf, nil)
			damped.CopySym(&jtj)
			for k := 0; k < nf; k++ {
				damped.SetSym(k, k, jtj.At(k, k)*(1+lambda))
			}

			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				lambda *= lmLambdaUp
				continue
			}
			step := mat.NewVecDense(nf, nil)
			if err := chol.SolveVecTo(step, jtr); err != nil {
				lambda *= lmLambdaUp
				continue
			}

			copy(trial, p)
			for c, k := range lm.free {
				trial[k] += step.AtVec(c)
			}
			lm.clamp(trial)

			res2 := lm.residuals(trial)
			chi2New := chiSquared(res2)
			if !math.IsNaN(chi2New) && chi2New < chi2 {
				rel := (chi2 - chi2New) / math.Max(chi2, 1e-300)
				copy(p, trial)
				res, chi2 = res2, chi2New
				lambda *= lmLambdaDn
				improved = true
				if rel < lmFtol {
					cov = lm.covariance(p, res)
					return p, cov, cov != nil
				}
				break
			}
			lambda *= lmLambdaUp
		}
		if !improved {
			break // stuck; report the best point found so far
		}
	}
	cov = lm.covariance(p, res)
	return p, cov, cov != nil
}

// Covariance of the free parameters, (J^T J)^-1 at the solution. Returns
// nil when the normal matrix is singular.
func (lm *lmProblem) covariance(p, res []float64) *mat.SymDense {
	j := lm.jacobian(p, res)
	var jtj mat.SymDense
	jtj.SymOuterK(1, j.T())
	var chol mat.Cholesky
	if !chol.Factorize(&jtj) {
		return nil
	}
	cov := mat.NewSymDense(len(lm.free), nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil
	}
	return cov
}

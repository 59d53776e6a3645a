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

package stats

import (
	"fmt"
	"math"

	"github.com/valyala/fastrand"

	"galprof/internal/qsort"
)

// Basic statistics on data arrays
type Basic struct {
	Min    float64 // Minimum
	Max    float64 // Maximum
	Mean   float64 // Mean (average)
	StdDev float64 // Standard deviation (norm 2, sigma)
}

// Pretty print basic stats to string
func (s *Basic) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g",
		s.Min, s.Max, s.Mean, s.StdDev)
}

// Calculate basic statistics for a data array
func CalcBasic(data []float64) (s *Basic) {
	s = &Basic{}
	s.Min, s.Mean, s.Max = calcMinMeanMax(data)
	s.StdDev = math.Sqrt(calcVariance(data, s.Mean))
	return s
}

// Calculate minimum, mean and maximum of given data
func calcMinMeanMax(data []float64) (min, mean, max float64) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	mmin, mmean, mmax := data[0], float64(0), data[0]
	for _, v := range data {
		if v < mmin {
			mmin = v
		}
		if v > mmax {
			mmax = v
		}
		mmean += v
	}
	return mmin, mmean / float64(len(data)), mmax
}

// Calculate variance of given data from provided mean
func calcVariance(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	variance := float64(0)
	for _, v := range data {
		diff := v - mean
		variance += diff * diff
	}
	return variance / float64(len(data))
}

// Calculate mean and standard deviation of the data
func MeanStdDev(xs []float64) (mean, stdDev float64) {
	mean = 0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	return mean, math.Sqrt(calcVariance(xs, mean))
}

// Returns the median of the data. Does not change the data.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	tmp := make([]float64, len(data))
	copy(tmp, data)
	return qsort.QSelectMedianFloat64(tmp)
}

// Iteratively rejects values beyond sigmaLow/sigmaHigh standard deviations
// from the mean, for at most iters rounds, and returns the statistics of the
// surviving values together with how many were clipped. At least three
// values always survive.
func SigmaClippedMean(data []float64, sigmaLow, sigmaHigh float64, iters int) (mean, stdDev float64, clipped int) {
	remaining := make([]float64, len(data))
	copy(remaining, data)

	for i := 0; i < iters; i++ {
		mean, stdDev = MeanStdDev(remaining)
		lowBound := mean - sigmaLow*stdDev
		highBound := mean + sigmaHigh*stdDev
		kept := 0
		for _, r := range remaining {
			if r >= lowBound && r <= highBound {
				remaining[kept] = r
				kept++
			}
		}
		if kept == len(remaining) || kept <= 3 {
			break
		}
		remaining = remaining[:kept]
	}

	mean, stdDev = MeanStdDev(remaining)
	return mean, stdDev, len(data) - len(remaining)
}

// Returns the sigma clipped median and standard deviation of the data.
// Used for background estimation, where outliers are sources rather than
// noise. Does not change the data.
func SigmaClippedMedian(data []float64, sigmaLow, sigmaHigh float64) (median, stdDev float64) {
	remaining := make([]float64, len(data))
	copy(remaining, data)

	for {
		median = Median(remaining)
		stdDev = 0
		for _, r := range remaining {
			diff := r - median
			stdDev += diff * diff
		}
		stdDev = math.Sqrt(stdDev/float64(len(remaining))) * 1.134

		lowBound := median - sigmaLow*stdDev
		highBound := median + sigmaHigh*stdDev
		kept := 0
		for _, r := range remaining {
			if r >= lowBound && r <= highBound {
				remaining[kept] = r
				kept++
			}
		}
		rejected := len(remaining) - kept
		remaining = remaining[:kept]

		if rejected == 0 || len(remaining) <= 3 {
			return median, stdDev
		}
	}
}

// Calculates a fast approximate median of the (presumably large) data by
// subsampling numSamples values and taking the median of that.
func FastApproxMedian(data []float64, numSamples int) float64 {
	if len(data) <= numSamples {
		return Median(data)
	}
	max := uint32(len(data))
	rng := fastrand.RNG{}
	samples := make([]float64, numSamples)
	for i := range samples {
		samples[i] = data[rng.Uint32n(max)]
	}
	return qsort.QSelectMedianFloat64(samples)
}

// Calculates a fast approximate standard deviation of the data around the
// given location by subsampling numSamples values.
func FastApproxStdDev(data []float64, location float64, numSamples int) float64 {
	if len(data) <= numSamples {
		return math.Sqrt(calcVariance(data, location))
	}
	max := uint32(len(data))
	rng := fastrand.RNG{}
	sumSqDiff := float64(0)
	for i := 0; i < numSamples; i++ {
		diff := data[rng.Uint32n(max)] - location
		sumSqDiff += diff * diff
	}
	return math.Sqrt(sumSqDiff / float64(numSamples))
}

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

package qsort

import (
	"testing"

	"github.com/valyala/fastrand"
)

func TestSelectMedian(t *testing.T) {
	rng := fastrand.RNG{}
	for i := 1; i < 1000; i++ {
		// prepare array of given length with a random permutation of 1..n
		arr := make([]float64, i)
		for j := 0; j < len(arr); j++ {
			arr[j] = float64(j + 1)
		}
		for j := 0; j < len(arr); j++ {
			k := rng.Uint32n(uint32(len(arr)))
			arr[j], arr[k] = arr[k], arr[j]
		}

		// calculate expected result
		var expect float64
		if (i & 1) != 0 {
			expect = float64((i + 1) / 2)
		} else {
			expect = 0.5 * (float64(i/2) + float64(i/2+1))
		}

		// calculate actual result and compare
		res := QSelectMedianFloat64(arr)
		if res != expect {
			t.Logf("median(1..%d) got %f expect %f\n", i, res, expect)
			t.Fail()
		}
	}
}

func TestSelectMedianEmpty(t *testing.T) {
	if got := QSelectMedianFloat64(nil); got != 0 {
		t.Errorf("median of empty got %f expect 0", got)
	}
}

func TestSelectFirstQuartile(t *testing.T) {
	rng := fastrand.RNG{}
	arr := make([]float64, 100)
	for j := 0; j < len(arr); j++ {
		arr[j] = float64(j + 1)
	}
	for j := 0; j < len(arr); j++ {
		k := rng.Uint32n(uint32(len(arr)))
		arr[j], arr[k] = arr[k], arr[j]
	}
	if got := QSelectFirstQuartileFloat64(arr); got != 26 {
		t.Errorf("first quartile got %f expect 26", got)
	}
}

func TestSort(t *testing.T) {
	rng := fastrand.RNG{}
	arr := make([]float64, 257)
	for j := 0; j < len(arr); j++ {
		arr[j] = float64(j + 1)
	}
	for j := 0; j < len(arr); j++ {
		k := rng.Uint32n(uint32(len(arr)))
		arr[j], arr[k] = arr[k], arr[j]
	}
	QSortFloat64(arr)
	for j := 0; j < len(arr); j++ {
		if arr[j] != float64(j+1) {
			t.Fatalf("position %d got %f expect %d", j, arr[j], j+1)
		}
	}
}

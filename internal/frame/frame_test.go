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

package frame

import (
	"math"
	"testing"
)

func TestNewFromData(t *testing.T) {
	f, err := NewFromData([]float64{1, 2, 3, 4, 5, 6}, nil, 3)
	if err != nil {
		t.Fatalf("NewFromData: %s", err.Error())
	}
	if f.Width != 3 || f.Height != 2 {
		t.Errorf("shape=%dx%d; want 3x2", f.Width, f.Height)
	}
	if _, err := NewFromData([]float64{1, 2, 3, 4, 5}, nil, 3); err == nil {
		t.Errorf("ragged data accepted")
	}
	if _, err := NewFromData([]float64{1, 2}, []bool{false}, 2); err == nil {
		t.Errorf("short mask accepted")
	}
}

func TestBilinear(t *testing.T) {
	f, _ := NewFromData([]float64{
		0, 1,
		2, 3,
	}, nil, 2)

	v, ok := f.Bilinear(0.5, 0.5)
	if !ok {
		t.Fatalf("center sample not ok")
	}
	if math.Abs(v-1.5) > 1e-12 {
		t.Errorf("v=%f; want 1.5", v)
	}

	v, ok = f.Bilinear(0, 0)
	if !ok || v != 0 {
		t.Errorf("v=%f ok=%v; want 0 true", v, ok)
	}

	if _, ok = f.Bilinear(-0.1, 0); ok {
		t.Errorf("out of bounds sample returned ok")
	}
}

func TestBilinearMasked(t *testing.T) {
	mask := make([]bool, 9)
	mask[4] = true // center pixel of the 3x3 frame
	f, _ := NewFromData([]float64{
		0, 1, 2,
		3, 4, 5,
		6, 7, 8,
	}, mask, 3)

	if _, ok := f.Bilinear(0.5, 0.5); ok {
		t.Errorf("sample touching masked pixel returned ok")
	}
	if v, ok := f.Bilinear(2, 2); !ok || math.Abs(v-8) > 1e-12 {
		t.Errorf("v=%f ok=%v; want 8 true", v, ok)
	}
}

func TestNearest(t *testing.T) {
	f, _ := NewFromData([]float64{
		0, 1,
		2, 3,
	}, nil, 2)
	if v, ok := f.Nearest(0.9, 0.1); !ok || v != 1 {
		t.Errorf("v=%f ok=%v; want 1 true", v, ok)
	}
}

func TestUnmaskedData(t *testing.T) {
	f, _ := NewFromData([]float64{1, 2, 3, 4}, []bool{false, true, false, true}, 2)
	d := f.UnmaskedData()
	if len(d) != 2 || d[0] != 1 || d[1] != 3 {
		t.Errorf("unmasked=%v; want [1 3]", d)
	}
}

func TestMultiBandValidate(t *testing.T) {
	a, _ := NewFromData(make([]float64, 6), nil, 3)
	b, _ := NewFromData(make([]float64, 6), nil, 3)
	c, _ := NewFromData(make([]float64, 6), nil, 2)

	m := MultiBand{"g": a, "r": b}
	if err := m.Validate([]string{"g", "r"}); err != nil {
		t.Errorf("valid set rejected: %s", err.Error())
	}
	if err := m.Validate([]string{"g", "r", "z"}); err == nil {
		t.Errorf("missing band accepted")
	}
	m["r"] = c
	if err := m.Validate([]string{"g", "r"}); err == nil {
		t.Errorf("shape mismatch accepted")
	}
}

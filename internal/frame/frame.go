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
	"fmt"
	"math"
)

// A single-band masked image cutout. Pixels are stored row-major,
// data[y*Width+x]. A true mask entry marks the pixel as unusable
// (saturated, contaminated by a neighbor, off the chip).
type Frame struct {
	Data   []float64
	Mask   []bool
	Width  int
	Height int
}

// Creates a frame of the given dimensions with an all-clear mask.
func New(width, height int) *Frame {
	return &Frame{
		Data:   make([]float64, width*height),
		Mask:   make([]bool, width*height),
		Width:  width,
		Height: height,
	}
}

// Creates a frame wrapping the given data. A nil mask is treated as
// all-clear.
func NewFromData(data []float64, mask []bool, width int) (*Frame, error) {
	if width <= 0 || len(data)%width != 0 {
		return nil, fmt.Errorf("frame data length %d does not match width %d", len(data), width)
	}
	if mask == nil {
		mask = make([]bool, len(data))
	} else if len(mask) != len(data) {
		return nil, fmt.Errorf("frame mask length %d does not match data length %d", len(mask), len(data))
	}
	return &Frame{Data: data, Mask: mask, Width: width, Height: len(data) / width}, nil
}

// Returns true if the integer pixel position lies inside the frame.
func (f *Frame) Inside(x, y int) bool {
	return x >= 0 && x < f.Width && y >= 0 && y < f.Height
}

// Returns the pixel value at (x,y) and whether it is usable.
func (f *Frame) At(x, y int) (value float64, ok bool) {
	if !f.Inside(x, y) {
		return 0, false
	}
	i := y*f.Width + x
	if f.Mask[i] {
		return 0, false
	}
	return f.Data[i], true
}

// Samples the frame at a fractional pixel position with bilinear
// interpolation. Returns ok=false if the position is outside the frame or
// any of the four contributing pixels is masked.
func (f *Frame) Bilinear(x, y float64) (value float64, ok bool) {
	if x < 0 || y < 0 || x > float64(f.Width-1) || y > float64(f.Height-1) {
		return 0, false
	}
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 > f.Width-1 {
		x1 = f.Width - 1
	}
	if y1 > f.Height-1 {
		y1 = f.Height - 1
	}
	v00, ok00 := f.At(x0, y0)
	v10, ok10 := f.At(x1, y0)
	v01, ok01 := f.At(x0, y1)
	v11, ok11 := f.At(x1, y1)
	if !ok00 || !ok10 || !ok01 || !ok11 {
		return 0, false
	}
	fx, fy := x-float64(x0), y-float64(y0)
	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy, true
}

// Samples the frame at a fractional pixel position by rounding to the
// nearest pixel.
func (f *Frame) Nearest(x, y float64) (value float64, ok bool) {
	return f.At(int(x+0.5), int(y+0.5))
}

// Returns the unmasked pixel values. The result aliases a fresh slice.
func (f *Frame) UnmaskedData() []float64 {
	res := make([]float64, 0, len(f.Data))
	for i, v := range f.Data {
		if !f.Mask[i] {
			res = append(res, v)
		}
	}
	return res
}

// A set of single-band frames sharing one spatial shape, keyed by band name.
type MultiBand map[string]*Frame

// Verifies that all required bands are present and share the same shape.
func (m MultiBand) Validate(bands []string) error {
	var w, h int
	for i, b := range bands {
		f, ok := m[b]
		if !ok || f == nil {
			return fmt.Errorf("missing %s-band frame", b)
		}
		if i == 0 {
			w, h = f.Width, f.Height
			continue
		}
		if f.Width != w || f.Height != h {
			return fmt.Errorf("%s-band frame is %dx%d, want %dx%d", b, f.Width, f.Height, w, h)
		}
	}
	return nil
}

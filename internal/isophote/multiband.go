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
	"fmt"

	"galprof/internal/frame"
)

// Fits isophotes to the reference band, then re-samples every other band at
// the fixed per-isophote geometry so all bands share one shape solution.
// The returned lists are index-aligned: same length, same sma sequence.
func FitMultiband(frames frame.MultiBand, bands []string, refband string, geometry EllipseGeometry, opts FitOptions) (map[string]IsophoteList, error) {
	if err := frames.Validate(bands); err != nil {
		return nil, err
	}
	ref, ok := frames[refband]
	if !ok {
		return nil, fmt.Errorf("isophote: reference band %s not in frame set", refband)
	}

	ellipse := NewEllipse(ref, geometry)
	refList, err := ellipse.FitImage(opts)
	if err != nil {
		return nil, fmt.Errorf("isophote: reference %s-band fit failed: %w", refband, err)
	}

	result := map[string]IsophoteList{refband: refList}
	for _, band := range bands {
		if band == refband {
			continue
		}
		f := frames[band]
		list := make(IsophoteList, 0, len(refList))
		for _, iso := range refList {
			// fixed geometry: only the intensity statistics are re-measured
			g := iso.Sample.Geometry
			sample := NewSample(f, g.Sma, g, opts.IntegrMode, opts.SClip, opts.NClip)
			sample.Update()
			list = append(list, &Isophote{Sample: sample, Niter: 0, Valid: true, StopCode: StopOK})
		}
		result[band] = list
	}
	return result, nil
}

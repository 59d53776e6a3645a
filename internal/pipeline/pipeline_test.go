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

package pipeline

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"galprof/internal/frame"
)

// Renders a circular exponential galaxy over a flat sky.
func makeGalaxyFrame(width, height int, x0, y0, scaleLen, peak float64) *frame.Frame {
	f := frame.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := math.Hypot(float64(x)-x0, float64(y)-y0)
			f.Data[y*width+x] = 0.01 + peak*math.Exp(-r/scaleLen)
		}
	}
	return f
}

func makeJob(name string) Job {
	frames := frame.MultiBand{}
	for _, b := range []string{"g", "r", "z"} {
		frames[b] = makeGalaxyFrame(121, 121, 60, 60, 10, 100)
	}
	return Job{Name: name, Frames: frames}
}

func TestFitGalaxyEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	c := NewContext(io.Discard)

	res, err := FitGalaxy(c, makeJob("test"), cfg)
	if err != nil {
		t.Fatalf("FitGalaxy: %s", err.Error())
	}
	if res.Status != StatusOK {
		t.Fatalf("status=%d; want %d", res.Status, StatusOK)
	}
	if res.Galaxy == nil || math.Abs(res.Galaxy.XMed-60) > 2 || math.Abs(res.Galaxy.YMed-60) > 2 {
		t.Errorf("galaxy detection off center: %+v", res.Galaxy)
	}
	for _, b := range cfg.Bands {
		if res.MGE[b] == nil {
			t.Errorf("no MGE fit for band %s", b)
		}
		if len(res.Isophotes[b]) == 0 {
			t.Errorf("no isophotes for band %s", b)
		}
	}
	if res.Profile == nil || len(res.Profile.Sma) == 0 {
		t.Fatalf("empty surface brightness profile")
	}
	for i := 1; i < len(res.Profile.Sma); i++ {
		if res.Profile.Sma[i] <= res.Profile.Sma[i-1] {
			t.Errorf("profile sma not increasing at %d", i)
		}
	}
	if res.Sersic == nil {
		t.Fatalf("no Sersic result")
	}
}

func TestRunMapsErrorsToStatus(t *testing.T) {
	cfg := DefaultConfig()
	c := NewContext(io.Discard)

	res := Run(c, Job{Name: "broken", Frames: frame.MultiBand{}}, cfg)
	if res.Status != StatusFailed {
		t.Errorf("status=%d; want %d", res.Status, StatusFailed)
	}
	if res.Err == nil {
		t.Errorf("failed run must carry its error")
	}
}

func TestBatch(t *testing.T) {
	cfg := DefaultConfig()
	c := NewContext(io.Discard)
	c.MaxThreads = 2

	jobs := []Job{makeJob("a"), makeJob("b"), {Name: "broken", Frames: frame.MultiBand{}}}
	results, err := Batch(c, jobs, cfg)
	if err != nil {
		t.Fatalf("Batch: %s", err.Error())
	}
	if len(results) != 3 {
		t.Fatalf("len(results)=%d; want 3", len(results))
	}
	if results[0].Status != StatusOK || results[1].Status != StatusOK {
		t.Errorf("good jobs failed: %d %d", results[0].Status, results[1].Status)
	}
	if results[2].Status != StatusFailed {
		t.Errorf("broken job succeeded")
	}
}

func TestBatchEmpty(t *testing.T) {
	c := NewContext(io.Discard)
	if _, err := Batch(c, nil, DefaultConfig()); err == nil {
		t.Errorf("empty batch accepted")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %s", err.Error())
	}

	bad := *cfg
	bad.RefBand = "y"
	if err := bad.Validate(); err == nil {
		t.Errorf("missing reference band accepted")
	}

	bad = *cfg
	bad.PixScale = 0
	if err := bad.Validate(); err == nil {
		t.Errorf("zero pixel scale accepted")
	}

	bad = *cfg
	bad.Integr = "cubic"
	if err := bad.Validate(); err == nil {
		t.Errorf("unknown integration mode accepted")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "job.yaml")
	yaml := "pixscale: 0.5\nrefband: g\nbands: [g, r]\nnball: 3\npsfSigma:\n  g: 1.2\n  r: 1.1\n"
	if err := os.WriteFile(fileName, []byte(yaml), 0644); err != nil {
		t.Fatalf("write: %s", err.Error())
	}

	cfg, err := LoadConfig(fileName)
	if err != nil {
		t.Fatalf("LoadConfig: %s", err.Error())
	}
	if cfg.PixScale != 0.5 {
		t.Errorf("pixscale=%f; want 0.5", cfg.PixScale)
	}
	if cfg.RefBand != "g" || len(cfg.Bands) != 2 {
		t.Errorf("bands=%v ref=%s; want [g r] g", cfg.Bands, cfg.RefBand)
	}
	if cfg.NBall != 3 {
		t.Errorf("nball=%d; want 3", cfg.NBall)
	}
	if cfg.PSFSigma["g"] != 1.2 {
		t.Errorf("psfSigma[g]=%f; want 1.2", cfg.PSFSigma["g"])
	}
	// unset keys keep their defaults
	if cfg.SClip != 5 {
		t.Errorf("sclip=%f; want default 5", cfg.SClip)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/job.yaml"); err == nil {
		t.Errorf("missing file accepted")
	}
}

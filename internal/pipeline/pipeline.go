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
	"errors"
	"fmt"
	"math"

	"galprof/internal/frame"
	"galprof/internal/galfind"
	"galprof/internal/isophote"
	"galprof/internal/mge"
	"galprof/internal/profile"
	"galprof/internal/sersic"
)

// Run status flags, recorded per galaxy
const (
	StatusFailed = 0
	StatusOK     = 1
)

// The full output for one galaxy
type Result struct {
	Status    int
	Err       error `json:"-"`
	Galaxy    *galfind.Galaxy
	MGE       map[string]*mge.Fit
	Isophotes map[string]isophote.IsophoteList `json:"-"` // raw isophotes carry frame references; the profile holds the serializable output
	Profile   *profile.SBProfile
	Sersic    *sersic.Result
}

// One unit of work for the pipeline: the per-band images of a single
// galaxy plus its optional catalog record.
type Job struct {
	Name   string
	Frames frame.MultiBand
	Cat    *galfind.Tractor
}

// Runs the full reduction for one galaxy. Errors from any stage abort the
// run; use Run for the status-flag wrapper that never fails.
func FitGalaxy(c *Context, job Job, cfg *Config) (*Result, error) {
	if err := job.Frames.Validate(cfg.Bands); err != nil {
		return nil, err
	}
	ref := job.Frames[cfg.RefBand]

	// locate the galaxy on the reference band
	g, err := galfind.FindGalaxy(ref, cfg.DetectSigma)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "%s: galaxy at (%.1f,%.1f) eps=%.3f pa=%.1fdeg major=%.1fpx\n",
		job.Name, g.XMed, g.YMed, g.Eps, g.Theta*180/math.Pi, g.MajorAxis)

	// multi-Gaussian expansion per band, all bands sharing the reference
	// band detection geometry
	mgeOpts := mge.DefaultFitOptions()
	mgeOpts.NSectors = cfg.NSectors
	mgeOpts.NGauss = cfg.NGauss
	mgeOpts.MinLevel = cfg.MinLevel
	mgeFits := make(map[string]*mge.Fit, len(cfg.Bands))
	for _, band := range cfg.Bands {
		phot, err := mge.SectorsPhotometry(job.Frames[band], g.Eps, g.Theta, g.XPeak, g.YPeak, cfg.NSectors, cfg.MinLevel)
		if err != nil {
			return nil, fmt.Errorf("%s band %s: %w", job.Name, band, err)
		}
		fit, err := mge.FitSectors(phot, g.Eps, mgeOpts)
		if err != nil {
			return nil, fmt.Errorf("%s band %s: %w", job.Name, band, err)
		}
		fit.Eps, fit.Pa, fit.Theta = g.Eps, g.Theta, g.Theta
		fit.MajorAxis = g.MajorAxis
		fit.XMed, fit.YMed = g.XMed, g.YMed
		fit.XPeak, fit.YPeak = g.XPeak, g.YPeak
		mgeFits[band] = fit
		fmt.Fprintf(c.Log, "%s: MGE %s: %d Gaussians, residual rms %.4f\n",
			job.Name, band, len(fit.Sigmas), fit.Chi2)
	}

	// seed geometry for the isophote fit, from the detection moments or
	// the survey catalog shape
	geom := isophote.NewEllipseGeometry(g.XMed, g.YMed, 0.5*g.MajorAxis, g.Eps, g.Theta)
	if cfg.UseTractor && job.Cat != nil {
		catGeom, _, err := galfind.InitialEllipse(ref, job.Cat, cfg.PixScale, true, cfg.DetectSigma)
		if err != nil {
			return nil, err
		}
		geom = isophote.NewEllipseGeometry(g.XMed, g.YMed, catGeom.Sma, catGeom.Eps, catGeom.Pa)
	}

	isoOpts := isophote.DefaultFitOptions()
	isoOpts.IntegrMode = cfg.IntegrMode()
	isoOpts.SClip = cfg.SClip
	isoOpts.NClip = cfg.NClip
	isoOpts.Step = cfg.Step
	isoOpts.Linear = cfg.Linear
	if cfg.MaxSma > 0 {
		isoOpts.MaxSma = cfg.MaxSma
	}
	isofits, err := isophote.FitMultiband(job.Frames, cfg.Bands, cfg.RefBand, geom, isoOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}
	fmt.Fprintf(c.Log, "%s: fitted %d isophotes on band %s\n",
		job.Name, len(isofits[cfg.RefBand]), cfg.RefBand)

	prof, err := profile.Assemble(isofits, cfg.Bands, cfg.PixScale, cfg.MinErr, cfg.Redshift, cfg.PSFSigma)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}

	var psf [3]float64
	for i, band := range sersic.Bands {
		psf[i] = cfg.PSFSigma[band]
	}
	sOpts := sersic.DefaultOptions()
	sOpts.NBall = cfg.NBall
	sOpts.Chi2Fail = cfg.Chi2Fail
	sOpts.MaxIter = cfg.MaxIter
	sOpts.Seed = cfg.Seed
	sOpts.FixAlpha = cfg.FixAlpha
	sOpts.FixBeta = cfg.FixBeta
	sfit, err := sersic.FitProfile(prof, psf, sOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}
	if sfit.Success {
		fmt.Fprintf(c.Log, "%s: Sersic nref=%.2f r50ref=%.2f\" alpha=%.3f beta=%.3f chi2=%.3g\n",
			job.Name, sfit.Values[sersic.ParamNref], sfit.Values[sersic.ParamR50ref],
			sfit.Values[sersic.ParamAlpha], sfit.Values[sersic.ParamBeta], sfit.Chi2)
	} else {
		fmt.Fprintf(c.Log, "%s: Sersic fit did not converge\n", job.Name)
	}

	return &Result{
		Status:    StatusOK,
		Galaxy:    g,
		MGE:       mgeFits,
		Isophotes: isofits,
		Profile:   prof,
		Sersic:    sfit,
	}, nil
}

// Runs the full reduction, mapping any error to a failed-status result so
// batch processing can continue past broken galaxies.
func Run(c *Context, job Job, cfg *Config) *Result {
	res, err := FitGalaxy(c, job, cfg)
	if err != nil {
		fmt.Fprintf(c.Log, "%s: FAILED: %s\n", job.Name, err.Error())
		return &Result{Status: StatusFailed, Err: err}
	}
	return res
}

// Processes jobs concurrently with at most c.MaxThreads running at once.
// Each job draws its Sersic starting points from a distinct seed so runs
// stay reproducible regardless of scheduling. Results are index-aligned
// with the jobs.
func Batch(c *Context, jobs []Job, cfg *Config) ([]*Result, error) {
	if len(jobs) == 0 {
		return nil, errors.New("pipeline: no jobs to process")
	}
	results := make([]*Result, len(jobs))
	limiter := make(chan bool, c.MaxThreads)
	for i, job := range jobs {
		limiter <- true
		go func(i int, job Job) {
			defer func() { <-limiter }()
			jobCfg := *cfg
			jobCfg.Seed = cfg.Seed + uint64(i)
			results[i] = Run(c, job, &jobCfg)
		}(i, job)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	return results, nil
}

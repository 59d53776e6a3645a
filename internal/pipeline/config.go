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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"galprof/internal/isophote"
	"galprof/internal/profile"
)

// Reduction settings for one pipeline run. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	PixScale float64  `yaml:"pixscale"` // arcsec per pixel
	Bands    []string `yaml:"bands"`
	RefBand  string   `yaml:"refband"`
	Redshift float64  `yaml:"redshift"`

	// galaxy detection
	DetectSigma float64 `yaml:"detectSigma"` // detection threshold in background sigmas
	UseTractor  bool    `yaml:"useTractor"`  // take ellipticity from the catalog shape columns

	// multi-Gaussian expansion
	NSectors int     `yaml:"nSectors"`
	NGauss   int     `yaml:"nGauss"`
	MinLevel float64 `yaml:"minLevel"`

	// isophote fitting
	Integr      string  `yaml:"integrMode"` // "bilinear" or "nearest"
	SClip       float64 `yaml:"sclip"`
	NClip       int     `yaml:"nclip"`
	Step        float64 `yaml:"step"`
	Linear      bool    `yaml:"linear"`
	MaxSma      float64 `yaml:"maxSma"` // pixels, 0 lets the fitter run to the image edge

	// surface brightness and Sersic fit
	MinErr   float64            `yaml:"minErr"` // magnitude error floor
	PSFSigma map[string]float64 `yaml:"psfSigma"`
	NBall    int                `yaml:"nball"`
	Chi2Fail float64            `yaml:"chi2fail"`
	MaxIter  int                `yaml:"maxIter"`
	FixAlpha bool               `yaml:"fixAlpha"`
	FixBeta  bool               `yaml:"fixBeta"`
	Seed     uint64             `yaml:"seed"`
}

// Default reduction settings, matching the DECam Legacy Surveys imaging.
func DefaultConfig() *Config {
	iso := isophote.DefaultFitOptions()
	return &Config{
		PixScale:    profile.DefaultPixScale,
		Bands:       []string{"g", "r", "z"},
		RefBand:     "r",
		DetectSigma: 2,
		NSectors:    11,
		NGauss:      11,
		Integr:      "bilinear",
		SClip:       iso.SClip,
		NClip:       iso.NClip,
		Step:        iso.Step,
		Linear:      iso.Linear,
		MinErr:      profile.DefaultMinErr,
		NBall:       10,
		Chi2Fail:    1e6,
		MaxIter:     200,
		Seed:        1,
	}
}

// Reads a YAML config file, overlaying it on the defaults.
func LoadConfig(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", fileName, err)
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	if cfg.PixScale <= 0 {
		return fmt.Errorf("config: pixscale must be positive, got %g", cfg.PixScale)
	}
	if len(cfg.Bands) == 0 {
		return fmt.Errorf("config: at least one band required")
	}
	found := false
	for _, b := range cfg.Bands {
		if b == cfg.RefBand {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("config: reference band %q not among bands %v", cfg.RefBand, cfg.Bands)
	}
	if cfg.Integr != "bilinear" && cfg.Integr != "nearest" {
		return fmt.Errorf("config: unknown integration mode %q", cfg.Integr)
	}
	return nil
}

// The sampling mode selected by the config.
func (cfg *Config) IntegrMode() isophote.IntegrMode {
	if cfg.Integr == "nearest" {
		return isophote.IntegrNearest
	}
	return isophote.IntegrBilinear
}

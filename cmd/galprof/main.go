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

package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"galprof/internal/frame"
	"galprof/internal/galfind"
	"galprof/internal/pipeline"
	"galprof/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out     = flag.String("out", "out.json", "save fit results as JSON to `file`")
var config  = flag.String("config", "", "load reduction settings from YAML `file`")
var logFile = flag.String("log", "", "duplicate log output to `file`")

var pixScale    = flag.Float64("pixScale", 0.262, "image pixel scale in arcsec per pixel")
var refBand     = flag.String("refBand", "r", "reference band for isophote fitting")
var detectSigma = flag.Float64("detectSigma", 2, "galaxy detection threshold in background sigmas")
var useTractor  = flag.Bool("useTractor", false, "seed the ellipse geometry from the catalog shape columns")
var step        = flag.Float64("step", 0.1, "isophote semi-major axis growth step")
var maxSma      = flag.Float64("maxSma", 0, "maximum isophote semi-major axis in pixels, 0=image edge")
var minErr      = flag.Float64("minErr", 0.03, "surface brightness magnitude error floor")
var nball       = flag.Int("nball", 10, "number of randomized Sersic fit starting points")
var seed        = flag.Uint64("seed", 1, "random seed for the Sersic fit starting points")

var chroot = flag.String("chroot", "", "(serve only) change filesystem root to given `directory`, requires root")
var setuid = flag.Int("setuid", -1, "(serve only) switch to given numeric user id after opening ports")

// A job file names the per-band pixel files of one or more galaxies
type jobFile struct {
	Galaxies []struct {
		Name  string            `yaml:"name"`
		Bands map[string]string `yaml:"bands"` // band -> pixel file
		Cat   *galfind.Tractor  `yaml:"cat"`
	} `yaml:"galaxies"`
}

func main() {
	var logWriter io.Writer = os.Stdout
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Galprof Copyright (c) 2026 The galprof authors
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (fit|serve|version|help) (job0.yaml ... jobn.yaml)

Commands:
  fit     Fit galaxy profiles listed in the given YAML job files
  serve   Start the REST API server on port 8080
  version Show version information
  help    Show this help message

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not open log file: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		logWriter = io.MultiWriter(os.Stdout, f)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	switch args[0] {
	case "serve":
		if err := rest.MakeSandbox(*chroot, *setuid); err != nil {
			fmt.Fprintf(os.Stderr, "Could not set up sandbox: %s\n", err.Error())
			os.Exit(-1)
		}
		rest.Serve()

	case "fit":
		if len(args) < 2 {
			fmt.Fprintf(logWriter, "fit requires at least one job file\n")
			os.Exit(-1)
		}
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(logWriter, "Error loading config: %s\n", err.Error())
			os.Exit(-1)
		}
		jobs, err := loadJobs(args[1:])
		if err != nil {
			fmt.Fprintf(logWriter, "Error loading jobs: %s\n", err.Error())
			os.Exit(-1)
		}
		c := pipeline.NewContext(logWriter)
		fmt.Fprintf(logWriter, "Processing %d galaxies with up to %d threads and %d MiB physical memory\n",
			len(jobs), c.MaxThreads, c.MemoryMB)
		results, err := pipeline.Batch(c, jobs, cfg)
		if err != nil {
			fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
			os.Exit(-1)
		}
		if err := writeResults(*out, jobs, results); err != nil {
			fmt.Fprintf(logWriter, "Error writing %s: %s\n", *out, err.Error())
			os.Exit(-1)
		}
		fmt.Fprintf(logWriter, "Wrote results for %d galaxies to %s\n", len(results), *out)

	case "version":
		fmt.Fprintf(logWriter, "galprof version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n", args[0])
		flag.Usage()
		os.Exit(-1)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}
}

// Merges the optional YAML config with the command line flags; flags set
// explicitly win over the file.
func loadConfig() (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(*config); err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pixScale":
			cfg.PixScale = *pixScale
		case "refBand":
			cfg.RefBand = *refBand
		case "detectSigma":
			cfg.DetectSigma = *detectSigma
		case "useTractor":
			cfg.UseTractor = *useTractor
		case "step":
			cfg.Step = *step
		case "maxSma":
			cfg.MaxSma = *maxSma
		case "minErr":
			cfg.MinErr = *minErr
		case "nball":
			cfg.NBall = *nball
		case "seed":
			cfg.Seed = *seed
		}
	})
	return cfg, cfg.Validate()
}

func loadJobs(fileNames []string) (jobs []pipeline.Job, err error) {
	for _, fileName := range fileNames {
		data, err := os.ReadFile(fileName)
		if err != nil {
			return nil, err
		}
		var jf jobFile
		if err := yaml.Unmarshal(data, &jf); err != nil {
			return nil, fmt.Errorf("%s: %w", fileName, err)
		}
		for _, g := range jf.Galaxies {
			frames := frame.MultiBand{}
			for band, path := range g.Bands {
				f, err := readFrame(path)
				if err != nil {
					return nil, fmt.Errorf("%s band %s: %w", g.Name, band, err)
				}
				frames[band] = f
			}
			name := g.Name
			if name == "" {
				name = fmt.Sprintf("galaxy%d", len(jobs))
			}
			jobs = append(jobs, pipeline.Job{Name: name, Frames: frames, Cat: g.Cat})
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no galaxies found in job files %v", fileNames)
	}
	return jobs, nil
}

// Reads a whitespace-separated text grid of pixel values, one image row
// per line. NaN entries are treated as masked pixels.
func readFrame(fileName string) (*frame.Frame, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data []float64
	var mask []bool
	width := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if width == 0 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, fmt.Errorf("%s: ragged row with %d values, want %d", fileName, len(fields), width)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fileName, err)
			}
			data = append(data, v)
			mask = append(mask, math.IsNaN(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return frame.NewFromData(data, mask, width)
}

func writeResults(fileName string, jobs []pipeline.Job, results []*pipeline.Result) error {
	named := make(map[string]*pipeline.Result, len(results))
	for i, res := range results {
		named[jobs[i].Name] = res
	}
	data, err := json.MarshalIndent(named, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, data, 0644)
}

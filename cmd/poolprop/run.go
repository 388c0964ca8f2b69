package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/poolprop"
	"github.com/born-ml/poolprop/internal/pooling"
	"github.com/born-ml/poolprop/internal/timing"
)

var (
	repeat    int64
	seed      int64
	inputFile string
	jsonOut   bool
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "repeat",
			Aliases:     []string{"r"},
			Usage:       "number of propagations",
			Value:       1,
			Destination: &repeat,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "seed for the random input batch",
			Value:       1,
			Destination: &seed,
		},
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "JSON file holding the input batch as a flat float array",
			Destination: &inputFile,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the report as JSON",
			Destination: &jsonOut,
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Propagate a batch through a pooling layer and verify the result",
		Flags: concat(commonFlags(), backendFlags(), layerFlags(), runFlags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			applyCommonConfig(c, cfg)
			applyLayerConfig(c, cfg)
			applyRunConfig(c, cfg, &repeat, &seed)

			logger, err := setupLogger(os.Stderr, logLevel, logFormat)
			if err != nil {
				return err
			}

			opts := runOptions{
				Backend:        backendName,
				GroupSize:      int(groupSize),
				Workers:        int(workers),
				Variant:        variantName,
				InputBoardSize: int(inputBoardSize),
				PoolingSize:    int(poolingSize),
				PadZeros:       padZeros,
				NumPlanes:      int(numPlanes),
				BatchSize:      int(batchSize),
				Repeat:         int(repeat),
				Seed:           uint64(seed), //nolint:gosec // G115: any bit pattern is a valid seed
			}
			if inputFile != "" {
				if opts.Input, err = readInput(inputFile); err != nil {
					return err
				}
			}

			report, err := runLayer(ctx, opts)
			if err != nil {
				return err
			}
			logger.Info("run finished", "run_id", report.RunID, "elapsed", report.Elapsed, "mismatches", report.Mismatches)

			if err := writeReport(os.Stdout, report, jsonOut); err != nil {
				return err
			}
			if report.Mismatches > 0 {
				return fmt.Errorf("%d of %d output elements differ from the host reference",
					report.Mismatches, report.OutputElements)
			}
			return nil
		},
	}
}

// runOptions is the fully resolved configuration of one run.
type runOptions struct {
	Backend        string
	GroupSize      int
	Workers        int
	Variant        string
	InputBoardSize int
	PoolingSize    int
	PadZeros       bool
	NumPlanes      int
	BatchSize      int
	Repeat         int
	Seed           uint64

	// Input overrides the random batch when non-nil.
	Input []float32
}

// RunReport summarizes one run.
type RunReport struct {
	RunID          string        `json:"run_id"`
	Backend        string        `json:"backend"`
	Variant        string        `json:"variant"`
	Geometry       string        `json:"geometry"`
	BuildOptions   string        `json:"build_options"`
	NumPlanes      int           `json:"num_planes"`
	BatchSize      int           `json:"batch_size"`
	OutputElements int           `json:"output_elements"`
	GroupSize      int           `json:"group_size"`
	LaunchWidth    int           `json:"launch_width"`
	Repeat         int           `json:"repeat"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Mismatches     int           `json:"mismatches"`
	Timing         timing.Report `json:"timing"`
}

// runLayer builds the backend and layer described by opts, propagates the
// batch opts.Repeat times and checks the last result against the host
// reference.
func runLayer(ctx context.Context, opts runOptions) (*RunReport, error) {
	if opts.Repeat <= 0 {
		return nil, fmt.Errorf("repeat must be positive, got %d", opts.Repeat)
	}
	variant, err := poolprop.ParseVariant(opts.Variant)
	if err != nil {
		return nil, err
	}

	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("batch size must not be negative, got %d", opts.BatchSize)
	}

	backend, err := openBackend(opts.Backend, opts.GroupSize, opts.Workers)
	if err != nil {
		return nil, err
	}
	defer backend.Release()

	timer := poolprop.NewStatefulTimer()
	layer, err := poolprop.New(backend, poolprop.Config{
		Variant:        variant,
		PadZeros:       opts.PadZeros,
		NumPlanes:      opts.NumPlanes,
		InputBoardSize: opts.InputBoardSize,
		PoolingSize:    opts.PoolingSize,
		Timer:          timer,
	})
	if err != nil {
		return nil, err
	}
	defer layer.Release()

	g := layer.Geometry()
	inLen := g.InputLen(opts.BatchSize, opts.NumPlanes)
	outLen := g.OutputLen(opts.BatchSize, opts.NumPlanes)

	input := opts.Input
	if input == nil {
		input = randomBatch(inLen, opts.Seed)
	}
	if len(input) != inLen {
		return nil, fmt.Errorf("input holds %d values, %s with %d planes and batch %d needs %d",
			len(input), g, opts.NumPlanes, opts.BatchSize, inLen)
	}

	in, err := backend.NewBuffer(poolprop.Float32, inLen)
	if err != nil {
		return nil, err
	}
	defer in.Release()
	sel, err := backend.NewBuffer(poolprop.Int32, outLen)
	if err != nil {
		return nil, err
	}
	defer sel.Release()
	out, err := backend.NewBuffer(poolprop.Float32, outLen)
	if err != nil {
		return nil, err
	}
	defer out.Release()

	if err := in.WriteFloat32(input); err != nil {
		return nil, err
	}

	start := time.Now()
	for i := 0; i < opts.Repeat; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := layer.Propagate(opts.BatchSize, in, sel, out); err != nil {
			return nil, err
		}
	}
	elapsed := time.Since(start)

	selectors, err := sel.ReadInt32()
	if err != nil {
		return nil, err
	}
	maxima, err := out.ReadFloat32()
	if err != nil {
		return nil, err
	}
	wantSel, wantMax, err := pooling.PropagateSlices(g, opts.NumPlanes, opts.BatchSize, input)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:          uuid.NewString(),
		Backend:        backend.Name(),
		Variant:        layer.Variant().String(),
		Geometry:       g.String(),
		BuildOptions:   g.BuildOptions(opts.NumPlanes),
		NumPlanes:      opts.NumPlanes,
		BatchSize:      opts.BatchSize,
		OutputElements: outLen,
		GroupSize:      backend.PreferredGroupSize(),
		Repeat:         opts.Repeat,
		Elapsed:        elapsed,
		Mismatches:     countMismatches(wantSel, selectors, wantMax, maxima),
		Timing:         timer.Report(),
	}
	if naive, ok := layer.(*pooling.Naive); ok {
		report.LaunchWidth = naive.LaunchWidth(opts.BatchSize)
	}
	return report, nil
}

func countMismatches(wantSel, gotSel []int32, wantMax, gotMax []float32) int {
	n := 0
	for i := range wantSel {
		if i >= len(gotSel) || i >= len(gotMax) || gotSel[i] != wantSel[i] || gotMax[i] != wantMax[i] {
			n++
		}
	}
	return n
}

// randomBatch fills n values uniformly from [-1, 1).
func randomBatch(n int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return data
}

func readInput(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var data []float32
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}
	return data, nil
}

func writeReport(w io.Writer, r *RunReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "run:          %s\n", r.RunID)
	fmt.Fprintf(w, "backend:      %s (group size %d)\n", r.Backend, r.GroupSize)
	fmt.Fprintf(w, "variant:      %s\n", r.Variant)
	fmt.Fprintf(w, "geometry:     %s, %d planes\n", r.Geometry, r.NumPlanes)
	fmt.Fprintf(w, "options:      %s\n", r.BuildOptions)
	fmt.Fprintf(w, "batch:        %d (%d output elements", r.BatchSize, r.OutputElements)
	if r.LaunchWidth > 0 {
		fmt.Fprintf(w, ", launch width %d", r.LaunchWidth)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "propagations: %d in %s (%s each)\n", r.Repeat, r.Elapsed, r.Elapsed/time.Duration(r.Repeat))
	for _, e := range r.Timing.Entries {
		fmt.Fprintf(w, "  %-28s count=%d total=%s avg=%s\n", e.Label, e.Count, e.Total, e.Average)
	}
	if r.Mismatches == 0 {
		fmt.Fprintln(w, "verified:     matches host reference")
	} else {
		fmt.Fprintf(w, "verified:     %d mismatches\n", r.Mismatches)
	}
	return nil
}

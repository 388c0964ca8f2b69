package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/poolprop"
	"github.com/born-ml/poolprop/internal/compute"
)

// geometryInfo describes a layer configuration without running it.
type geometryInfo struct {
	InputBoardSize  int    `json:"input_board_size"`
	PoolingSize     int    `json:"pooling_size"`
	PadZeros        bool   `json:"pad_zeros"`
	OutputBoardSize int    `json:"output_board_size"`
	NumPlanes       int    `json:"num_planes"`
	BatchSize       int    `json:"batch_size"`
	InputElements   int    `json:"input_elements"`
	OutputElements  int    `json:"output_elements"`
	GroupSize       int    `json:"group_size"`
	LaunchWidth     int    `json:"launch_width"`
	BuildOptions    string `json:"build_options"`
}

func describeGeometry(in, pool int, pad bool, planes, batch, group int) (geometryInfo, error) {
	g, err := poolprop.NewGeometry(in, pool, pad)
	if err != nil {
		return geometryInfo{}, err
	}
	if planes <= 0 {
		return geometryInfo{}, fmt.Errorf("%d planes: %w", planes, poolprop.ErrInvalidGeometry)
	}
	if batch < 0 || group <= 0 {
		return geometryInfo{}, fmt.Errorf("batch %d, group size %d: %w", batch, group, poolprop.ErrInvalidArgument)
	}
	outLen := g.OutputLen(batch, planes)
	return geometryInfo{
		InputBoardSize:  g.InputBoardSize,
		PoolingSize:     g.PoolingSize,
		PadZeros:        g.PadZeros,
		OutputBoardSize: g.OutputBoardSize,
		NumPlanes:       planes,
		BatchSize:       batch,
		InputElements:   g.InputLen(batch, planes),
		OutputElements:  outLen,
		GroupSize:       group,
		LaunchWidth:     compute.RoundUp(outLen, group),
		BuildOptions:    g.BuildOptions(planes),
	}, nil
}

func geometryCmd() *cli.Command {
	return &cli.Command{
		Name:  "geometry",
		Usage: "Print the derived geometry, build options and launch width",
		Flags: concat(layerFlags(), []cli.Flag{
			&cli.Int64Flag{
				Name:        "group-size",
				Usage:       "group size the launch width is rounded to",
				Value:       64,
				Destination: &groupSize,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print as JSON",
				Destination: &jsonOut,
			},
		}),
		Action: func(ctx context.Context, c *cli.Command) error {
			info, err := describeGeometry(int(inputBoardSize), int(poolingSize), padZeros,
				int(numPlanes), int(batchSize), int(groupSize))
			if err != nil {
				return err
			}
			if jsonOut {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			w := os.Stdout
			fmt.Fprintf(w, "output board:  %dx%d\n", info.OutputBoardSize, info.OutputBoardSize)
			fmt.Fprintf(w, "elements:      %d in, %d out\n", info.InputElements, info.OutputElements)
			fmt.Fprintf(w, "launch width:  %d (group size %d)\n", info.LaunchWidth, info.GroupSize)
			fmt.Fprintf(w, "options:       %s\n", info.BuildOptions)
			return nil
		},
	}
}

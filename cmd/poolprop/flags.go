package main

import "github.com/urfave/cli/v3"

var (
	configFile     string
	backendName    string
	groupSize      int64
	workers        int64
	variantName    string
	inputBoardSize int64
	poolingSize    int64
	padZeros       bool
	numPlanes      int64
	batchSize      int64
	logLevel       string
	logFormat      string
)

func layerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "input-size",
			Aliases:     []string{"in"},
			Usage:       "input board size",
			Value:       19,
			Destination: &inputBoardSize,
		},
		&cli.Int64Flag{
			Name:        "pool-size",
			Aliases:     []string{"pool"},
			Usage:       "pooling window size",
			Value:       2,
			Destination: &poolingSize,
		},
		&cli.BoolFlag{
			Name:        "pad-zeros",
			Usage:       "keep partial windows when the board is not a multiple of the pool size",
			Destination: &padZeros,
		},
		&cli.Int64Flag{
			Name:        "planes",
			Usage:       "planes per example",
			Value:       8,
			Destination: &numPlanes,
		},
		&cli.Int64Flag{
			Name:        "batch",
			Aliases:     []string{"n"},
			Usage:       "examples per batch",
			Value:       32,
			Destination: &batchSize,
		},
	}
}

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "compute backend (auto, cpu, webgpu)",
			Value:       "cpu",
			Destination: &backendName,
		},
		&cli.Int64Flag{
			Name:        "group-size",
			Usage:       "cpu backend group size",
			Value:       64,
			Destination: &groupSize,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "cpu backend goroutines per launch (0 = one per CPU, 1 = sequential)",
			Destination: &workers,
		},
		&cli.StringFlag{
			Name:        "variant",
			Usage:       "propagator variant (auto, naive, host)",
			Value:       "auto",
			Destination: &variantName,
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

package main

import (
	"fmt"
	"strings"

	"github.com/born-ml/poolprop"
	"github.com/born-ml/poolprop/backend/cpu"
)

// openBackend returns the backend selected by name. "auto" prefers a GPU
// when one is available. workers 0 keeps the CPU default.
func openBackend(name string, groupSize, workers int) (poolprop.Backend, error) {
	if groupSize <= 0 {
		return nil, fmt.Errorf("group size must be positive, got %d", groupSize)
	}
	if workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", workers)
	}
	opts := []cpu.Option{cpu.WithGroupSize(groupSize)}
	if workers > 0 {
		opts = append(opts, cpu.WithWorkers(workers))
	}

	switch strings.ToLower(name) {
	case "cpu", "":
		return cpu.New(opts...), nil
	case "webgpu", "gpu":
		return openGPU()
	case "auto":
		if gpu, err := openGPU(); err == nil {
			return gpu, nil
		}
		return cpu.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want auto, cpu or webgpu)", name)
	}
}

//go:build !windows

package main

import (
	"fmt"

	"github.com/born-ml/poolprop"
)

func openGPU() (poolprop.Backend, error) {
	return nil, fmt.Errorf("webgpu backend is only built on windows: %w", poolprop.ErrUnsupported)
}

//go:build windows

package main

import (
	"fmt"

	"github.com/born-ml/poolprop"
	"github.com/born-ml/poolprop/backend/webgpu"
)

func openGPU() (poolprop.Backend, error) {
	if !webgpu.IsAvailable() {
		return nil, fmt.Errorf("webgpu: no adapter available")
	}
	gpu, err := webgpu.New()
	if err != nil {
		return nil, err
	}
	return gpu, nil
}

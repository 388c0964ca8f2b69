//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated pooling.
//
// Example:
//
//	import (
//	    "github.com/born-ml/poolprop"
//	    "github.com/born-ml/poolprop/backend/cpu"
//	    "github.com/born-ml/poolprop/backend/webgpu"
//	)
//
//	func main() {
//	    var backend poolprop.Backend = cpu.New()
//	    if webgpu.IsAvailable() {
//	        gpu, err := webgpu.New()
//	        if err != nil {
//	            log.Fatal(err)
//	        }
//	        backend = gpu
//	    }
//	    defer backend.Release()
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/poolprop/internal/backend/webgpu"
	"github.com/born-ml/poolprop/internal/compute"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements compute.Backend.
var _ compute.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// Call Release() when done to free GPU resources. Returns an error if
// WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go backend for pooling layers.
//
// Programs run on a goroutine pool in launch order. Buffers live in host
// memory, so results can be inspected without copies:
//
//	import (
//	    "github.com/born-ml/poolprop"
//	    "github.com/born-ml/poolprop/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    defer backend.Release()
//
//	    layer, err := poolprop.New(backend, poolprop.Config{
//	        NumPlanes: 32, InputBoardSize: 19, PoolingSize: 2, PadZeros: true,
//	    })
//	    ...
//	}
package cpu

import (
	internalcpu "github.com/born-ml/poolprop/internal/backend/cpu"
	"github.com/born-ml/poolprop/internal/compute"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// DefaultGroupSize is the execution group size used unless WithGroupSize is given.
const DefaultGroupSize = internalcpu.DefaultGroupSize

// Compile-time check that Backend implements compute.Backend.
var _ compute.Backend = (*Backend)(nil)

// New creates a new CPU backend.
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithWorkers bounds the goroutines running the groups of one launch;
// 1 runs them sequentially.
func WithWorkers(n int) Option {
	return internalcpu.WithWorkers(n)
}

// WithGroupSize sets the group size launches are rounded up to.
func WithGroupSize(n int) Option {
	return internalcpu.WithGroupSize(n)
}

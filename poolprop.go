// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package poolprop provides the forward pass of max-pooling layers on
// pluggable compute backends.
//
// A layer pools non-overlapping square windows of every input board,
// producing the window maxima and, for the backward pass, the row-major
// offset of each maximum within its window (the selector). Geometry is
// compiled into the backend program once per distinct configuration and
// reused by every call.
//
// # Basic Usage
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
//	        NumPlanes:      8,
//	        InputBoardSize: 19,
//	        PoolingSize:    2,
//	        PadZeros:       true,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer layer.Release()
//
//	    g := layer.Geometry()
//	    in, _ := backend.NewBuffer(poolprop.Float32, g.InputLen(batch, 8))
//	    sel, _ := backend.NewBuffer(poolprop.Int32, g.OutputLen(batch, 8))
//	    out, _ := backend.NewBuffer(poolprop.Float32, g.OutputLen(batch, 8))
//	    err = layer.Propagate(batch, in, sel, out)
//	}
//
// Logging is silent until SetLogger is called.
package poolprop

import (
	"log/slog"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/logging"
	"github.com/born-ml/poolprop/internal/pooling"
	"github.com/born-ml/poolprop/internal/timing"
)

// Backend is a compute device able to build and launch programs.
type Backend = compute.Backend

// Buffer is device memory holding float32 or int32 elements.
type Buffer = compute.Buffer

// DataType is the element type of a Buffer.
type DataType = compute.DataType

// Buffer element types.
const (
	Float32 = compute.Float32
	Int32   = compute.Int32
)

// Propagator runs the forward pass of one pooling layer.
type Propagator = pooling.Propagator

// Config describes a pooling layer.
type Config = pooling.Config

// Geometry holds the derived board sizes of a layer.
type Geometry = pooling.Geometry

// Variant selects a Propagator implementation.
type Variant = pooling.Variant

// Available variants.
const (
	VariantAuto  = pooling.VariantAuto
	VariantNaive = pooling.VariantNaive
	VariantHost  = pooling.VariantHost
)

// Timer receives checkpoints around every propagation.
type Timer = timing.Timer

// StatefulTimer accumulates elapsed time per checkpoint label.
type StatefulTimer = timing.StatefulTimer

// Errors returned by layers and backends. Match them with errors.Is.
var (
	ErrInvalidGeometry = pooling.ErrInvalidGeometry
	ErrBufferSize      = pooling.ErrBufferSize
	ErrUnknownVariant  = pooling.ErrUnknownVariant
	ErrBuild           = compute.ErrBuild
	ErrLaunch          = compute.ErrLaunch
	ErrInvalidArgument = compute.ErrInvalidArgument
	ErrReleased        = compute.ErrReleased
	ErrUnsupported     = compute.ErrUnsupported
)

// New builds the pooling layer described by cfg on backend.
func New(backend Backend, cfg Config) (Propagator, error) {
	return pooling.New(backend, cfg)
}

// NewGeometry derives the output board size for the given input board
// and pooling sizes.
func NewGeometry(inputBoardSize, poolingSize int, padZeros bool) (Geometry, error) {
	return pooling.NewGeometry(inputBoardSize, poolingSize, padZeros)
}

// ParseVariant maps a variant name ("auto", "naive", "host") to a Variant.
func ParseVariant(name string) (Variant, error) {
	return pooling.ParseVariant(name)
}

// NewStatefulTimer creates a timer with a fresh session ID.
func NewStatefulTimer() *StatefulTimer {
	return timing.NewStatefulTimer()
}

// SetLogger configures the logger for all poolprop packages.
// Pass nil to disable logging (restore default silent behavior).
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logging.Logger()
}

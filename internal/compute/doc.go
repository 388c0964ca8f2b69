// Package compute defines the contract between pooling layers and the
// data-parallel devices that execute them.
//
// A Backend builds Programs from kernel source plus a textual list of
// build-time definitions, allocates Buffers, launches one-dimensional
// grids of execution units and blocks until they complete. The CPU and
// WebGPU devices in internal/backend implement it.
package compute

package compute

import (
	"fmt"
	"sync"
)

// HostKernel receives the arguments bound for one launch and returns the
// function run by every execution unit of that launch. Argument type errors
// are returned here, before any unit runs.
type HostKernel func(args []any) (func(globalID int), error)

// HostKernelSpec is a host kernel specialized for one set of build options.
type HostKernelSpec struct {
	Kernel  HostKernel
	NumArgs int
}

// HostKernelBuilder specializes a host kernel from parsed build options.
// Returning an error fails the program build.
type HostKernelBuilder func(defs Defines) (HostKernelSpec, error)

var (
	hostKernelsMu sync.RWMutex
	hostKernels   = make(map[string]HostKernelBuilder)
)

// RegisterHostKernel makes entryPoint buildable by host devices.
// This is typically called from init() in the package owning the kernel.
// Registering the same entry point twice replaces the previous builder.
func RegisterHostKernel(entryPoint string, builder HostKernelBuilder) {
	hostKernelsMu.Lock()
	defer hostKernelsMu.Unlock()
	hostKernels[entryPoint] = builder
}

// LookupHostKernel returns the builder registered for entryPoint.
func LookupHostKernel(entryPoint string) (HostKernelBuilder, error) {
	hostKernelsMu.RLock()
	defer hostKernelsMu.RUnlock()

	b, ok := hostKernels[entryPoint]
	if !ok {
		return nil, fmt.Errorf("%w: no host kernel for entry point %q", ErrBuild, entryPoint)
	}
	return b, nil
}

// Package cpu implements a host compute device. Kernels are Go functions
// registered with compute.RegisterHostKernel; work groups run concurrently
// on goroutines.
package cpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/logging"
	"github.com/born-ml/poolprop/internal/parallel"
)

// DefaultGroupSize is the execution group size reported when none is configured.
const DefaultGroupSize = 64

// kernel is the compiled artifact shared by every handle of one ProgramKey.
type kernel struct {
	name  string
	label string
	spec  compute.HostKernelSpec
}

// CPUBackend executes host kernels. Launches form an in-order queue: each
// one starts after the previous one has finished.
type CPUBackend struct {
	groupSize int
	parallel  parallel.Config

	cache *compute.ProgramCache[*kernel]

	mu   sync.Mutex
	tail chan struct{} // closed when the last enqueued launch finishes

	launches atomic.Uint64
	released atomic.Bool
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithGroupSize sets the preferred execution group size.
func WithGroupSize(n int) Option {
	return func(b *CPUBackend) {
		b.groupSize = n
	}
}

// WithParallel sets how work groups are spread over goroutines.
func WithParallel(cfg parallel.Config) Option {
	return func(b *CPUBackend) {
		b.parallel = cfg
	}
}

// WithWorkers bounds the goroutines running the groups of one launch.
// n <= 1 runs every group on the queue's own goroutine.
func WithWorkers(n int) Option {
	if n <= 1 {
		return WithParallel(parallel.Sequential())
	}
	cfg := parallel.DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = n
	return WithParallel(cfg)
}

// New creates a CPU backend.
func New(opts ...Option) *CPUBackend {
	b := &CPUBackend{
		groupSize: DefaultGroupSize,
		parallel:  parallel.DefaultConfig(),
		cache:     compute.NewProgramCache[*kernel](nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.groupSize <= 0 {
		panic(fmt.Sprintf("cpu: invalid group size %d", b.groupSize))
	}
	logging.Logger().Info("cpu backend ready", "group_size", b.groupSize, "workers", b.parallel.NumWorkers)
	return b
}

// Name returns the backend name.
func (b *CPUBackend) Name() string {
	return "CPU"
}

// PreferredGroupSize implements compute.Backend.
func (b *CPUBackend) PreferredGroupSize() int {
	return b.groupSize
}

// BuildProgram implements compute.Backend. The source text only keys the
// cache; the entry point selects the registered host kernel, which is
// specialized with the parsed options.
func (b *CPUBackend) BuildProgram(source, entryPoint, options, label string) (compute.Program, error) {
	if b.released.Load() {
		return nil, fmt.Errorf("cpu: build %s: %w", entryPoint, compute.ErrReleased)
	}

	key := compute.NewProgramKey(source, entryPoint, options, label)
	k, hit, err := b.cache.Acquire(key, func() (*kernel, error) {
		return buildKernel(entryPoint, options, label)
	})
	if err != nil {
		return nil, fmt.Errorf("cpu: build %s (%s): %w", entryPoint, label, err)
	}
	logging.Logger().Debug("cpu program ready", "entry", entryPoint, "label", label, "options", options, "cached", hit)

	return &program{
		backend: b,
		key:     key,
		kernel:  k,
		args:    make([]any, k.spec.NumArgs),
	}, nil
}

func buildKernel(entryPoint, options, label string) (*kernel, error) {
	builder, err := compute.LookupHostKernel(entryPoint)
	if err != nil {
		return nil, err
	}
	defs, err := compute.ParseDefines(options)
	if err != nil {
		return nil, err
	}
	spec, err := builder(defs)
	if err != nil {
		return nil, err
	}
	if spec.Kernel == nil {
		return nil, fmt.Errorf("%w: host kernel %q returned no function", compute.ErrBuild, entryPoint)
	}
	return &kernel{name: entryPoint, label: label, spec: spec}, nil
}

// NewBuffer implements compute.Backend.
func (b *CPUBackend) NewBuffer(dtype compute.DataType, n int) (compute.Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("cpu: buffer length %d: %w", n, compute.ErrInvalidArgument)
	}
	buf := &buffer{backend: b, dtype: dtype}
	switch dtype {
	case compute.Float32:
		buf.f32 = make([]float32, n)
	case compute.Int32:
		buf.i32 = make([]int32, n)
	default:
		return nil, fmt.Errorf("cpu: buffer dtype %s: %w", dtype, compute.ErrUnsupported)
	}
	return buf, nil
}

// enqueue schedules run after every previously enqueued launch. A failure
// is handed to report before the returned channel is closed.
func (b *CPUBackend) enqueue(run func() error, report func(error)) <-chan struct{} {
	b.mu.Lock()
	prev := b.tail
	done := make(chan struct{})
	b.tail = done
	b.mu.Unlock()

	b.launches.Add(1)
	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		if err := run(); err != nil {
			report(err)
		}
	}()
	return done
}

// wait blocks until the queue is drained.
func (b *CPUBackend) wait() {
	b.mu.Lock()
	tail := b.tail
	b.mu.Unlock()
	if tail != nil {
		<-tail
	}
}

// Synchronize implements compute.Backend. Kernel failures belong to the
// launching handle and are reported by its Wait, so layers sharing a
// backend never see each other's errors here.
func (b *CPUBackend) Synchronize() error {
	if b.released.Load() {
		return fmt.Errorf("cpu: synchronize: %w", compute.ErrReleased)
	}
	b.wait()
	return nil
}

// Launches returns how many launches have been enqueued.
func (b *CPUBackend) Launches() uint64 {
	return b.launches.Load()
}

// ProgramsBuilt returns how many distinct programs have been compiled.
func (b *CPUBackend) ProgramsBuilt() uint64 {
	return b.cache.Builds()
}

// LivePrograms returns how many compiled programs are still referenced.
func (b *CPUBackend) LivePrograms() int {
	return b.cache.Len()
}

// Release waits for outstanding work and drops all compiled programs.
func (b *CPUBackend) Release() {
	if b.released.Swap(true) {
		return
	}
	b.wait()
	b.cache.Clear()
}

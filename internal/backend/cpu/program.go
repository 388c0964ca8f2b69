package cpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/parallel"
)

// program is one handle on a cached kernel. Bindings belong to the handle,
// so handles sharing a kernel do not interfere.
type program struct {
	backend  *CPUBackend
	key      compute.ProgramKey
	kernel   *kernel
	args     []any
	bindErr  error
	released bool

	mu        sync.Mutex
	last      <-chan struct{} // closed when the handle's latest launch finishes
	launchErr error
}

func (p *program) Name() string {
	return p.kernel.name
}

func (p *program) Bind(index int, value any) compute.Program {
	if p.bindErr != nil {
		return p
	}
	if index < 0 || index >= len(p.args) {
		p.bindErr = fmt.Errorf("argument %d out of range [0,%d): %w", index, len(p.args), compute.ErrInvalidArgument)
		return p
	}

	switch v := value.(type) {
	case int:
		p.args[index] = int32(v) //nolint:gosec // G115: kernel scalars are 32-bit
	case int32:
		p.args[index] = v
	case *buffer:
		if v.backend != p.backend {
			p.bindErr = fmt.Errorf("argument %d: buffer belongs to another device: %w", index, compute.ErrInvalidArgument)
			return p
		}
		p.args[index] = v
	default:
		p.bindErr = fmt.Errorf("argument %d: unsupported value %T: %w", index, value, compute.ErrInvalidArgument)
	}
	return p
}

func (p *program) Launch1D(globalSize, groupSize int) error {
	if p.released {
		return fmt.Errorf("cpu: launch %s: %w", p.kernel.name, compute.ErrReleased)
	}
	if p.bindErr != nil {
		err := p.bindErr
		p.bindErr = nil
		return fmt.Errorf("cpu: launch %s: %w: %w", p.kernel.name, compute.ErrLaunch, err)
	}
	if groupSize <= 0 || globalSize < 0 || globalSize%groupSize != 0 {
		return fmt.Errorf("cpu: launch %s: global size %d not a multiple of group size %d: %w: %w",
			p.kernel.name, globalSize, groupSize, compute.ErrLaunch, compute.ErrInvalidArgument)
	}
	for i, a := range p.args {
		if a == nil {
			return fmt.Errorf("cpu: launch %s: argument %d not bound: %w", p.kernel.name, i, compute.ErrLaunch)
		}
	}

	args := make([]any, len(p.args))
	copy(args, p.args)
	run, err := p.kernel.spec.Kernel(args)
	if err != nil {
		return fmt.Errorf("cpu: launch %s: %w: %w", p.kernel.name, compute.ErrLaunch, err)
	}
	name := p.kernel.name
	cfg := p.backend.parallel
	numGroups := globalSize / groupSize

	done := p.backend.enqueue(func() error {
		err := parallel.ForGroups(numGroups, func(g int) {
			for id := g * groupSize; id < (g+1)*groupSize; id++ {
				run(id)
			}
		}, cfg)
		if err != nil {
			return fmt.Errorf("cpu: %s: %w: %w", name, compute.ErrLaunch, err)
		}
		return nil
	}, p.report)

	p.mu.Lock()
	p.last = done
	p.mu.Unlock()
	return nil
}

// report records the first failure of this handle's launches.
func (p *program) report(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.launchErr == nil {
		p.launchErr = err
	}
}

func (p *program) Wait() error {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last != nil {
		<-last
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.launchErr
	p.launchErr = nil
	return err
}

func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	p.args = nil
	p.backend.cache.Release(p.key)
}

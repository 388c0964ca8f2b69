package pooling

import (
	"fmt"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/logging"
	"github.com/born-ml/poolprop/internal/timing"
)

// Naive launches one execution unit per output element, with the geometry
// compiled into the program.
type Naive struct {
	backend   compute.Backend
	program   compute.Program
	geom      Geometry
	numPlanes int
	timer     timing.Timer
}

func newNaive(backend compute.Backend, geom Geometry, numPlanes int, timer timing.Timer) (*Naive, error) {
	program, err := backend.BuildProgram(KernelSource, EntryPoint, geom.BuildOptions(numPlanes), SourceLabel)
	if err != nil {
		return nil, fmt.Errorf("pooling: build %s: %w", EntryPoint, err)
	}
	return &Naive{
		backend:   backend,
		program:   program,
		geom:      geom,
		numPlanes: numPlanes,
		timer:     timer,
	}, nil
}

// Geometry implements Propagator.
func (p *Naive) Geometry() Geometry { return p.geom }

// NumPlanes implements Propagator.
func (p *Naive) NumPlanes() int { return p.numPlanes }

// Variant implements Propagator.
func (p *Naive) Variant() Variant { return VariantNaive }

// LaunchWidth is the number of execution units launched for batchSize:
// the output element count rounded up to the backend's group size.
func (p *Naive) LaunchWidth(batchSize int) int {
	return compute.RoundUp(p.geom.OutputLen(batchSize, p.numPlanes), p.backend.PreferredGroupSize())
}

// Propagate implements Propagator.
func (p *Naive) Propagate(batchSize int, input, selectors, output compute.Buffer) error {
	if p.program == nil {
		return fmt.Errorf("pooling: naive propagate: %w", compute.ErrReleased)
	}
	p.timer.Checkpoint("Naive::propagate start")
	defer p.timer.Checkpoint("Naive::propagate end")

	if err := checkBuffers(p.geom, p.numPlanes, batchSize, input, selectors, output); err != nil {
		return err
	}
	if batchSize == 0 {
		return nil
	}

	groupSize := p.backend.PreferredGroupSize()
	globalSize := p.LaunchWidth(batchSize)
	logging.Logger().Debug("naive propagate",
		"batch", batchSize, "elements", p.geom.OutputLen(batchSize, p.numPlanes),
		"global_size", globalSize, "group_size", groupSize)

	//nolint:gosec // G115: batch sizes fit in int32
	err := p.program.
		Bind(0, int32(batchSize)).
		Bind(1, input).
		Bind(2, selectors).
		Bind(3, output).
		Launch1D(globalSize, groupSize)
	if err != nil {
		return fmt.Errorf("pooling: naive propagate: %w", err)
	}
	if err := p.backend.Synchronize(); err != nil {
		return fmt.Errorf("pooling: naive propagate: %w", err)
	}
	if err := p.program.Wait(); err != nil {
		return fmt.Errorf("pooling: naive propagate: %w", err)
	}
	return nil
}

// Release implements Propagator.
func (p *Naive) Release() {
	if p.program != nil {
		p.program.Release()
		p.program = nil
	}
}

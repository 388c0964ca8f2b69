package pooling

import (
	"fmt"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/parallel"
	"github.com/born-ml/poolprop/internal/timing"
)

// Host reads the input back from the device, pools every board on the
// host and writes the results to the device buffers. It needs no program,
// so it works on any backend.
type Host struct {
	geom      Geometry
	numPlanes int
	consts    kernelConstants
	timer     timing.Timer
	parallel  parallel.Config
	released  bool
}

func newHost(_ compute.Backend, geom Geometry, numPlanes int, timer timing.Timer) (*Host, error) {
	// Same path as program builds, so both variants agree on the constants.
	defs, err := compute.ParseDefines(geom.BuildOptions(numPlanes))
	if err != nil {
		return nil, fmt.Errorf("pooling: host options: %w", err)
	}
	consts, err := constantsFromDefines(defs)
	if err != nil {
		return nil, fmt.Errorf("pooling: host options: %w", err)
	}
	return &Host{
		geom:      geom,
		numPlanes: numPlanes,
		consts:    consts,
		timer:     timer,
		parallel:  parallel.DefaultConfig(),
	}, nil
}

// Geometry implements Propagator.
func (p *Host) Geometry() Geometry { return p.geom }

// NumPlanes implements Propagator.
func (p *Host) NumPlanes() int { return p.numPlanes }

// Variant implements Propagator.
func (p *Host) Variant() Variant { return VariantHost }

// Propagate implements Propagator.
func (p *Host) Propagate(batchSize int, input, selectors, output compute.Buffer) error {
	if p.released {
		return fmt.Errorf("pooling: host propagate: %w", compute.ErrReleased)
	}
	p.timer.Checkpoint("Host::propagate start")
	defer p.timer.Checkpoint("Host::propagate end")

	if err := checkBuffers(p.geom, p.numPlanes, batchSize, input, selectors, output); err != nil {
		return err
	}
	if batchSize == 0 {
		return nil
	}

	in, err := input.ReadFloat32()
	if err != nil {
		return fmt.Errorf("pooling: host propagate: read input: %w", err)
	}
	sel, out := p.propagate(batchSize, in)
	if err := selectors.WriteInt32(sel); err != nil {
		return fmt.Errorf("pooling: host propagate: write selectors: %w", err)
	}
	if err := output.WriteFloat32(out); err != nil {
		return fmt.Errorf("pooling: host propagate: write output: %w", err)
	}
	return nil
}

// propagate pools one board per (example, plane) pair concurrently.
func (p *Host) propagate(batchSize int, input []float32) ([]int32, []float32) {
	n := p.geom.OutputLen(batchSize, p.numPlanes)
	selectors := make([]int32, n)
	output := make([]float32, n)

	boardLen := p.consts.outputBoardSizeSquared
	parallel.ForBatch(batchSize, p.numPlanes, func(example, plane int) {
		base := (example*p.numPlanes + plane) * boardLen
		for id := base; id < base+boardLen; id++ {
			p.consts.unit(id, batchSize, input, selectors, output)
		}
	}, p.parallel)
	return selectors, output
}

// Release implements Propagator.
func (p *Host) Release() {
	p.released = true
}

// PropagateSlices pools a host tensor without any device. It is the
// reference the device variants are checked against.
func PropagateSlices(geom Geometry, numPlanes, batchSize int, input []float32) ([]int32, []float32, error) {
	if numPlanes <= 0 {
		return nil, nil, fmt.Errorf("pooling: %d planes: %w", numPlanes, ErrInvalidGeometry)
	}
	if batchSize < 0 {
		return nil, nil, fmt.Errorf("pooling: batch size %d: %w", batchSize, compute.ErrInvalidArgument)
	}
	if want := geom.InputLen(batchSize, numPlanes); len(input) < want {
		return nil, nil, fmt.Errorf("pooling: input holds %d elements, need %d: %w", len(input), want, ErrBufferSize)
	}
	h, err := newHost(nil, geom, numPlanes, timing.Nop{})
	if err != nil {
		return nil, nil, err
	}
	sel, out := h.propagate(batchSize, input)
	return sel, out, nil
}

//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/logging"
)

func unsafeBytes(p unsafe.Pointer, n uint64) []byte {
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	return unsafe.Slice((*byte)(p), n)
}

// BuildProgram implements compute.Backend. Pipelines are cached per
// (source, entry point, options); handles share them.
func (b *Backend) BuildProgram(source, entryPoint, options, label string) (compute.Program, error) {
	if b.released.Load() {
		return nil, fmt.Errorf("webgpu: build %s: %w", entryPoint, compute.ErrReleased)
	}

	key := compute.NewProgramKey(source, entryPoint, options, label)
	p, hit, err := b.cache.Acquire(key, func() (*pipeline, error) {
		return b.buildPipeline(source, entryPoint, options, label)
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: build %s (%s): %w", entryPoint, label, err)
	}
	logging.Logger().Debug("webgpu program ready", "entry", entryPoint, "label", label, "options", options, "cached", hit)

	return &program{
		backend:  b,
		key:      key,
		pipeline: p,
		args:     make([]any, p.numArgs),
	}, nil
}

func (b *Backend) buildPipeline(source, entryPoint, options, label string) (p *pipeline, err error) {
	code, err := Specialize(source, options, workgroupSize)
	if err != nil {
		return nil, err
	}
	if err := Validate(code, label); err != nil {
		return nil, err
	}

	// Device-side rejections surface as panics from the bindings.
	defer func() {
		if r := recover(); r != nil {
			if p != nil {
				p.release()
			}
			p = nil
			err = fmt.Errorf("%w: %s: %v", compute.ErrBuild, label, r)
		}
	}()

	p = &pipeline{name: entryPoint, numArgs: numBindings(source)}
	p.shader = b.device.CreateShaderModuleWGSL(code)
	if p.shader == nil {
		return nil, fmt.Errorf("%w: %s: shader module rejected", compute.ErrBuild, label)
	}
	p.pipeline = b.device.CreateComputePipelineSimple(nil, p.shader, entryPoint)
	if p.pipeline == nil {
		p.release()
		return nil, fmt.Errorf("%w: %s: no pipeline for entry point %q", compute.ErrBuild, label, entryPoint)
	}
	p.layout = p.pipeline.GetBindGroupLayout(0)
	return p, nil
}

// program is one handle on a cached pipeline. Argument index i is bound to
// @binding(i) of group 0.
type program struct {
	backend  *Backend
	key      compute.ProgramKey
	pipeline *pipeline
	args     []any
	bindErr  error
	released bool
}

func (p *program) Name() string {
	return p.pipeline.name
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
	name := p.pipeline.name
	if p.released || p.backend.released.Load() {
		return fmt.Errorf("webgpu: launch %s: %w", name, compute.ErrReleased)
	}
	if p.bindErr != nil {
		err := p.bindErr
		p.bindErr = nil
		return fmt.Errorf("webgpu: launch %s: %w: %w", name, compute.ErrLaunch, err)
	}
	if groupSize != workgroupSize || globalSize < 0 || globalSize%groupSize != 0 {
		return fmt.Errorf("webgpu: launch %s: global size %d, group size %d (compiled for %d): %w: %w",
			name, globalSize, groupSize, workgroupSize, compute.ErrLaunch, compute.ErrInvalidArgument)
	}

	gridX, gridY, err := dispatchGrid(globalSize/groupSize, groupSize, maxWorkgroupsPerDimension)
	if err != nil {
		return fmt.Errorf("webgpu: launch %s: %w", name, err)
	}

	b := p.backend
	entries := make([]wgpu.BindGroupEntry, 0, len(p.args))
	var uniforms []*wgpu.Buffer
	releaseUniforms := func() {
		for _, u := range uniforms {
			u.Release()
		}
	}
	for i, a := range p.args {
		binding := uint32(i) //nolint:gosec // G115: binding indices are small
		switch v := a.(type) {
		case nil:
			releaseUniforms()
			return fmt.Errorf("webgpu: launch %s: argument %d not bound: %w", name, i, compute.ErrLaunch)
		case int32:
			u := b.createUniformBuffer(v)
			uniforms = append(uniforms, u)
			entries = append(entries, wgpu.BufferBindingEntry(binding, u, 0, 16))
		case *buffer:
			if v.buf == nil {
				releaseUniforms()
				return fmt.Errorf("webgpu: launch %s: argument %d: %w", name, i, compute.ErrReleased)
			}
			entries = append(entries, wgpu.BufferBindingEntry(binding, v.buf, 0, v.size))
		}
	}

	bindGroup := b.device.CreateBindGroupSimple(p.pipeline.layout, entries)

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(p.pipeline.pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	if globalSize > 0 {
		//nolint:gosec // G115: grid sides are within the dispatch limit
		computePass.DispatchWorkgroups(uint32(gridX), uint32(gridY), 1)
	}
	computePass.End()
	cmdBuffer := encoder.Finish(nil)

	b.queueCommand(cmdBuffer, func() {
		bindGroup.Release()
		releaseUniforms()
	})
	return nil
}

// Wait submits pending work and blocks on the device fence. Device errors
// cannot be attributed to a pipeline, so every handle shares them.
func (p *program) Wait() error {
	if p.released {
		return fmt.Errorf("webgpu: wait %s: %w", p.pipeline.name, compute.ErrReleased)
	}
	return p.backend.Synchronize()
}

func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	p.args = nil
	p.backend.cache.Release(p.key)
}

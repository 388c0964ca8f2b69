//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/logging"
)

// pipeline is the compiled artifact shared by every handle of one ProgramKey.
type pipeline struct {
	name     string
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
	numArgs  int
}

func (p *pipeline) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.shader != nil {
		p.shader.Release()
	}
}

// Backend runs compute programs on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo

	cache   *compute.ProgramCache[*pipeline]
	staging *stagingPool

	// Commands are accumulated and submitted together on Synchronize or
	// before any transfer, so launches stay ordered with reads and writes.
	pendingMu       sync.Mutex
	pendingCommands []*wgpu.CommandBuffer
	transient       []func()

	fence    *wgpu.Buffer
	released atomic.Bool
}

// New creates a WebGPU backend on the high-performance adapter.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	b := &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: &adapterInfo,
		cache:       compute.NewProgramCache((*pipeline).release),
		staging:     newStagingPool(device, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst),
	}
	b.fence = b.createBuffer(make([]byte, 4), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)

	logging.Logger().Info("webgpu backend ready", "adapter", b.Name())
	return b, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfo {
	return b.adapterInfo
}

// PreferredGroupSize implements compute.Backend.
func (b *Backend) PreferredGroupSize() int {
	return workgroupSize
}

// ProgramsBuilt returns how many distinct pipelines have been compiled.
func (b *Backend) ProgramsBuilt() uint64 {
	return b.cache.Builds()
}

// NewBuffer implements compute.Backend. Buffers are zero-initialized.
func (b *Backend) NewBuffer(dtype compute.DataType, n int) (compute.Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("webgpu: buffer length %d: %w", n, compute.ErrInvalidArgument)
	}
	if dtype != compute.Float32 && dtype != compute.Int32 {
		return nil, fmt.Errorf("webgpu: buffer dtype %s: %w", dtype, compute.ErrUnsupported)
	}
	// Zero-sized bindings are invalid; keep at least one element.
	size := uint64(max(n, 1) * dtype.Size()) //nolint:gosec // G115: n is non-negative
	buf := b.createBuffer(make([]byte, size),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	return &buffer{backend: b, buf: buf, dtype: dtype, n: n, size: size}, nil
}

// queueCommand adds a command buffer to the pending queue for batch submission.
func (b *Backend) queueCommand(cmdBuffer *wgpu.CommandBuffer, cleanup func()) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	b.pendingCommands = append(b.pendingCommands, cmdBuffer)
	if cleanup != nil {
		b.transient = append(b.transient, cleanup)
	}
}

// flushCommands submits all pending command buffers to the GPU queue.
func (b *Backend) flushCommands() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	if len(b.pendingCommands) == 0 {
		return
	}
	b.queue.Submit(b.pendingCommands...)
	b.pendingCommands = b.pendingCommands[:0]
}

// Synchronize implements compute.Backend. It submits pending launches and
// blocks on a fence read that the queue orders after them.
func (b *Backend) Synchronize() error {
	if b.released.Load() {
		return fmt.Errorf("webgpu: synchronize: %w", compute.ErrReleased)
	}
	b.flushCommands()

	if _, err := b.readBuffer(b.fence, 4); err != nil {
		return fmt.Errorf("webgpu: synchronize: %w: %w", compute.ErrLaunch, err)
	}

	b.pendingMu.Lock()
	cleanups := b.transient
	b.transient = nil
	b.pendingMu.Unlock()
	for _, release := range cleanups {
		release()
	}
	return nil
}

// createBuffer creates a GPU buffer initialized with data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	copy(unsafeBytes(mappedPtr, size), data)
	buffer.Unmap()

	return buffer
}

// createUniformBuffer creates a uniform buffer holding one int32 scalar.
// Uniform buffers require 16-byte alignment.
func (b *Backend) createUniformBuffer(v int32) *wgpu.Buffer {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(v)) //nolint:gosec // G115: bit pattern of an i32
	return b.createBuffer(params, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

// readBuffer reads data back from a GPU buffer through a pooled staging buffer.
// Pending commands are submitted first so the copy observes them.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	b.flushCommands()

	staging, class := b.staging.acquire(size)
	defer b.staging.release(staging, class)

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	result := make([]byte, size)
	copy(result, unsafeBytes(mappedPtr, size))
	staging.Unmap()

	return result, nil
}

// writeBuffer uploads data into dst through a temporary mapped buffer.
func (b *Backend) writeBuffer(dst *wgpu.Buffer, data []byte) {
	b.flushCommands()

	upload := b.createBuffer(data, wgpu.BufferUsageCopySrc)
	defer upload.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(upload, 0, dst, 0, uint64(len(data)))
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)
}

// Release releases all WebGPU resources.
func (b *Backend) Release() {
	if b.released.Swap(true) {
		return
	}
	b.flushCommands()

	b.pendingMu.Lock()
	for _, release := range b.transient {
		release()
	}
	b.transient = nil
	b.pendingMu.Unlock()

	b.cache.Clear()
	b.staging.clear()
	if b.fence != nil {
		b.fence.Release()
		b.fence = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

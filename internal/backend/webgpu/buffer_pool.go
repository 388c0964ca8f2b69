//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooledPerClass bounds how many idle buffers each size class keeps.
const maxPooledPerClass = 16

// stagingPool recycles host-visible staging buffers between transfers.
// Buffers are bucketed by power-of-two size class so a request is served
// by any idle buffer of its class.
type stagingPool struct {
	device *wgpu.Device
	usage  wgpu.BufferUsage

	mu      sync.Mutex
	classes map[int][]*wgpu.Buffer

	hits   uint64
	misses uint64
}

func newStagingPool(device *wgpu.Device, usage wgpu.BufferUsage) *stagingPool {
	return &stagingPool{
		device:  device,
		usage:   usage,
		classes: make(map[int][]*wgpu.Buffer),
	}
}

// sizeClass returns the class index and the byte size of buffers in it.
func sizeClass(size uint64) (int, uint64) {
	if size <= 4 {
		return 2, 4
	}
	c := bits.Len64(size - 1)
	return c, 1 << c
}

// acquire returns an idle buffer of at least size bytes.
func (p *stagingPool) acquire(size uint64) (*wgpu.Buffer, int) {
	class, classSize := sizeClass(size)

	p.mu.Lock()
	defer p.mu.Unlock()

	if idle := p.classes[class]; len(idle) > 0 {
		buf := idle[len(idle)-1]
		p.classes[class] = idle[:len(idle)-1]
		p.hits++
		return buf, class
	}

	p.misses++
	buf := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: p.usage,
		Size:  classSize,
	})
	return buf, class
}

// release hands buf back for reuse, or frees it when its class is full.
func (p *stagingPool) release(buf *wgpu.Buffer, class int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.classes[class]) >= maxPooledPerClass {
		buf.Release()
		return
	}
	p.classes[class] = append(p.classes[class], buf)
}

// clear frees every idle buffer.
func (p *stagingPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for class, idle := range p.classes {
		for _, buf := range idle {
			buf.Release()
		}
		delete(p.classes, class)
	}
}

// stats reports reuse counters and the number of idle buffers.
func (p *stagingPool) stats() (hits, misses uint64, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, bufs := range p.classes {
		idle += len(bufs)
	}
	return p.hits, p.misses, idle
}

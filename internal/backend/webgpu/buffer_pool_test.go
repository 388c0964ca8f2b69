//go:build windows

package webgpu

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		size      uint64
		class     int
		classSize uint64
	}{
		{0, 2, 4},
		{1, 2, 4},
		{4, 2, 4},
		{5, 3, 8},
		{64, 6, 64},
		{65, 7, 128},
		{1 << 20, 20, 1 << 20},
	}
	for _, tt := range tests {
		class, classSize := sizeClass(tt.size)
		assert.Equal(t, tt.class, class, "size %d", tt.size)
		assert.Equal(t, tt.classSize, classSize, "size %d", tt.size)
		assert.GreaterOrEqual(t, classSize, tt.size)
	}
}

func TestStagingPool_Reuse(t *testing.T) {
	b := newTestBackend(t)
	pool := b.staging

	hits0, misses0, _ := pool.stats()

	buf, class := pool.acquire(100)
	pool.release(buf, class)
	again, againClass := pool.acquire(120)
	assert.Same(t, buf, again, "same size class should reuse the idle buffer")
	assert.Equal(t, class, againClass)
	pool.release(again, againClass)

	hits, misses, idle := pool.stats()
	assert.Equal(t, hits0+1, hits)
	assert.Equal(t, misses0+1, misses)
	assert.GreaterOrEqual(t, idle, 1)

	pool.clear()
	_, _, idle = pool.stats()
	assert.Zero(t, idle)
}

func TestStagingPool_BoundedPerClass(t *testing.T) {
	b := newTestBackend(t)
	pool := b.staging
	pool.clear()

	bufs := make([]*wgpu.Buffer, 0, maxPooledPerClass+4)
	class := 0
	for i := 0; i < maxPooledPerClass+4; i++ {
		buf, c := pool.acquire(256)
		bufs = append(bufs, buf)
		class = c
	}
	for _, buf := range bufs {
		pool.release(buf, class)
	}

	_, _, idle := pool.stats()
	assert.Equal(t, maxPooledPerClass, idle)
}

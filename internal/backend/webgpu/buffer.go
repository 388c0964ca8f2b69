//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/poolprop/internal/compute"
)

// buffer is a storage buffer on the device. size is its byte size, which
// is never zero even for empty buffers.
type buffer struct {
	backend *Backend
	buf     *wgpu.Buffer
	dtype   compute.DataType
	n       int
	size    uint64
}

var _ compute.Buffer = (*buffer)(nil)

func (b *buffer) DType() compute.DataType { return b.dtype }
func (b *buffer) Len() int                { return b.n }

func (b *buffer) WriteFloat32(data []float32) error {
	if err := b.check(compute.Float32, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	b.backend.writeBuffer(b.buf, raw)
	return nil
}

func (b *buffer) WriteInt32(data []int32) error {
	if err := b.check(compute.Int32, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v)) //nolint:gosec // G115: bit pattern of an i32
	}
	b.backend.writeBuffer(b.buf, raw)
	return nil
}

func (b *buffer) ReadFloat32() ([]float32, error) {
	raw, err := b.read(compute.Float32)
	if err != nil {
		return nil, err
	}
	out := make([]float32, b.n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func (b *buffer) ReadInt32() ([]int32, error) {
	raw, err := b.read(compute.Int32)
	if err != nil {
		return nil, err
	}
	out := make([]int32, b.n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:])) //nolint:gosec // G115: bit pattern of an i32
	}
	return out, nil
}

func (b *buffer) read(dtype compute.DataType) ([]byte, error) {
	if err := b.check(dtype, 0); err != nil {
		return nil, err
	}
	raw, err := b.backend.readBuffer(b.buf, b.size)
	if err != nil {
		return nil, fmt.Errorf("webgpu: read buffer: %w", err)
	}
	return raw, nil
}

func (b *buffer) check(dtype compute.DataType, n int) error {
	if b.buf == nil || b.backend.released.Load() {
		return fmt.Errorf("webgpu: buffer: %w", compute.ErrReleased)
	}
	if b.dtype != dtype {
		return fmt.Errorf("webgpu: %s buffer accessed as %s: %w", b.dtype, dtype, compute.ErrInvalidArgument)
	}
	if n > b.n {
		return fmt.Errorf("webgpu: write of %d elements into buffer of %d: %w", n, b.n, compute.ErrInvalidArgument)
	}
	return nil
}

func (b *buffer) Release() {
	if b.buf == nil {
		return
	}
	if b.backend.released.Load() {
		b.buf = nil
		return
	}
	// Launches still queued may reference the buffer.
	b.backend.flushCommands()
	b.buf.Release()
	b.buf = nil
}

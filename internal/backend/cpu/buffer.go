package cpu

import (
	"fmt"

	"github.com/born-ml/poolprop/internal/compute"
)

// buffer is host memory. Reads and writes wait for enqueued launches so
// they observe the queue in order.
type buffer struct {
	backend *CPUBackend
	dtype   compute.DataType
	f32     []float32
	i32     []int32
	freed   bool
}

var _ compute.HostBuffer = (*buffer)(nil)

func (b *buffer) DType() compute.DataType { return b.dtype }

func (b *buffer) Len() int {
	if b.dtype == compute.Float32 {
		return len(b.f32)
	}
	return len(b.i32)
}

// Float32s exposes the backing slice to host kernels.
func (b *buffer) Float32s() []float32 { return b.f32 }

// Int32s exposes the backing slice to host kernels.
func (b *buffer) Int32s() []int32 { return b.i32 }

func (b *buffer) WriteFloat32(data []float32) error {
	if err := b.check(compute.Float32, len(data)); err != nil {
		return err
	}
	b.backend.wait()
	copy(b.f32, data)
	return nil
}

func (b *buffer) WriteInt32(data []int32) error {
	if err := b.check(compute.Int32, len(data)); err != nil {
		return err
	}
	b.backend.wait()
	copy(b.i32, data)
	return nil
}

func (b *buffer) ReadFloat32() ([]float32, error) {
	if err := b.check(compute.Float32, 0); err != nil {
		return nil, err
	}
	b.backend.wait()
	out := make([]float32, len(b.f32))
	copy(out, b.f32)
	return out, nil
}

func (b *buffer) ReadInt32() ([]int32, error) {
	if err := b.check(compute.Int32, 0); err != nil {
		return nil, err
	}
	b.backend.wait()
	out := make([]int32, len(b.i32))
	copy(out, b.i32)
	return out, nil
}

func (b *buffer) check(dtype compute.DataType, n int) error {
	if b.freed {
		return fmt.Errorf("cpu: buffer: %w", compute.ErrReleased)
	}
	if b.dtype != dtype {
		return fmt.Errorf("cpu: %s buffer accessed as %s: %w", b.dtype, dtype, compute.ErrInvalidArgument)
	}
	if n > b.Len() {
		return fmt.Errorf("cpu: write of %d elements into buffer of %d: %w", n, b.Len(), compute.ErrInvalidArgument)
	}
	return nil
}

func (b *buffer) Release() {
	if b.freed {
		return
	}
	b.backend.wait()
	b.freed = true
	b.f32 = nil
	b.i32 = nil
}

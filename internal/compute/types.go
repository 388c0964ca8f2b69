package compute

import "fmt"

// DataType is the element type stored in a Buffer.
type DataType int

// Supported buffer element types.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic(fmt.Sprintf("compute: unknown data type %d", int(dt)))
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// Buffer is device memory holding Len elements of DType.
//
// Buffers are owned by whoever allocated them. Programs only borrow them
// between Bind and the next Synchronize.
type Buffer interface {
	DType() DataType
	Len() int

	WriteFloat32(data []float32) error
	WriteInt32(data []int32) error
	ReadFloat32() ([]float32, error)
	ReadInt32() ([]int32, error)

	Release()
}

// HostBuffer is implemented by buffers whose storage is directly
// addressable from Go. Host kernels use it to reach the data.
type HostBuffer interface {
	Buffer
	Float32s() []float32
	Int32s() []int32
}

// Program is a compiled kernel specialized with its build options.
type Program interface {
	// Name returns the kernel entry point.
	Name() string

	// Bind sets argument index to value. Scalars are int32, buffers are
	// Buffer values created by the same backend. Errors are reported by
	// the next Launch1D so calls can be chained.
	Bind(index int, value any) Program

	// Launch1D enqueues globalSize execution units in groups of groupSize.
	// globalSize must be a multiple of groupSize.
	Launch1D(globalSize, groupSize int) error

	// Wait blocks until every launch issued through this handle has
	// finished and returns the first execution failure among them since
	// the previous Wait. Failures of other handles are not reported here.
	Wait() error

	// Release drops this handle. The compiled artifact is freed when its
	// last handle is released.
	Release()
}

// Backend is a data-parallel compute device.
type Backend interface {
	Name() string

	// BuildProgram compiles source for entryPoint with the given build
	// options. label names the source in diagnostics.
	BuildProgram(source, entryPoint, options, label string) (Program, error)

	// PreferredGroupSize is the execution group size launches are rounded to.
	PreferredGroupSize() int

	NewBuffer(dtype DataType, n int) (Buffer, error)

	// Synchronize blocks until all enqueued launches have completed and
	// returns the first launch failure, if any.
	Synchronize() error

	Release()
}

// RoundUp returns the smallest multiple of multiple that is >= n.
func RoundUp(n, multiple int) int {
	if multiple <= 0 {
		panic(fmt.Sprintf("compute: invalid multiple %d", multiple))
	}
	return ((n + multiple - 1) / multiple) * multiple
}

package pooling

import (
	"fmt"

	"github.com/born-ml/poolprop/internal/compute"
)

// Geometry is the fixed board arithmetic of one pooling layer.
type Geometry struct {
	InputBoardSize  int
	PoolingSize     int
	PadZeros        bool
	OutputBoardSize int
}

// NewGeometry derives the output board size. Without padZeros trailing
// rows and columns that do not fill a window are dropped; with it they
// form partial windows.
func NewGeometry(inputBoardSize, poolingSize int, padZeros bool) (Geometry, error) {
	if inputBoardSize <= 0 {
		return Geometry{}, fmt.Errorf("pooling: input board size %d: %w", inputBoardSize, ErrInvalidGeometry)
	}
	if poolingSize <= 0 {
		return Geometry{}, fmt.Errorf("pooling: pooling size %d: %w", poolingSize, ErrInvalidGeometry)
	}

	out := inputBoardSize / poolingSize
	if padZeros {
		out = (inputBoardSize + poolingSize - 1) / poolingSize
	}
	if out <= 0 {
		return Geometry{}, fmt.Errorf("pooling: pooling size %d exceeds input board size %d without padding: %w",
			poolingSize, inputBoardSize, ErrInvalidGeometry)
	}

	return Geometry{
		InputBoardSize:  inputBoardSize,
		PoolingSize:     poolingSize,
		PadZeros:        padZeros,
		OutputBoardSize: out,
	}, nil
}

// InputBoardSizeSquared is the number of cells in one input board.
func (g Geometry) InputBoardSizeSquared() int {
	return g.InputBoardSize * g.InputBoardSize
}

// OutputBoardSizeSquared is the number of cells in one output board.
func (g Geometry) OutputBoardSizeSquared() int {
	return g.OutputBoardSize * g.OutputBoardSize
}

// WindowOrigin returns the input cell at the top-left of an output cell's window.
func (g Geometry) WindowOrigin(outputRow, outputCol int) (int, int) {
	return outputRow * g.PoolingSize, outputCol * g.PoolingSize
}

// InBounds reports whether an input cell lies on the board.
func (g Geometry) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.InputBoardSize && col < g.InputBoardSize
}

// InputLen is the element count of an input tensor.
func (g Geometry) InputLen(batchSize, numPlanes int) int {
	return batchSize * numPlanes * g.InputBoardSizeSquared()
}

// OutputLen is the element count of the selectors and output tensors,
// which is also the number of execution units doing work.
func (g Geometry) OutputLen(batchSize, numPlanes int) int {
	return batchSize * numPlanes * g.OutputBoardSizeSquared()
}

// String implements fmt.Stringer.
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d/%d->%dx%d (padZeros=%t)",
		g.InputBoardSize, g.InputBoardSize, g.PoolingSize, g.OutputBoardSize, g.OutputBoardSize, g.PadZeros)
}

// Build-time constant names shared by the kernel source and the host kernel.
const (
	defOutputBoardSize        = "gOutputBoardSize"
	defOutputBoardSizeSquared = "gOutputBoardSizeSquared"
	defInputBoardSize         = "gInputBoardSize"
	defInputBoardSizeSquared  = "gInputBoardSizeSquared"
	defPoolingSize            = "gPoolingSize"
	defNumPlanes              = "gNumPlanes"
)

// Defines returns the constants baked into the kernel for this geometry.
func (g Geometry) Defines(numPlanes int) compute.Defines {
	return compute.Defines{
		{Name: defOutputBoardSize, Value: g.OutputBoardSize},
		{Name: defOutputBoardSizeSquared, Value: g.OutputBoardSizeSquared()},
		{Name: defInputBoardSize, Value: g.InputBoardSize},
		{Name: defInputBoardSizeSquared, Value: g.InputBoardSizeSquared()},
		{Name: defPoolingSize, Value: g.PoolingSize},
		{Name: defNumPlanes, Value: numPlanes},
	}
}

// BuildOptions formats Defines as the options string handed to the backend.
func (g Geometry) BuildOptions(numPlanes int) string {
	return g.Defines(numPlanes).String()
}

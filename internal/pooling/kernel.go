package pooling

import (
	"fmt"

	"github.com/born-ml/poolprop/internal/compute"
)

const (
	// EntryPoint is the kernel function launched once per output element.
	EntryPoint = "propagateNaive"

	// SourceLabel names KernelSource in build diagnostics.
	SourceLabel = "pooling.wgsl"
)

// KernelSource is the WGSL body of the naive propagation kernel. The
// g-prefixed constants are not declared here: the device prepends them
// from the build options, together with gWorkgroupSize.
//
// Bindings follow argument order: 0 batch size, 1 input, 2 selectors, 3 output.
const KernelSource = `
// every plane is independent
// every example is independent
// so globalId can be: [n][plane][outputRow][outputCol]

struct Params {
    batchSize: i32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> activations: array<f32>;
@group(0) @binding(2) var<storage, read_write> selectors: array<i32>;
@group(0) @binding(3) var<storage, read_write> maxima: array<f32>;

// large launches are folded into rows of num_workgroups.x groups
@compute @workgroup_size(gWorkgroupSize)
fn propagateNaive(@builtin(global_invocation_id) gid: vec3<u32>,
                  @builtin(num_workgroups) groups: vec3<u32>) {
    let globalId = i32(gid.x + gid.y * groups.x * gWorkgroupSize);

    let intraBoardOffset = globalId % gOutputBoardSizeSquared;
    let outputRow = intraBoardOffset / gOutputBoardSize;
    let outputCol = intraBoardOffset % gOutputBoardSize;

    let board2dIdx = globalId / gOutputBoardSizeSquared;
    let plane = board2dIdx % gNumPlanes;
    let n = board2dIdx / gNumPlanes;

    if (n >= params.batchSize) {
        return;
    }

    let inputRow = outputRow * gPoolingSize;
    let inputCol = outputCol * gPoolingSize;
    let inputBoardOffset = (n * gNumPlanes + plane) * gInputBoardSizeSquared;
    let poolInputOffset = inputBoardOffset + inputRow * gInputBoardSize + inputCol;

    var selector: i32 = 0;
    var maxValue: f32 = activations[poolInputOffset];
    for (var dRow: i32 = 0; dRow < gPoolingSize; dRow = dRow + 1) {
        for (var dCol: i32 = 0; dCol < gPoolingSize; dCol = dCol + 1) {
            let process = (inputRow + dRow < gInputBoardSize) && (inputCol + dCol < gInputBoardSize);
            if (process) {
                let thisValue = activations[poolInputOffset + dRow * gInputBoardSize + dCol];
                if (thisValue > maxValue) {
                    maxValue = thisValue;
                    selector = dRow * gPoolingSize + dCol;
                }
            }
        }
    }
    maxima[globalId] = maxValue;
    selectors[globalId] = selector;
}
`

// kernelConstants mirrors the build-time constants of KernelSource.
type kernelConstants struct {
	outputBoardSize        int
	outputBoardSizeSquared int
	inputBoardSize         int
	inputBoardSizeSquared  int
	poolingSize            int
	numPlanes              int
}

func constantsFromDefines(defs compute.Defines) (kernelConstants, error) {
	v, err := defs.Require(
		defOutputBoardSize, defOutputBoardSizeSquared,
		defInputBoardSize, defInputBoardSizeSquared,
		defPoolingSize, defNumPlanes,
	)
	if err != nil {
		return kernelConstants{}, err
	}
	c := kernelConstants{
		outputBoardSize:        v[0],
		outputBoardSizeSquared: v[1],
		inputBoardSize:         v[2],
		inputBoardSizeSquared:  v[3],
		poolingSize:            v[4],
		numPlanes:              v[5],
	}
	if c.outputBoardSize <= 0 || c.inputBoardSize <= 0 || c.poolingSize <= 0 || c.numPlanes <= 0 ||
		c.outputBoardSizeSquared != c.outputBoardSize*c.outputBoardSize ||
		c.inputBoardSizeSquared != c.inputBoardSize*c.inputBoardSize {
		return kernelConstants{}, fmt.Errorf("%w: inconsistent pooling constants %+v", compute.ErrBuild, c)
	}
	return c, nil
}

// unit computes the output element at globalID. Units past the end of the
// batch return without touching any buffer.
func (c kernelConstants) unit(globalID, batchSize int, input []float32, selectors []int32, output []float32) {
	intraBoardOffset := globalID % c.outputBoardSizeSquared
	outputRow := intraBoardOffset / c.outputBoardSize
	outputCol := intraBoardOffset % c.outputBoardSize

	board2dIdx := globalID / c.outputBoardSizeSquared
	plane := board2dIdx % c.numPlanes
	n := board2dIdx / c.numPlanes

	if n >= batchSize {
		return
	}

	inputRow := outputRow * c.poolingSize
	inputCol := outputCol * c.poolingSize
	inputBoardOffset := (n*c.numPlanes + plane) * c.inputBoardSizeSquared
	poolInputOffset := inputBoardOffset + inputRow*c.inputBoardSize + inputCol

	selector := 0
	maxValue := input[poolInputOffset]
	for dRow := 0; dRow < c.poolingSize; dRow++ {
		if inputRow+dRow >= c.inputBoardSize {
			break
		}
		row := input[poolInputOffset+dRow*c.inputBoardSize:]
		for dCol := 0; dCol < c.poolingSize; dCol++ {
			if inputCol+dCol >= c.inputBoardSize {
				break
			}
			if v := row[dCol]; v > maxValue {
				maxValue = v
				selector = dRow*c.poolingSize + dCol
			}
		}
	}
	output[globalID] = maxValue
	selectors[globalID] = int32(selector) //nolint:gosec // G115: selector < poolingSize^2
}

// buildHostKernel specializes the propagation kernel for host devices.
func buildHostKernel(defs compute.Defines) (compute.HostKernelSpec, error) {
	c, err := constantsFromDefines(defs)
	if err != nil {
		return compute.HostKernelSpec{}, err
	}

	kernel := func(args []any) (func(int), error) {
		batchSize, ok := args[0].(int32)
		if !ok {
			return nil, fmt.Errorf("argument 0: want int32 batch size, got %T: %w", args[0], compute.ErrInvalidArgument)
		}
		input, err := hostFloat32s(args, 1)
		if err != nil {
			return nil, err
		}
		selectors, err := hostInt32s(args, 2)
		if err != nil {
			return nil, err
		}
		output, err := hostFloat32s(args, 3)
		if err != nil {
			return nil, err
		}
		n := int(batchSize)
		return func(globalID int) {
			c.unit(globalID, n, input, selectors, output)
		}, nil
	}
	return compute.HostKernelSpec{Kernel: kernel, NumArgs: 4}, nil
}

func hostFloat32s(args []any, i int) ([]float32, error) {
	buf, ok := args[i].(compute.HostBuffer)
	if !ok || buf.DType() != compute.Float32 {
		return nil, fmt.Errorf("argument %d: want float32 host buffer, got %T: %w", i, args[i], compute.ErrInvalidArgument)
	}
	return buf.Float32s(), nil
}

func hostInt32s(args []any, i int) ([]int32, error) {
	buf, ok := args[i].(compute.HostBuffer)
	if !ok || buf.DType() != compute.Int32 {
		return nil, fmt.Errorf("argument %d: want int32 host buffer, got %T: %w", i, args[i], compute.ErrInvalidArgument)
	}
	return buf.Int32s(), nil
}

func init() {
	compute.RegisterHostKernel(EntryPoint, buildHostKernel)
}

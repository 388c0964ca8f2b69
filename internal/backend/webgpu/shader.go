// Package webgpu implements the WebGPU compute device on go-webgpu.
//
// WGSL has no preprocessor, so build options are turned into module-scope
// constants prepended to the kernel source. The specialized source is
// checked with naga before the device sees it; that step is portable and
// lives in this file, the device itself is windows only.
package webgpu

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/naga"

	"github.com/born-ml/poolprop/internal/compute"
)

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

// workgroupSizeConst is the constant kernels use in @workgroup_size.
const workgroupSizeConst = "gWorkgroupSize"

// maxWorkgroupsPerDimension is the default maxComputeWorkgroupsPerDimension
// limit, which devices requested without a limits descriptor get.
const maxWorkgroupsPerDimension = 65535

var bindingRe = regexp.MustCompile(`@binding\((\d+)\)`)

// Specialize prepends the build options and the workgroup size to source
// as WGSL constants. Options use the "-DName=Value" syntax.
func Specialize(source, options string, groupSize int) (string, error) {
	if groupSize <= 0 {
		return "", fmt.Errorf("%w: workgroup size %d", compute.ErrBuild, groupSize)
	}
	defs, err := compute.ParseDefines(options)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "const %s: u32 = %du;\n", workgroupSizeConst, groupSize)
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == workgroupSizeConst {
			return "", fmt.Errorf("%w: %s is reserved", compute.ErrBuild, workgroupSizeConst)
		}
		if seen[d.Name] {
			return "", fmt.Errorf("%w: %s defined twice", compute.ErrBuild, d.Name)
		}
		seen[d.Name] = true
		fmt.Fprintf(&sb, "const %s: i32 = %d;\n", d.Name, d.Value)
	}
	sb.WriteString(source)
	return sb.String(), nil
}

// Validate compiles wgsl with naga and reports front-end errors as build errors.
func Validate(wgsl, label string) error {
	if _, err := naga.Compile(wgsl); err != nil {
		return fmt.Errorf("%w: %s: %w", compute.ErrBuild, label, err)
	}
	return nil
}

// numBindings returns one past the highest @binding index in source.
func numBindings(source string) int {
	n := 0
	for _, m := range bindingRe.FindAllStringSubmatch(source, -1) {
		idx, err := strconv.Atoi(m[1])
		if err == nil && idx+1 > n {
			n = idx + 1
		}
	}
	return n
}

// dispatchGrid folds numGroups workgroups into an x*y grid with neither
// side above maxPerDim. The grid may hold up to x-1 extra groups; kernels
// recover the linear id as gid.x + gid.y*x*groupSize and skip ids past the
// end of their data.
func dispatchGrid(numGroups, groupSize, maxPerDim int) (x, y int, err error) {
	if numGroups < 0 || groupSize <= 0 || maxPerDim <= 0 {
		return 0, 0, fmt.Errorf("%w: %d groups of %d, limit %d: %w",
			compute.ErrLaunch, numGroups, groupSize, maxPerDim, compute.ErrInvalidArgument)
	}
	if numGroups <= maxPerDim {
		x, y = numGroups, 1
	} else {
		y = (numGroups + maxPerDim - 1) / maxPerDim
		x = (numGroups + y - 1) / y
	}
	if y > maxPerDim {
		return 0, 0, fmt.Errorf("%w: %d workgroups exceed a %dx%d dispatch", compute.ErrLaunch, numGroups, maxPerDim, maxPerDim)
	}
	if int64(x)*int64(y)*int64(groupSize) > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: %d workgroups of %d overflow 32-bit invocation ids", compute.ErrLaunch, numGroups, groupSize)
	}
	return x, y, nil
}

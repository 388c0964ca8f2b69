//go:build windows

package webgpu

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/pooling"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	b, err := New()
	if err != nil {
		t.Skipf("WebGPU backend unavailable: %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func TestBackend_Buffers(t *testing.T) {
	b := newTestBackend(t)

	f, err := b.NewBuffer(compute.Float32, 5)
	require.NoError(t, err)
	defer f.Release()

	zeros, err := f.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 5), zeros)

	require.NoError(t, f.WriteFloat32([]float32{1.5, -2, 3, 0, 7}))
	got, err := f.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2, 3, 0, 7}, got)

	i, err := b.NewBuffer(compute.Int32, 3)
	require.NoError(t, err)
	defer i.Release()
	require.NoError(t, i.WriteInt32([]int32{-1, 0, 42}))
	ints, err := i.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{-1, 0, 42}, ints)

	assert.ErrorIs(t, f.WriteFloat32(make([]float32, 6)), compute.ErrInvalidArgument)
	_, err = f.ReadInt32()
	assert.ErrorIs(t, err, compute.ErrInvalidArgument)
}

func TestBackend_BuildErrors(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.BuildProgram("fn main() {", "main", "", "broken.wgsl")
	assert.ErrorIs(t, err, compute.ErrBuild)

	_, err = b.BuildProgram(pooling.KernelSource, pooling.EntryPoint, "-DgPoolingSize", pooling.SourceLabel)
	assert.ErrorIs(t, err, compute.ErrBuild)
}

func TestBackend_LaunchRequiresWorkgroupSize(t *testing.T) {
	b := newTestBackend(t)

	g, err := pooling.NewGeometry(4, 2, false)
	require.NoError(t, err)
	p, err := b.BuildProgram(pooling.KernelSource, pooling.EntryPoint, g.BuildOptions(1), pooling.SourceLabel)
	require.NoError(t, err)
	defer p.Release()

	in, _ := b.NewBuffer(compute.Float32, 16)
	sel, _ := b.NewBuffer(compute.Int32, 4)
	out, _ := b.NewBuffer(compute.Float32, 4)

	err = p.Bind(0, 1).Bind(1, in).Bind(2, sel).Bind(3, out).Launch1D(64, 64)
	assert.ErrorIs(t, err, compute.ErrLaunch)
}

func TestBackend_PoolingMatchesHost(t *testing.T) {
	b := newTestBackend(t)
	rng := rand.New(rand.NewPCG(3, 5))

	for _, cfg := range []pooling.Config{
		{NumPlanes: 1, InputBoardSize: 4, PoolingSize: 2},
		{NumPlanes: 3, InputBoardSize: 19, PoolingSize: 3, PadZeros: true},
		{NumPlanes: 8, InputBoardSize: 28, PoolingSize: 2},
	} {
		p, err := pooling.New(b, cfg)
		require.NoError(t, err)

		const batchSize = 4
		g := p.Geometry()
		input := make([]float32, g.InputLen(batchSize, cfg.NumPlanes))
		for i := range input {
			input[i] = float32(rng.IntN(9) - 4)
		}
		wantSel, wantMax, err := pooling.PropagateSlices(g, cfg.NumPlanes, batchSize, input)
		require.NoError(t, err)

		in, err := b.NewBuffer(compute.Float32, len(input))
		require.NoError(t, err)
		require.NoError(t, in.WriteFloat32(input))
		sel, err := b.NewBuffer(compute.Int32, len(wantSel))
		require.NoError(t, err)
		out, err := b.NewBuffer(compute.Float32, len(wantMax))
		require.NoError(t, err)

		require.NoError(t, p.Propagate(batchSize, in, sel, out))

		gotSel, err := sel.ReadInt32()
		require.NoError(t, err)
		gotMax, err := out.ReadFloat32()
		require.NoError(t, err)
		assert.Equal(t, wantSel, gotSel, g.String())
		assert.Equal(t, wantMax, gotMax, g.String())

		in.Release()
		sel.Release()
		out.Release()
		p.Release()
	}
}

func TestBackend_ProgramsAreShared(t *testing.T) {
	b := newTestBackend(t)

	cfg := pooling.Config{NumPlanes: 2, InputBoardSize: 8, PoolingSize: 2}
	p1, err := pooling.New(b, cfg)
	require.NoError(t, err)
	p2, err := pooling.New(b, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.ProgramsBuilt())

	p1.Release()
	p2.Release()
}

func TestBackend_LaunchAfterRelease(t *testing.T) {
	b := newTestBackend(t)

	cfg := pooling.Config{NumPlanes: 1, InputBoardSize: 4, PoolingSize: 2}
	p, err := pooling.New(b, cfg)
	require.NoError(t, err)
	defer p.Release()

	in, _ := b.NewBuffer(compute.Float32, 16)
	sel, _ := b.NewBuffer(compute.Int32, 4)
	out, _ := b.NewBuffer(compute.Float32, 4)

	b.Release()
	assert.NotPanics(t, func() {
		err = p.Propagate(1, in, sel, out)
	})
	assert.ErrorIs(t, err, compute.ErrReleased)

	_, err = out.ReadFloat32()
	assert.ErrorIs(t, err, compute.ErrReleased)
}

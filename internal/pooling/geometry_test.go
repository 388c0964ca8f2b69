package pooling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/poolprop/internal/compute"
)

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		name     string
		in, pool int
		pad      bool
		want     int
	}{
		{"exact multiple", 4, 2, false, 2},
		{"exact multiple padded", 4, 2, true, 2},
		{"remainder dropped", 5, 2, false, 2},
		{"remainder kept", 5, 2, true, 3},
		{"pool of one", 7, 1, false, 7},
		{"window larger than board padded", 3, 4, true, 1},
		{"odd sizes", 19, 3, true, 7},
		{"odd sizes dropped", 19, 3, false, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeometry(tt.in, tt.pool, tt.pad)
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.OutputBoardSize)
			assert.Equal(t, tt.want*tt.want, g.OutputBoardSizeSquared())
			assert.Equal(t, tt.in*tt.in, g.InputBoardSizeSquared())
		})
	}
}

func TestNewGeometry_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		in, pool int
		pad      bool
	}{
		{"zero pooling size", 4, 0, false},
		{"negative pooling size", 4, -2, true},
		{"zero board", 0, 2, true},
		{"window larger than board", 3, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeometry(tt.in, tt.pool, tt.pad)
			require.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestGeometry_BuildOptions(t *testing.T) {
	g, err := NewGeometry(5, 2, true)
	require.NoError(t, err)

	opts := g.BuildOptions(3)
	assert.Equal(t,
		"-DgOutputBoardSize=3 -DgOutputBoardSizeSquared=9 -DgInputBoardSize=5 "+
			"-DgInputBoardSizeSquared=25 -DgPoolingSize=2 -DgNumPlanes=3",
		opts)

	// The options round-trip to the constants the host kernel uses.
	defs, err := compute.ParseDefines(opts)
	require.NoError(t, err)
	c, err := constantsFromDefines(defs)
	require.NoError(t, err)
	assert.Equal(t, kernelConstants{
		outputBoardSize:        3,
		outputBoardSizeSquared: 9,
		inputBoardSize:         5,
		inputBoardSizeSquared:  25,
		poolingSize:            2,
		numPlanes:              3,
	}, c)
}

func TestConstantsFromDefines_Inconsistent(t *testing.T) {
	defs, err := compute.ParseDefines("-DgOutputBoardSize=3 -DgOutputBoardSizeSquared=8 -DgInputBoardSize=5 " +
		"-DgInputBoardSizeSquared=25 -DgPoolingSize=2 -DgNumPlanes=1")
	require.NoError(t, err)
	_, err = constantsFromDefines(defs)
	assert.ErrorIs(t, err, compute.ErrBuild)

	_, err = constantsFromDefines(compute.Defines{{Name: defPoolingSize, Value: 2}})
	assert.ErrorIs(t, err, compute.ErrBuild)
}

func TestGeometry_Windows(t *testing.T) {
	g, err := NewGeometry(5, 2, true)
	require.NoError(t, err)

	row, col := g.WindowOrigin(2, 1)
	assert.Equal(t, 4, row)
	assert.Equal(t, 2, col)
	assert.True(t, g.InBounds(4, 4))
	assert.False(t, g.InBounds(5, 4))
	assert.False(t, g.InBounds(4, -1))

	assert.Equal(t, 2*3*25, g.InputLen(2, 3))
	assert.Equal(t, 2*3*9, g.OutputLen(2, 3))
	assert.Equal(t, "5x5/2->3x3 (padZeros=true)", g.String())
}

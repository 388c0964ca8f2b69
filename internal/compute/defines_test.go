package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefines(t *testing.T) {
	defs, err := ParseDefines("  -DgA=3\t-Dg_B2=-14  -DgA=5 ")
	require.NoError(t, err)
	assert.Equal(t, Defines{{"gA", 3}, {"g_B2", -14}, {"gA", 5}}, defs)

	v, ok := defs.Lookup("gA")
	assert.True(t, ok)
	assert.Equal(t, 5, v, "later definitions win")

	_, ok = defs.Lookup("gC")
	assert.False(t, ok)

	empty, err := ParseDefines("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseDefines_Errors(t *testing.T) {
	for _, options := range []string{
		"-O2",
		"-DgA",
		"-D=3",
		"-D2x=3",
		"-Dg-A=3",
		"-DgA=3.5",
		"-DgA=",
	} {
		_, err := ParseDefines(options)
		assert.ErrorIs(t, err, ErrBuild, options)
	}
}

func TestDefines_StringRoundTrip(t *testing.T) {
	defs := Defines{{"gOutputBoardSize", 3}, {"gPoolingSize", 2}, {"gOffset", -1}}
	assert.Equal(t, "-DgOutputBoardSize=3 -DgPoolingSize=2 -DgOffset=-1", defs.String())

	parsed, err := ParseDefines(defs.String())
	require.NoError(t, err)
	assert.Equal(t, defs, parsed)
	assert.Equal(t, "", Defines(nil).String())
}

func TestDefines_Require(t *testing.T) {
	defs := Defines{{"gA", 1}, {"gB", 2}}

	values, err := defs.Require("gB", "gA")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, values)

	_, err = defs.Require("gA", "gMissing")
	assert.ErrorIs(t, err, ErrBuild)
	assert.Contains(t, err.Error(), "gMissing")
}

func TestRoundUp(t *testing.T) {
	tests := []struct{ n, multiple, want int }{
		{0, 64, 0},
		{1, 64, 64},
		{64, 64, 64},
		{65, 64, 128},
		{9, 8, 16},
		{7, 1, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundUp(tt.n, tt.multiple), "RoundUp(%d, %d)", tt.n, tt.multiple)
	}
	assert.Panics(t, func() { RoundUp(3, 0) })
}

func TestHostKernelRegistry(t *testing.T) {
	builder := func(Defines) (HostKernelSpec, error) {
		return HostKernelSpec{NumArgs: 1}, nil
	}
	RegisterHostKernel("registryTestKernel", builder)

	got, err := LookupHostKernel("registryTestKernel")
	require.NoError(t, err)
	spec, err := got(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.NumArgs)

	_, err = LookupHostKernel("noSuchKernel")
	assert.ErrorIs(t, err, ErrBuild)
}

package compute

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgramKey(t *testing.T) {
	a := NewProgramKey("src", "main", "-DgA=1", "a.wgsl")
	assert.Equal(t, a, NewProgramKey("src", "main", "-DgA=1", "a.wgsl"))
	assert.NotEqual(t, a, NewProgramKey("src2", "main", "-DgA=1", "a.wgsl"))
	assert.NotEqual(t, a, NewProgramKey("src", "main", "-DgA=2", "a.wgsl"))
	assert.NotEqual(t, a, NewProgramKey("src", "other", "-DgA=1", "a.wgsl"))
}

func TestProgramCache_RefCounting(t *testing.T) {
	var released []string
	c := NewProgramCache(func(s string) { released = append(released, s) })
	key := NewProgramKey("src", "main", "", "")

	builds := 0
	build := func() (string, error) {
		builds++
		return "artifact", nil
	}

	a, hit, err := c.Acquire(key, build)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "artifact", a)

	_, hit, err = c.Acquire(key, build)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, builds)
	assert.Equal(t, uint64(1), c.Builds())
	assert.Equal(t, 1, c.Len())

	c.Release(key)
	assert.Empty(t, released)
	c.Release(key)
	assert.Equal(t, []string{"artifact"}, released)
	assert.Zero(t, c.Len())

	// Unknown keys are ignored.
	c.Release(key)
	assert.Len(t, released, 1)

	_, hit, err = c.Acquire(key, build)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, uint64(2), c.Builds())
}

func TestProgramCache_FailedBuild(t *testing.T) {
	c := NewProgramCache[int](nil)
	key := NewProgramKey("src", "main", "", "")
	errCompile := errors.New("syntax error")

	_, _, err := c.Acquire(key, func() (int, error) { return 0, errCompile })
	assert.ErrorIs(t, err, errCompile)
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Builds())

	v, hit, err := c.Acquire(key, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
}

func TestProgramCache_Clear(t *testing.T) {
	released := 0
	c := NewProgramCache(func(int) { released++ })
	for i, src := range []string{"a", "b", "c"} {
		_, _, err := c.Acquire(NewProgramKey(src, "main", "", ""), func() (int, error) { return i, nil })
		require.NoError(t, err)
	}

	c.Clear()
	assert.Equal(t, 3, released)
	assert.Zero(t, c.Len())
}

func TestProgramCache_Concurrent(t *testing.T) {
	c := NewProgramCache[int](nil)
	key := NewProgramKey("src", "main", "", "")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.Acquire(key, func() (int, error) { return 1, nil })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1), c.Builds())
	for i := 0; i < 32; i++ {
		c.Release(key)
	}
	assert.Zero(t, c.Len())
}

package compute

import (
	"hash/fnv"
	"sync"
)

// ProgramKey identifies one compiled artifact: the same source, entry
// point and build options always yield the same program.
type ProgramKey struct {
	EntryPoint string
	Options    string
	Label      string
	SourceHash uint64
}

// NewProgramKey derives the cache key for a build request.
func NewProgramKey(source, entryPoint, options, label string) ProgramKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return ProgramKey{
		EntryPoint: entryPoint,
		Options:    options,
		Label:      label,
		SourceHash: h.Sum64(),
	}
}

type cacheEntry[A any] struct {
	artifact A
	refs     int
}

// ProgramCache holds compiled artifacts of type A keyed by ProgramKey.
// Artifacts are built lazily on first Acquire and released when the last
// reference is dropped.
type ProgramCache[A any] struct {
	mu      sync.Mutex
	entries map[ProgramKey]*cacheEntry[A]
	release func(A)
	builds  uint64
}

// NewProgramCache creates an empty cache. release frees an artifact once
// nothing references it.
func NewProgramCache[A any](release func(A)) *ProgramCache[A] {
	return &ProgramCache[A]{
		entries: make(map[ProgramKey]*cacheEntry[A]),
		release: release,
	}
}

// Acquire returns the artifact for key, calling build if it is not cached.
// A failed build leaves the cache unchanged.
func (c *ProgramCache[A]) Acquire(key ProgramKey, build func() (A, error)) (A, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.refs++
		return e.artifact, true, nil
	}

	artifact, err := build()
	if err != nil {
		var zero A
		return zero, false, err
	}
	c.builds++
	c.entries[key] = &cacheEntry[A]{artifact: artifact, refs: 1}
	return artifact, false, nil
}

// Release drops one reference to key.
func (c *ProgramCache[A]) Release(key ProgramKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(c.entries, key)
	if c.release != nil {
		c.release(e.artifact)
	}
}

// Clear releases every cached artifact regardless of outstanding references.
func (c *ProgramCache[A]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if c.release != nil {
			c.release(e.artifact)
		}
		delete(c.entries, key)
	}
}

// Len returns the number of live artifacts.
func (c *ProgramCache[A]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Builds returns how many artifacts have been built since creation.
func (c *ProgramCache[A]) Builds() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

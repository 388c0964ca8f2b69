// Package parallel fans host-side work out across goroutines for the CPU
// compute device.
package parallel

import (
	"fmt"
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a config that runs everything on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch iterates every (example, plane) pair of a batch.
func ForBatch(batch, planes int, f func(n, plane int), cfg Config) {
	For(batch*planes, func(k int) {
		f(k/planes, k%planes)
	}, cfg)
}

// ForGroups runs f(group) for every group in [0, numGroups). Groups are
// independent: each one is executed by exactly one goroutine, and groups
// are spread over at most cfg.NumWorkers goroutines.
//
// A panic inside f is recovered and returned once every group has
// finished; the remaining groups still run.
func ForGroups(numGroups int, f func(group int), cfg Config) error {
	var (
		mu       sync.Mutex
		firstErr error
	)
	run := func(g int) {
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("parallel: group %d panicked: %v", g, r)
				}
				mu.Unlock()
			}
		}()
		f(g)
	}

	groupCfg := cfg
	groupCfg.MinChunkSize = 1
	For(numGroups, run, groupCfg)
	return firstErr
}

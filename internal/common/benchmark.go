package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats is a snapshot of the allocator counters relevant to
// benchmarking inference runs.
type MemoryStats struct {
	Alloc         uint64
	TotalAlloc    uint64
	Sys           uint64
	HeapInuse     uint64
	NumGC         uint32
	GCCPUFraction float64
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:         m.Alloc,
		TotalAlloc:    m.TotalAlloc,
		Sys:           m.Sys,
		HeapInuse:     m.HeapInuse,
		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,
	}
}

// String returns a formatted representation of the memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.Alloc/1024,
		m.TotalAlloc/1024,
		m.Sys/1024,
		m.NumGC,
		m.GCCPUFraction*100)
}

// BenchmarkResult holds the outcome of a repeated timed run.
type BenchmarkResult struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// RunBenchmark executes fn the given number of times and records total
// duration and memory movement. It stops at the first error.
func RunBenchmark(name string, iterations int, fn func() error) BenchmarkResult {
	res := BenchmarkResult{Name: name, Iterations: iterations}
	if iterations <= 0 {
		res.Error = fmt.Errorf("iterations must be positive, got %d", iterations)
		return res
	}
	res.MemoryBefore = GetMemoryStats()
	timer := NewNamedTimer(name)
	for i := 0; i < iterations; i++ {
		if err := fn(); err != nil {
			res.Iterations = i
			res.Error = fmt.Errorf("iteration %d: %w", i, err)
			break
		}
	}
	res.Duration = timer.Stop()
	res.MemoryAfter = GetMemoryStats()
	return res
}

// String returns a formatted representation of the benchmark result.
func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}

	memDiff := br.MemoryAfter.Alloc - br.MemoryBefore.Alloc
	avgDuration := br.Duration / time.Duration(br.Iterations)

	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, mem: +%d KB",
		br.Name, br.Iterations, avgDuration, br.Duration,
		int64(memDiff)/1024) //nolint:gosec // G115: Safe conversion for memory display
}

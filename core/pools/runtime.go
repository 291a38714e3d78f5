package pools

import (
	"runtime"
	"runtime/debug"
	"time"
)

// MinProcs is the lowest GOMAXPROCS the server runs with. Inactivity timers
// fire on runtime threads and must keep firing while a session goroutine is
// busy in a handler.
const MinProcs = 2

// EnsureProcs raises GOMAXPROCS to at least MinProcs and returns the value in
// effect afterwards
func EnsureProcs() int {
	if n := runtime.GOMAXPROCS(0); n >= MinProcs {
		return n
	}
	runtime.GOMAXPROCS(MinProcs)
	return MinProcs
}

// SetGCPercent applies GOGC when percent is positive and returns the
// previous setting
func SetGCPercent(percent int) int {
	if percent <= 0 {
		prev := debug.SetGCPercent(100)
		debug.SetGCPercent(prev)
		return prev
	}
	return debug.SetGCPercent(percent)
}

// RuntimeStats is a snapshot of process runtime figures
type RuntimeStats struct {
	Goroutines int
	MaxProcs   int
	NumGC      uint32
	LastPause  time.Duration
	AvgPause   time.Duration
	HeapAlloc  uint64
	TotalAlloc uint64
	Sys        uint64
}

// ReadRuntimeStats collects the current runtime figures
func ReadRuntimeStats() RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := RuntimeStats{
		Goroutines: runtime.NumGoroutine(),
		MaxProcs:   runtime.GOMAXPROCS(0),
		NumGC:      ms.NumGC,
		HeapAlloc:  ms.HeapAlloc,
		TotalAlloc: ms.TotalAlloc,
		Sys:        ms.Sys,
	}

	if ms.NumGC > 0 {
		stats.LastPause = time.Duration(ms.PauseNs[(ms.NumGC+255)%256])

		n := ms.NumGC
		if n > 256 {
			n = 256
		}
		var total uint64
		for i := uint32(0); i < n; i++ {
			total += ms.PauseNs[i]
		}
		stats.AvgPause = time.Duration(total / uint64(n))
	}

	return stats
}

package pools

import (
	"sync"
	"sync/atomic"
)

// Output buffer tiers
const (
	SmallOutSize  = 1 << 10  // status line, headers and short text bodies
	MediumOutSize = 8 << 10  // JSON and rendered pages
	LargeOutSize  = 64 << 10 // static files
)

// OutPool hands out zero-length buffers for serializing responses.
// Buffers that grew beyond LargeOutSize are dropped on Put.
type OutPool struct {
	tiers [3]sync.Pool

	gets      atomic.Uint64
	oversized atomic.Uint64
}

var outSizes = [3]int{SmallOutSize, MediumOutSize, LargeOutSize}

// NewOutPool creates an output buffer pool
func NewOutPool() *OutPool {
	op := &OutPool{}
	for i, size := range outSizes {
		sz := size
		op.tiers[i].New = func() any {
			buf := make([]byte, 0, sz)
			return &buf
		}
	}
	return op
}

// Get returns an empty buffer with room for at least hint bytes when hint
// fits a tier
func (op *OutPool) Get(hint int) *[]byte {
	op.gets.Add(1)
	for i, size := range outSizes {
		if hint <= size {
			return op.tiers[i].Get().(*[]byte)
		}
	}
	op.oversized.Add(1)
	buf := make([]byte, 0, hint)
	return &buf
}

// Put returns buf to the tier matching its capacity
func (op *OutPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:0]
	c := cap(*buf)
	if c > LargeOutSize {
		return
	}
	for i := len(outSizes) - 1; i >= 0; i-- {
		if c >= outSizes[i] {
			op.tiers[i].Put(buf)
			return
		}
	}
}

// OutStats reports pool usage
type OutStats struct {
	Gets      uint64
	Oversized uint64
}

// Stats returns usage counters
func (op *OutPool) Stats() OutStats {
	return OutStats{Gets: op.gets.Load(), Oversized: op.oversized.Load()}
}

var globalOutPool = NewOutPool()

// AcquireOut gets a buffer from the global output pool
func AcquireOut(hint int) *[]byte {
	return globalOutPool.Get(hint)
}

// ReleaseOut returns a buffer to the global output pool
func ReleaseOut(buf *[]byte) {
	globalOutPool.Put(buf)
}

// GlobalOutStats returns statistics for the global output pool
func GlobalOutStats() OutStats {
	return globalOutPool.Stats()
}

package pools

import "sync"

// ChunkPool hands out read buffers in a few fixed size classes. Sessions take
// one chunk per connection and return it when the request is framed.
type ChunkPool struct {
	pools []*sync.Pool
	sizes []int
}

// Size classes for session read chunks
var defaultSizes = []int{
	512,
	1024, // default read chunk
	4096,
	16384,
}

// NewChunkPool creates a new chunk pool with standard size tiers
func NewChunkPool() *ChunkPool {
	return NewChunkPoolWithSizes(defaultSizes)
}

// NewChunkPoolWithSizes creates a chunk pool with custom size tiers, smallest first
func NewChunkPoolWithSizes(sizes []int) *ChunkPool {
	cp := &ChunkPool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		cp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}
	return cp
}

// Get returns a byte slice of exactly the requested length
func (cp *ChunkPool) Get(size int) []byte {
	for i, poolSize := range cp.sizes {
		if size <= poolSize {
			buf := *cp.pools[i].Get().(*[]byte)
			return buf[:size]
		}
	}

	return make([]byte, size)
}

// Put returns a byte slice to the pool. Slices that did not come from a tier
// are left to the GC.
func (cp *ChunkPool) Put(buf []byte) {
	capacity := cap(buf)
	for i, poolSize := range cp.sizes {
		if capacity == poolSize {
			buf = buf[:capacity]
			cp.pools[i].Put(&buf)
			return
		}
	}
}

var globalChunks = NewChunkPool()

// GetChunk takes a read chunk from the shared pool
func GetChunk(size int) []byte {
	return globalChunks.Get(size)
}

// PutChunk hands a chunk back to the shared pool
func PutChunk(buf []byte) {
	globalChunks.Put(buf)
}

package main

import "sync"

const bytePoolSeed = 1024

// NewBytePool creates a pool of reusable byte slices sized for one query
// line each. Buffers start small and grow on demand for oversize reads.
func NewBytePool() *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, bytePoolSeed)
			},
		},
	}
}

// Get returns a buffer with length size, reusing pooled capacity when it
// fits.
func (bp *BytePool) Get(size int) []byte {
	buf := bp.pool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// Put returns buf to the pool unless it has grown past a size worth
// retaining.
func (bp *BytePool) Put(buf []byte) {
	if cap(buf) <= 64*1024 {
		buf = buf[:0]
		bp.pool.Put(buf)
	}
}

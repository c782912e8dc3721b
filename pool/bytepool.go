// File: pool/bytepool.go
// Package pool recycles byte buffers in power-of-two size classes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound frames are built into pooled buffers and returned once the
// socket has taken every byte.

package pool

import (
	"math/bits"
	"sync"
)

const (
	minClassShift = 7  // 128 B
	maxClassShift = 20 // 1 MiB
	numClasses    = maxClassShift - minClassShift + 1
)

// BytePool hands out zero-length slices with at least the requested
// capacity. Requests above the largest class are allocated directly and
// never retained.
type BytePool struct {
	classes [numClasses]sync.Pool
}

// NewBytePool creates an empty pool.
func NewBytePool() *BytePool {
	return &BytePool{}
}

// classOf returns the index of the smallest class holding n bytes, or -1.
func classOf(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// Get returns a buffer with len 0 and cap >= n.
func (p *BytePool) Get(n int) []byte {
	i := classOf(n)
	if i < 0 {
		return make([]byte, 0, n)
	}
	if v := p.classes[i].Get(); v != nil {
		return (*v.(*[]byte))[:0]
	}
	return make([]byte, 0, 1<<(i+minClassShift))
}

// Put returns b to its class. Buffers not obtained from Get are ignored.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < 1<<minClassShift || c&(c-1) != 0 {
		return
	}
	i := classOf(c)
	if i < 0 {
		return
	}
	b = b[:0]
	p.classes[i].Put(&b)
}

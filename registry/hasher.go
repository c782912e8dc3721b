// File: registry/hasher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import (
	"encoding/binary"
	"hash/fnv"
)

// Hasher supplies the hash and equality contract for a key type.
type Hasher[K any] struct {
	Hash  func(K) uint32
	Equal func(a, b K) bool
}

// IntHasher hashes int keys (socket descriptors) by their low 32 bits.
func IntHasher() Hasher[int] {
	return Hasher[int]{
		Hash: func(k int) uint32 {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(k))
			return fnv32(b[:])
		},
		Equal: func(a, b int) bool { return a == b },
	}
}

// StringHasher hashes string keys. Equality is exact: a key that is a prefix
// of another key does not match it.
func StringHasher() Hasher[string] {
	return Hasher[string]{
		Hash:  func(k string) uint32 { return fnv32([]byte(k)) },
		Equal: func(a, b string) bool { return a == b },
	}
}

// fnv32 hashes b with FNV-1a.
func fnv32(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// File: registry/table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linear-probing table with tombstones and fixed-step resizing.

package registry

const (
	// GrowthStep is the number of slots added or removed by a resize.
	GrowthStep = 32
	// MaxLoad triggers growth when used slots reach this share of capacity.
	MaxLoad = 0.6
	// MinLoad triggers shrinking when live entries fall below this share.
	MinLoad = 0.1
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

type slot[K, V any] struct {
	state slotState
	key   K
	value V
}

// Table is an open-addressing map keyed by K.
type Table[K, V any] struct {
	hasher     Hasher[K]
	slots      []slot[K, V]
	count      int // occupied slots
	tombstones int
}

// New creates an empty table. No storage is allocated until the first Put.
func New[K, V any](h Hasher[K]) *Table[K, V] {
	return &Table[K, V]{hasher: h}
}

// Len returns the number of live entries.
func (t *Table[K, V]) Len() int { return t.count }

// Cap returns the current slot capacity.
func (t *Table[K, V]) Cap() int { return len(t.slots) }

// Tombstones returns the number of deleted slots awaiting the next resize.
func (t *Table[K, V]) Tombstones() int { return t.tombstones }

// Put inserts or updates key. It reports true when a new entry was created.
func (t *Table[K, V]) Put(key K, value V) bool {
	capacity := float64(len(t.slots))
	if float64(t.count+t.tombstones) >= capacity*MaxLoad {
		t.resize(len(t.slots) + GrowthStep)
	} else if float64(t.count) < capacity*MinLoad {
		t.resize(len(t.slots) - GrowthStep)
	}

	idx := t.probe(t.slots, key)
	s := &t.slots[idx]
	inserted := s.state != slotOccupied
	if inserted {
		if s.state == slotTombstone {
			t.tombstones--
		}
		t.count++
		s.state = slotOccupied
		s.key = key
	}
	s.value = value
	return inserted
}

// Get returns a reference to the value stored under key.
// The reference stays valid until the next Put, which may resize.
func (t *Table[K, V]) Get(key K) (*V, bool) {
	if len(t.slots) == 0 {
		return nil, false
	}
	idx := t.probe(t.slots, key)
	s := &t.slots[idx]
	if s.state != slotOccupied {
		return nil, false
	}
	return &s.value, true
}

// Remove deletes key, leaving a tombstone so other probe chains stay intact.
// Removing an absent key is a no-op.
func (t *Table[K, V]) Remove(key K) {
	if t.count == 0 {
		return
	}
	idx := t.probe(t.slots, key)
	s := &t.slots[idx]
	if s.state != slotOccupied {
		return
	}
	var zeroK K
	var zeroV V
	s.state = slotTombstone
	s.key = zeroK
	s.value = zeroV
	t.count--
	t.tombstones++
}

// Clear drops every entry and keeps the current capacity.
func (t *Table[K, V]) Clear() {
	clear(t.slots)
	t.count = 0
	t.tombstones = 0
}

// ForEach calls fn for every live entry in slot order. fn must not Put or
// Remove on t.
func (t *Table[K, V]) ForEach(fn func(key K, value *V)) {
	if t.count == 0 {
		return
	}
	for i := range t.slots {
		if t.slots[i].state == slotOccupied {
			fn(t.slots[i].key, &t.slots[i].value)
		}
	}
}

// Destroy visits every live entry so the caller can release what it owns,
// then frees the storage.
func (t *Table[K, V]) Destroy(visit func(key K, value *V)) {
	if visit != nil {
		t.ForEach(visit)
	}
	t.slots = nil
	t.count = 0
	t.tombstones = 0
}

// probe returns the slot holding key, or the insertion target: the first
// tombstone seen on the chain, else the terminating empty slot.
func (t *Table[K, V]) probe(slots []slot[K, V], key K) int {
	n := len(slots)
	idx := int(t.hasher.Hash(key) % uint32(n))
	tombstone := -1
	for i := 0; i < n; i++ {
		s := &slots[idx]
		switch s.state {
		case slotEmpty:
			if tombstone >= 0 {
				return tombstone
			}
			return idx
		case slotTombstone:
			if tombstone < 0 {
				tombstone = idx
			}
		case slotOccupied:
			if t.hasher.Equal(s.key, key) {
				return idx
			}
		}
		idx++
		if idx == n {
			idx = 0
		}
	}
	// Full chain without an empty slot; the load limits make this
	// unreachable for Put, but a tombstone is still a valid target.
	if tombstone >= 0 {
		return tombstone
	}
	return idx
}

// resize rebuilds the table at newCap from live entries only. Targets of
// zero or less are ignored and the table keeps its current capacity.
func (t *Table[K, V]) resize(newCap int) {
	if newCap <= 0 || newCap < t.count {
		return
	}
	old := t.slots
	fresh := make([]slot[K, V], newCap)
	for i := range old {
		if old[i].state != slotOccupied {
			continue
		}
		idx := t.probe(fresh, old[i].key)
		fresh[idx] = old[i]
	}
	t.slots = fresh
	t.tombstones = 0
}

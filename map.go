// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package probemap implements small open-addressing hash tables: Map, which
// associates a single value with each key, and MultiMap, which associates an
// ordered, duplicate-free list of values with each key. See
// https://en.wikipedia.org/wiki/Open_addressing and
// https://en.wikipedia.org/wiki/Linear_probing.
//
// # Layout
//
// A table is a flat array of slots. Each slot is empty (never written since
// the last rebuild), occupied (holds a live key) or a tombstone (held a key
// that has since been deleted). A key is placed by linear probing: starting at
// hash(key) mod capacity the slots are examined one after the other, wrapping
// at the end of the array, until the key or an empty slot is found. A probe
// never examines more than capacity slots.
//
// Deletion turns the slot into a tombstone rather than an empty slot. Making
// it empty would cut the probe sequence of every key that was placed past it.
// Insertion reuses the first tombstone on the probe sequence once it has
// established that the key is not present further along.
//
// # Maintenance
//
// Two counters drive maintenance: the number of occupied slots (active) and
// the number of claimed slots, occupied plus tombstones (live). Before every
// insertion exactly one of the following may happen:
//
//   - If active+1 would exceed 0.3 × capacity, the table grows: a slot array
//     twice the size is allocated and every occupied slot is re-inserted.
//   - Otherwise, if live > 2 × active, the table is compacted: it is rebuilt
//     at the same capacity, which drops every tombstone and shortens probe
//     sequences without using more memory.
//
// A rebuild reassigns positions, so iteration order is not stable across
// insertions, and any outstanding Iterator is invalidated.
//
// The low load factor keeps probe sequences short and guarantees an empty
// slot is always available after maintenance. Running out of slots during an
// insertion is an internal invariant violation and panics.
package probemap

// Map is an unordered map from keys to values with Put, Get, Delete, and All
// operations. Values must be comparable because Put reports whether it
// changed the stored value and UniqueValues compares values.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V comparable] struct {
	t table[K, V]
}

// New constructs a new Map with the specified initial capacity. If
// initialCapacity is <= 0 the default capacity of 8 slots is used. The zero
// value for a Map is not usable.
func New[K comparable, V comparable](initialCapacity int, options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{}
	m.t.init(initialCapacity, options)
	return m
}

// Put associates value with key. It returns true if the call changed the
// stored data: key was absent, or key was present with a different value.
// Putting a value equal to the stored one returns false.
func (m *Map[K, V]) Put(key K, value V) bool {
	i, found := m.t.claim(key)
	s := &m.t.slots[i]
	if found {
		if s.payload == value {
			return false
		}
		s.payload = value
		return true
	}
	s.payload = value
	m.t.checkInvariants()
	return true
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	i, ok := m.t.find(key)
	if !ok {
		return value, false
	}
	return m.t.slots[i].payload, true
}

// Delete deletes the entry corresponding to the specified key from the map.
// It returns false if the key was not present.
func (m *Map[K, V]) Delete(key K) bool {
	return m.t.remove(key)
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.t.active
}

// UniqueValues returns the number of distinct values in the map. Values are
// compared pairwise, so this is quadratic in Len.
func (m *Map[K, V]) UniqueValues() int {
	var seen Buffer[V]
	m.t.each(func(s *Slot[K, V]) bool {
		if !seen.Contains(s.payload) {
			seen.Append(s.payload)
		}
		return true
	})
	return seen.Len()
}

// Clear deletes all entries from the map, retaining its capacity.
func (m *Map[K, V]) Clear() {
	m.t.reset()
}

// Close closes the map, releasing the slot array back to its configured
// allocator. It is unnecessary to close a map using the default allocator.
// It is invalid to use a Map after it has been closed, though Close itself is
// idempotent.
func (m *Map[K, V]) Close() {
	m.t.close()
}

// Stats returns the current shape of the map.
func (m *Map[K, V]) Stats() Stats {
	return m.t.stats()
}

// String returns the entries of the map sorted by their formatted keys.
func (m *Map[K, V]) String() string {
	return StringFunc(m, sprint[K], sprint[V])
}

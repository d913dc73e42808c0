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

package probemap

// MultiMap is an unordered map from keys to ordered lists of distinct
// values. It uses the same slot layout and maintenance as Map, with a Buffer
// of values in place of a single value.
//
// A MultiMap is NOT goroutine-safe.
type MultiMap[K comparable, V comparable] struct {
	t table[K, Buffer[V]]
}

// NewMulti constructs a new MultiMap with the specified initial capacity. If
// initialCapacity is <= 0 the default capacity of 8 slots is used. Options are
// instantiated with Buffer[V] as the payload type:
//
//	NewMulti[int, string](0, WithHash[int, Buffer[string]](hash))
func NewMulti[K comparable, V comparable](
	initialCapacity int, options ...option[K, Buffer[V]],
) *MultiMap[K, V] {
	m := &MultiMap[K, V]{}
	m.t.init(initialCapacity, options)
	return m
}

// Put appends value to the list of values for key. It returns false, leaving
// the map unchanged, if value is already associated with key.
func (m *MultiMap[K, V]) Put(key K, value V) bool {
	i, found := m.t.claim(key)
	values := &m.t.slots[i].payload
	if found {
		if values.Contains(value) {
			return false
		}
		values.Append(value)
		return true
	}
	// The slot may be a reused tombstone still holding the values of a
	// deleted entry.
	*values = Buffer[V]{}
	values.Append(value)
	m.t.checkInvariants()
	return true
}

// Get returns a copy of the values associated with key in the order they
// were added, or ok=false if the key is not present.
func (m *MultiMap[K, V]) Get(key K) (values []V, ok bool) {
	i, ok := m.t.find(key)
	if !ok {
		return nil, false
	}
	return m.t.slots[i].payload.Values(), true
}

// Contains reports whether value is associated with key.
func (m *MultiMap[K, V]) Contains(key K, value V) bool {
	i, ok := m.t.find(key)
	return ok && m.t.slots[i].payload.Contains(value)
}

// Delete deletes key and all of its values. It returns false if the key was
// not present.
func (m *MultiMap[K, V]) Delete(key K) bool {
	return m.t.remove(key)
}

// Len returns the number of keys in the map.
func (m *MultiMap[K, V]) Len() int {
	return m.t.active
}

// UniqueValues returns the number of distinct values across the values of
// every key.
func (m *MultiMap[K, V]) UniqueValues() int {
	var seen Buffer[V]
	m.t.each(func(s *Slot[K, Buffer[V]]) bool {
		for _, v := range s.payload.All() {
			if !seen.Contains(v) {
				seen.Append(v)
			}
		}
		return true
	})
	return seen.Len()
}

// Clear deletes all entries from the map, retaining its capacity.
func (m *MultiMap[K, V]) Clear() {
	m.t.reset()
}

// Close closes the map, releasing the slot array back to its configured
// allocator. It is invalid to use a MultiMap after it has been closed.
func (m *MultiMap[K, V]) Close() {
	m.t.close()
}

// Stats returns the current shape of the map.
func (m *MultiMap[K, V]) Stats() Stats {
	return m.t.stats()
}

// String returns the entries of the map sorted by their formatted keys.
func (m *MultiMap[K, V]) String() string {
	return MultiStringFunc(m, sprint[K], sprint[V])
}

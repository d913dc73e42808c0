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

import "iter"

// cursor is a position in a table's slot array. Positions [0, capacity) are
// slots and capacity is the end position.
type cursor[K comparable, P any] struct {
	t          *table[K, P]
	pos        int
	generation uint64
}

func (t *table[K, P]) begin() cursor[K, P] {
	c := cursor[K, P]{t: t, pos: -1, generation: t.generation}
	c.next()
	return c
}

func (t *table[K, P]) end() cursor[K, P] {
	return cursor[K, P]{t: t, pos: len(t.slots), generation: t.generation}
}

func (c *cursor[K, P]) check() {
	if c.t != nil && c.generation != c.t.generation {
		panic("probemap: iterator used after the map was rebuilt")
	}
}

// next moves to the next occupied slot, or to the end position if there is
// none. It moves at least one position unless already at the end.
func (c *cursor[K, P]) next() {
	if c.t == nil {
		return
	}
	c.check()
	end := len(c.t.slots)
	if c.pos >= end {
		return
	}
	i, ok := c.t.occupied.NextSet(uint(c.pos + 1))
	if !ok || int(i) >= end {
		c.pos = end
		return
	}
	c.pos = int(i)
}

func (c *cursor[K, P]) done() bool {
	c.check()
	return c.t == nil || c.pos >= len(c.t.slots)
}

func (c *cursor[K, P]) slot() *Slot[K, P] {
	if c.done() {
		panic("probemap: iterator dereferenced at end")
	}
	return &c.t.slots[c.pos]
}

func (c *cursor[K, P]) equal(o cursor[K, P]) bool {
	return c.t == o.t && c.pos == o.pos
}

// Iterator is a forward-only cursor over the entries of a Map in slot order.
// Begin returns an Iterator at the first entry, or equal to End if the map is
// empty:
//
//	for it := m.Begin(); !it.Done(); it.Next() {
//		fmt.Println(it.Key(), it.Value())
//	}
//
// Deleting entries while iterating is allowed; deleted entries are skipped.
// Any other modification may rebuild the map, after which every use of the
// Iterator panics.
type Iterator[K comparable, V comparable] struct {
	c cursor[K, V]
}

// Begin returns an Iterator positioned at the first entry of m.
func (m *Map[K, V]) Begin() Iterator[K, V] {
	return Iterator[K, V]{m.t.begin()}
}

// End returns the Iterator positioned one past the last slot of m.
func (m *Map[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{m.t.end()}
}

// Next advances the iterator to the next entry. At the end it is a noop.
func (it *Iterator[K, V]) Next() {
	it.c.next()
}

// Done reports whether the iterator is at the end.
func (it *Iterator[K, V]) Done() bool {
	return it.c.done()
}

// Key returns the key at the iterator's position. It panics at the end.
func (it *Iterator[K, V]) Key() K {
	return it.c.slot().key
}

// Value returns the value at the iterator's position. It panics at the end.
func (it *Iterator[K, V]) Value() V {
	return it.c.slot().payload
}

// Equal reports whether it and o are positioned at the same slot of the same
// map.
func (it *Iterator[K, V]) Equal(o Iterator[K, V]) bool {
	return it.c.equal(o.c)
}

// All returns an iterator over the key-value pairs of m in slot order. The
// map must not be modified by anything other than Delete during iteration.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for it := m.Begin(); !it.Done(); it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}

// Keys returns an iterator over the keys of m.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for it := m.Begin(); !it.Done(); it.Next() {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

// MultiIterator is the MultiMap counterpart of Iterator.
type MultiIterator[K comparable, V comparable] struct {
	c cursor[K, Buffer[V]]
}

// Begin returns a MultiIterator positioned at the first entry of m.
func (m *MultiMap[K, V]) Begin() MultiIterator[K, V] {
	return MultiIterator[K, V]{m.t.begin()}
}

// End returns the MultiIterator positioned one past the last slot of m.
func (m *MultiMap[K, V]) End() MultiIterator[K, V] {
	return MultiIterator[K, V]{m.t.end()}
}

// Next advances the iterator to the next entry. At the end it is a noop.
func (it *MultiIterator[K, V]) Next() {
	it.c.next()
}

// Done reports whether the iterator is at the end.
func (it *MultiIterator[K, V]) Done() bool {
	return it.c.done()
}

// Key returns the key at the iterator's position. It panics at the end.
func (it *MultiIterator[K, V]) Key() K {
	return it.c.slot().key
}

// Values returns a copy of the values at the iterator's position. It panics
// at the end.
func (it *MultiIterator[K, V]) Values() []V {
	return it.c.slot().payload.Values()
}

// Equal reports whether it and o are positioned at the same slot of the same
// map.
func (it *MultiIterator[K, V]) Equal(o MultiIterator[K, V]) bool {
	return it.c.equal(o.c)
}

// All returns an iterator over the keys of m and copies of their values.
func (m *MultiMap[K, V]) All() iter.Seq2[K, []V] {
	return func(yield func(K, []V) bool) {
		for it := m.Begin(); !it.Done(); it.Next() {
			if !yield(it.Key(), it.Values()) {
				return
			}
		}
	}
}

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

import (
	"errors"
	"fmt"
	"iter"

	"golang.org/x/exp/slices"
)

const defaultBufferCapacity = 8

// ErrIndexOutOfRange is returned by Buffer.Get for an index outside
// [0, Len()).
var ErrIndexOutOfRange = errors.New("probemap: index out of range")

// Buffer is an append-only sequence of values. Appending to a full buffer
// doubles its capacity, starting from 8 elements, so that Append is
// amortized O(1). The zero value is an empty buffer ready to use.
//
// A MultiMap stores one Buffer per key.
type Buffer[T comparable] struct {
	// data is the backing array; len(data) is the capacity.
	data []T
	n    int
}

// NewBuffer returns a Buffer with the default capacity holding values.
func NewBuffer[T comparable](values ...T) *Buffer[T] {
	b := &Buffer[T]{data: make([]T, defaultBufferCapacity)}
	for _, v := range values {
		b.Append(v)
	}
	return b
}

// Append adds v to the end of the buffer.
func (b *Buffer[T]) Append(v T) {
	if b.n+1 > len(b.data) {
		b.grow()
	}
	b.data[b.n] = v
	b.n++
}

// grow moves the elements into a new backing array of twice the capacity.
func (b *Buffer[T]) grow() {
	newCap := 2 * len(b.data)
	if newCap == 0 {
		newCap = defaultBufferCapacity
	}
	data := make([]T, newCap)
	copy(data, b.data[:b.n])
	b.data = data
}

// Get returns the element at index i. Indexes are not wrapped: an index
// outside [0, Len()) returns the zero value and an error wrapping
// ErrIndexOutOfRange.
func (b *Buffer[T]) Get(i int) (T, error) {
	if i < 0 || i >= b.n {
		var zero T
		return zero, fmt.Errorf("%w: index %d with length %d", ErrIndexOutOfRange, i, b.n)
	}
	return b.data[i], nil
}

// Contains reports whether v is in the buffer. It is a linear scan.
func (b *Buffer[T]) Contains(v T) bool {
	return b.Index(v) >= 0
}

// Index returns the index of the first occurrence of v, or -1 if not present.
func (b *Buffer[T]) Index(v T) int {
	return slices.Index(b.data[:b.n], v)
}

// Len returns the number of elements in the buffer.
func (b *Buffer[T]) Len() int {
	return b.n
}

// Cap returns the number of elements the buffer can hold before it has to
// grow.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Values returns a copy of the elements in order, or nil if the buffer is
// empty.
func (b *Buffer[T]) Values() []T {
	if b.n == 0 {
		return nil
	}
	return slices.Clone(b.data[:b.n])
}

// All returns an iterator over the index and value of each element.
func (b *Buffer[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < b.n; i++ {
			if !yield(i, b.data[i]) {
				return
			}
		}
	}
}

// Equal reports whether b and o hold the same elements in the same order.
func (b *Buffer[T]) Equal(o *Buffer[T]) bool {
	return slices.Equal(b.data[:b.n], o.data[:o.n])
}

func (b Buffer[T]) String() string {
	return fmt.Sprint(b.data[:b.n])
}

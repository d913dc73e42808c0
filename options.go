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

import "log/slog"

// option provide an interface to do work on a table while it is being
// created. P is the slot payload: V for a Map[K,V] and Buffer[V] for a
// MultiMap[K,V].
type option[K comparable, P any] interface {
	apply(t *table[K, P])
}

type hashOption[K comparable, P any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, P]) apply(t *table[K, P]) {
	t.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map[K,V]
// or MultiMap[K,V]. The function must be deterministic: equal keys must
// always produce equal hashes for the lifetime of the table. The seed is a
// per-table random value which may be ignored.
//
//	m := New[int, string](0, WithHash[int, string](hash))
//	mm := NewMulti[int, string](0, WithHash[int, Buffer[string]](hash))
func WithHash[K comparable, P any](hash func(key *K, seed uintptr) uintptr) option[K, P] {
	return hashOption[K, P]{hash}
}

// Allocator specifies an interface for allocating and releasing the slot
// arrays used by a Map or MultiMap. The default allocator utilizes Go's
// builtin make() and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots be
// freed then Close must be called in order to ensure FreeSlots is called for
// the final slot array.
type Allocator[K comparable, P any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[K,P], n).
	// In particular every returned slot must be the zero Slot, which is an
	// empty slot.
	AllocSlots(n int) []Slot[K, P]

	// FreeSlots can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot[K, P])
}

type defaultAllocator[K comparable, P any] struct{}

func (defaultAllocator[K, P]) AllocSlots(n int) []Slot[K, P] {
	return make([]Slot[K, P], n)
}

func (defaultAllocator[K, P]) FreeSlots(v []Slot[K, P]) {
}

type allocatorOption[K comparable, P any] struct {
	allocator Allocator[K, P]
}

func (op allocatorOption[K, P]) apply(t *table[K, P]) {
	t.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a
// Map[K,V] or MultiMap[K,V].
func WithAllocator[K comparable, P any](allocator Allocator[K, P]) option[K, P] {
	return allocatorOption[K, P]{allocator}
}

type loggerOption[K comparable, P any] struct {
	logger *slog.Logger
}

func (op loggerOption[K, P]) apply(t *table[K, P]) {
	if op.logger != nil {
		t.logger = op.logger
	}
}

// WithLogger is an option to specify a logger which receives a debug record
// every time the table is grown or compacted. By default nothing is logged.
func WithLogger[K comparable, P any](logger *slog.Logger) option[K, P] {
	return loggerOption[K, P]{logger}
}

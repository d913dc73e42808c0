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
	"fmt"
	"hash/maphash"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

const (
	debug = false

	defaultCapacity = 8

	// The maximum load factor of 0.3 is represented as
	// loadFactorNum/loadFactorDen to allow integer math.
	loadFactorNum = 3
	loadFactorDen = 10

	// A same-size rebuild is performed when the number of claimed slots
	// (occupied plus tombstones) exceeds compactionRatio times the number of
	// occupied slots.
	compactionRatio = 2
)

// slotState is the state of a single slot. The zero value is slotEmpty so
// that a freshly allocated slot array contains only empty slots.
//
// A slot moves empty -> occupied -> tombstone -> occupied -> ... and only
// returns to empty when the table is rebuilt or cleared.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotTombstone
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotOccupied:
		return "occupied"
	case slotTombstone:
		return "tombstone"
	default:
		return fmt.Sprintf("slotState(%d)", uint8(s))
	}
}

// Slot holds a key, its payload and the state of the slot. For a Map the
// payload is the value, for a MultiMap it is the Buffer of values.
type Slot[K comparable, P any] struct {
	key     K
	payload P
	state   slotState
}

// Stats describes the shape of a Map or MultiMap.
type Stats struct {
	// Capacity is the number of slots.
	Capacity int
	// Len is the number of occupied slots.
	Len int
	// Tombstones is the number of deleted slots still occupying a probe
	// position.
	Tombstones int
	// Grows is the number of rebuilds which doubled the capacity.
	Grows int
	// Compactions is the number of same-capacity rebuilds.
	Compactions int
}

// processSeed seeds the default hash function. It is combined with the
// per-table seed so that tables in the same process lay out keys
// differently.
var processSeed = maphash.MakeSeed()

func defaultHash[K comparable](key *K, seed uintptr) uintptr {
	return uintptr(maphash.Comparable(processSeed, *key)) ^ seed
}

// table is the open-addressing core shared by Map and MultiMap. Keys are
// placed by linear probing starting at hash(key) mod capacity.
type table[K comparable, P any] struct {
	hash      func(key *K, seed uintptr) uintptr
	seed      uintptr
	allocator Allocator[K, P]
	logger    *slog.Logger
	// slots is capacity in length. Position len(slots) is the end position
	// used by iterators; it is never probed.
	slots []Slot[K, P]
	// occupied mirrors the set of occupied positions in slots. Iterators use
	// it to skip runs of empty and deleted slots.
	occupied *bitset.BitSet
	// The number of occupied slots.
	active int
	// The number of occupied or deleted slots, i.e. every position claimed
	// since the last rebuild.
	live int
	// generation is incremented by every rebuild and clear. Iterators record
	// it and refuse to run against a table that has since been rebuilt.
	generation  uint64
	grows       int
	compactions int
}

func (t *table[K, P]) init(initialCapacity int, options []option[K, P]) {
	t.hash = defaultHash[K]
	t.seed = uintptr(rand.Uint64())
	t.allocator = defaultAllocator[K, P]{}
	t.logger = slog.New(slog.DiscardHandler)

	for _, op := range options {
		op.apply(t)
	}

	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	}
	t.slots = t.allocator.AllocSlots(initialCapacity)
	t.occupied = bitset.New(uint(initialCapacity))
	t.checkInvariants()
}

func (t *table[K, P]) capacity() int {
	return len(t.slots)
}

// hashIndex returns the position at which the probe sequence for key starts.
func (t *table[K, P]) hashIndex(key *K) int {
	return int(t.hash(key, t.seed) % uintptr(len(t.slots)))
}

// find returns the position of the occupied slot holding key. The probe stops
// at the first empty slot or after visiting every slot once.
func (t *table[K, P]) find(key K) (int, bool) {
	capacity := len(t.slots)
	if capacity == 0 {
		return -1, false
	}
	i := t.hashIndex(&key)
	if debug {
		fmt.Printf("find(%v): start=%d capacity=%d\n", key, i, capacity)
	}
	for n := 0; n < capacity; n++ {
		s := &t.slots[i]
		switch s.state {
		case slotEmpty:
			return -1, false
		case slotOccupied:
			if s.key == key {
				return i, true
			}
		}
		if i++; i == capacity {
			i = 0
		}
	}
	return -1, false
}

// claim runs table maintenance and then locates the slot for key. If key is
// present, claim returns its position and found=true. Otherwise a slot is
// claimed for key and marked occupied; the caller must reset its payload.
//
// The first tombstone seen on the probe sequence is reused in preference to
// the empty slot terminating the sequence, which keeps live unchanged.
func (t *table[K, P]) claim(key K) (i int, found bool) {
	t.maintain()

	capacity := len(t.slots)
	i = t.hashIndex(&key)
	tombstone := -1
	if debug {
		fmt.Printf("claim(%v): start=%d capacity=%d\n", key, i, capacity)
	}

	for n := 0; n < capacity; n++ {
		s := &t.slots[i]
		switch s.state {
		case slotEmpty:
			if tombstone >= 0 {
				return t.occupy(tombstone, key), false
			}
			t.live++
			return t.occupy(i, key), false
		case slotOccupied:
			if s.key == key {
				if debug {
					fmt.Printf("claim(%v): found index=%d\n", key, i)
				}
				return i, true
			}
		case slotTombstone:
			if tombstone < 0 {
				tombstone = i
			}
		}
		if i++; i == capacity {
			i = 0
		}
	}

	if tombstone >= 0 {
		return t.occupy(tombstone, key), false
	}
	// The load factor guarantees an empty slot after maintenance. Reaching
	// this point means the counters or the slot states are corrupt.
	panic(fmt.Sprintf("probemap: no free slot for %v after %d probes\n%s",
		key, capacity, t.debugString()))
}

// occupy marks the slot at index i as holding key.
func (t *table[K, P]) occupy(i int, key K) int {
	s := &t.slots[i]
	if debug {
		fmt.Printf("occupy(%v): index=%d was=%s\n", key, i, s.state)
	}
	s.key = key
	s.state = slotOccupied
	t.active++
	t.occupied.Set(uint(i))
	return i
}

// remove turns the slot holding key into a tombstone. The payload is left in
// place and released when the next rebuild drops the tombstone.
func (t *table[K, P]) remove(key K) bool {
	i, ok := t.find(key)
	if !ok {
		return false
	}
	t.slots[i].state = slotTombstone
	t.active--
	t.occupied.Clear(uint(i))
	if debug {
		fmt.Printf("remove(%v): index=%d active=%d live=%d\n", key, i, t.active, t.live)
	}
	t.checkInvariants()
	return true
}

// maintain grows the table if one more entry would exceed the load factor,
// or else compacts it in place when tombstones make up more than half of the
// claimed slots. At most one rebuild happens per call.
func (t *table[K, P]) maintain() {
	capacity := len(t.slots)
	switch {
	case loadFactorDen*(t.active+1) > loadFactorNum*capacity:
		t.grows++
		t.rebuild(2*capacity, "grow")
	case t.live > compactionRatio*t.active:
		t.compactions++
		t.rebuild(capacity, "compact")
	}
}

// rebuild reallocates the slot array with newCapacity slots and re-inserts
// every occupied slot. Tombstones, and any payload they still hold, are
// dropped.
func (t *table[K, P]) rebuild(newCapacity int, reason string) {
	if newCapacity < 1 {
		newCapacity = 1
	}
	oldSlots := t.slots
	oldCapacity, oldLive := len(oldSlots), t.live

	t.slots = t.allocator.AllocSlots(newCapacity)
	t.occupied = bitset.New(uint(newCapacity))
	t.active, t.live = 0, 0
	t.generation++

	for i := range oldSlots {
		s := &oldSlots[i]
		if s.state != slotOccupied {
			continue
		}
		j := t.uncheckedPut(s.key)
		t.slots[j].payload = s.payload
	}

	clear(oldSlots)
	t.allocator.FreeSlots(oldSlots)

	t.logger.Debug("probemap: rebuilt table",
		"reason", reason,
		"old-capacity", oldCapacity,
		"capacity", newCapacity,
		"len", t.active,
		"dropped-tombstones", oldLive-t.active,
	)
	if debug {
		fmt.Printf("rebuild(%s): capacity=%d->%d len=%d\n", reason, oldCapacity, newCapacity, t.active)
	}
	t.checkInvariants()
}

// uncheckedPut inserts a key known not to be in the table into a table known
// to contain no tombstones. Used by rebuild.
func (t *table[K, P]) uncheckedPut(key K) int {
	capacity := len(t.slots)
	i := t.hashIndex(&key)
	for n := 0; n < capacity; n++ {
		if t.slots[i].state == slotEmpty {
			t.live++
			return t.occupy(i, key)
		}
		if i++; i == capacity {
			i = 0
		}
	}
	panic(fmt.Sprintf("probemap: rebuild overflowed %d slots", capacity))
}

// reset empties every slot while retaining the capacity.
func (t *table[K, P]) reset() {
	clear(t.slots)
	t.occupied.ClearAll()
	t.active, t.live = 0, 0
	t.generation++
	t.checkInvariants()
}

func (t *table[K, P]) close() {
	if t.slots != nil {
		t.allocator.FreeSlots(t.slots)
	}
	t.slots = nil
	t.occupied = bitset.New(0)
	t.active, t.live = 0, 0
	t.generation++
	t.allocator = nil
}

// each calls yield for every occupied slot in slot order. If yield returns
// false, iteration stops.
func (t *table[K, P]) each(yield func(s *Slot[K, P]) bool) {
	for i, ok := t.occupied.NextSet(0); ok && int(i) < len(t.slots); i, ok = t.occupied.NextSet(i + 1) {
		if !yield(&t.slots[i]) {
			return
		}
	}
}

func (t *table[K, P]) stats() Stats {
	return Stats{
		Capacity:    len(t.slots),
		Len:         t.active,
		Tombstones:  t.live - t.active,
		Grows:       t.grows,
		Compactions: t.compactions,
	}
}

func (t *table[K, P]) checkInvariants() {
	if invariants {
		if t.active < 0 || t.active > t.live || t.live > len(t.slots) {
			panic(fmt.Sprintf("invariant failed: active=%d live=%d capacity=%d\n%s",
				t.active, t.live, len(t.slots), t.debugString()))
		}

		var occupied, tombstones int
		for i := range t.slots {
			s := &t.slots[i]
			switch s.state {
			case slotEmpty:
			case slotTombstone:
				tombstones++
			case slotOccupied:
				occupied++
				if j, ok := t.find(s.key); !ok || j != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v not found\n%s",
						i, s.key, t.debugString()))
				}
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): unexpected state %s", i, s.state))
			}
			if t.occupied.Test(uint(i)) != (s.state == slotOccupied) {
				panic(fmt.Sprintf("invariant failed: slot(%d): occupancy bit disagrees with state %s",
					i, s.state))
			}
		}

		if occupied != t.active {
			panic(fmt.Sprintf("invariant failed: found %d occupied slots, but active count is %d\n%s",
				occupied, t.active, t.debugString()))
		}
		if occupied+tombstones != t.live {
			panic(fmt.Sprintf("invariant failed: found %d claimed slots, but live count is %d\n%s",
				occupied+tombstones, t.live, t.debugString()))
		}
	}
}

func (t *table[K, P]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  active=%d  live=%d  generation=%d\n",
		len(t.slots), t.active, t.live, t.generation)
	for i := range t.slots {
		switch s := &t.slots[i]; s.state {
		case slotEmpty:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case slotTombstone:
			fmt.Fprintf(&buf, "  %4d: %v (deleted)\n", i, s.key)
		default:
			fmt.Fprintf(&buf, "  %4d: %v %v\n", i, s.key, s.payload)
		}
	}
	return buf.String()
}

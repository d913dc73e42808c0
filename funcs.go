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
	"strings"

	"golang.org/x/exp/slices"
)

func sprint[T any](v T) string {
	return fmt.Sprint(v)
}

type strKV struct {
	k string
	v string
}

// render sorts kvs by key and joins them as name[k:v k:v ...].
func render(name string, kvs []strKV) string {
	slices.SortFunc(kvs, func(a, b strKV) bool { return a.k < b.k })

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('[')
	for i, kv := range kvs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv.k)
		b.WriteByte(':')
		b.WriteString(kv.v)
	}
	b.WriteByte(']')
	return b.String()
}

// StringFunc converts m to a string representation with the help of strK
// and strV functions to stringify m's keys and values. Entries are sorted by
// their stringified keys so the result does not depend on slot order.
func StringFunc[K comparable, V comparable](m *Map[K, V],
	strK func(key K) string,
	strV func(value V) string) string {
	if m == nil || m.Len() == 0 {
		return "probemap.Map[]"
	}
	kvs := make([]strKV, 0, m.Len())
	for k, v := range m.All() {
		kvs = append(kvs, strKV{k: strK(k), v: strV(v)})
	}
	return render("probemap.Map", kvs)
}

// MultiStringFunc is StringFunc for a MultiMap. The values of each key are
// rendered in insertion order as [v1 v2 ...].
func MultiStringFunc[K comparable, V comparable](m *MultiMap[K, V],
	strK func(key K) string,
	strV func(value V) string) string {
	if m == nil || m.Len() == 0 {
		return "probemap.MultiMap[]"
	}
	kvs := make([]strKV, 0, m.Len())
	for k, vs := range m.All() {
		strs := make([]string, len(vs))
		for i, v := range vs {
			strs[i] = strV(v)
		}
		kvs = append(kvs, strKV{k: strK(k), v: "[" + strings.Join(strs, " ") + "]"})
	}
	return render("probemap.MultiMap", kvs)
}

// Equal returns true if the same set of keys and values are in m1 and m2.
// Values are compared using ==.
func Equal[K comparable, V comparable](m1, m2 *Map[K, V]) bool {
	if m1.Len() != m2.Len() {
		return false
	}
	for k, v := range m1.All() {
		v2, ok := m2.Get(k)
		if !ok || v != v2 {
			return false
		}
	}
	return true
}

// MultiEqual returns true if m1 and m2 hold the same keys and each key has
// the same values in the same order.
func MultiEqual[K comparable, V comparable](m1, m2 *MultiMap[K, V]) bool {
	if m1.Len() != m2.Len() {
		return false
	}
	for k, vs := range m1.All() {
		vs2, ok := m2.Get(k)
		if !ok || !slices.Equal(vs, vs2) {
			return false
		}
	}
	return true
}

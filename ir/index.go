// Copyright 2025 Google LLC
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

package ir

import "fmt"

// Index is either a static integer or a reference to a value of index type
// computed at runtime.
type Index struct {
	static int
	value  Value
}

// Static returns a static index.
func Static(n int) Index {
	return Index{static: n}
}

// DynIndex returns an index computed at runtime by a value.
func DynIndex(v Value) Index {
	return Index{static: Dynamic, value: v}
}

// StaticIndices returns a static index for each integer.
func StaticIndices(ns ...int) []Index {
	idx := make([]Index, len(ns))
	for i, n := range ns {
		idx[i] = Static(n)
	}
	return idx
}

// IsStatic returns true if the index is known statically.
func (idx Index) IsStatic() bool {
	return idx.value == NoValue
}

// StaticValue returns the static value of the index or Dynamic.
func (idx Index) StaticValue() int {
	if !idx.IsStatic() {
		return Dynamic
	}
	return idx.static
}

// Value returns the value computing the index or NoValue if the index is static.
func (idx Index) Value() Value {
	return idx.value
}

// String representation of the index.
func (idx Index) String() string {
	if idx.IsStatic() {
		return fmt.Sprint(idx.static)
	}
	return idx.value.String()
}

// StaticValues returns the static values of a list of indices,
// using Dynamic for indices computed at runtime.
func StaticValues(indices []Index) []int {
	vals := make([]int, len(indices))
	for i, idx := range indices {
		vals[i] = idx.StaticValue()
	}
	return vals
}

func indexRefs(indices []Index) []*Value {
	var refs []*Value
	for i := range indices {
		if indices[i].IsStatic() {
			continue
		}
		refs = append(refs, &indices[i].value)
	}
	return refs
}
